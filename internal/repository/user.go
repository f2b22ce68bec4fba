package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skyreport/skyreport/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

type UserRepository interface {
	Create(user *model.User) error
	ByID(id string) (*model.User, error)
	ByEmail(email string) (*model.User, error)
	ByUsername(username string) (*model.User, error)
	Update(user *model.User) error
	SetVerified(id string) (bool, error)
	SetPasswordHash(id, hash string) error
	ClaimVerificationSend(id string, now, cutoff time.Time) (bool, error)
	ClaimResetSend(id string, now, cutoff time.Time) (bool, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, country, is_verified, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Country,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// Unique constraint violation (works for both SQLite and PostgreSQL)
		errStr := err.Error()
		if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value") {
			if strings.Contains(errStr, "username") {
				return ErrDuplicateUsername
			}
			return ErrDuplicateEmail
		}
		return err
	}

	return nil
}

func (r *userRepository) ByID(id string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.Get(user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByEmail(email string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE email = $1`

	err := r.db.Get(user, query, email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByUsername(username string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE username = $1`

	err := r.db.Get(user, query, username)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) Update(user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	query := `UPDATE users SET username = $1, country = $2, updated_at = $3 WHERE id = $4`

	_, err := r.db.Exec(query, user.Username, user.Country, user.UpdatedAt, user.ID)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value") {
			return ErrDuplicateUsername
		}
	}
	return err
}

// SetVerified flips is_verified exactly once. Returns false when the user
// was already verified (or does not exist).
func (r *userRepository) SetVerified(id string) (bool, error) {
	query := `UPDATE users SET is_verified = TRUE, updated_at = $1 WHERE id = $2 AND is_verified = FALSE`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *userRepository) SetPasswordHash(id, hash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, hash, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ClaimVerificationSend stamps last_verification_email_sent only when the
// previous stamp is at or before cutoff. The conditional UPDATE makes the
// cooldown check-then-act atomic: of two concurrent resends, one claims
// the slot and the other sees zero rows.
func (r *userRepository) ClaimVerificationSend(id string, now, cutoff time.Time) (bool, error) {
	query := `UPDATE users SET last_verification_email_sent = $1, updated_at = $1
	          WHERE id = $2 AND (last_verification_email_sent IS NULL OR last_verification_email_sent <= $3)`

	return r.claim(query, id, now, cutoff)
}

// ClaimResetSend is ClaimVerificationSend for the password-reset cooldown.
func (r *userRepository) ClaimResetSend(id string, now, cutoff time.Time) (bool, error) {
	query := `UPDATE users SET last_reset_email_sent = $1, updated_at = $1
	          WHERE id = $2 AND (last_reset_email_sent IS NULL OR last_reset_email_sent <= $3)`

	return r.claim(query, id, now, cutoff)
}

func (r *userRepository) claim(query, id string, now, cutoff time.Time) (bool, error) {
	result, err := r.db.Exec(query, now, id, cutoff)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}
