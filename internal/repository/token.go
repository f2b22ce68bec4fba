package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyreport/skyreport/internal/model"
)

var (
	ErrTokenNotFound = errors.New("token not found")
)

type TokenRepository interface {
	Create(token *model.Token) error
	ByToken(token string) (*model.Token, error)
	Consume(token, tokenType string) (*model.Token, error)
	LiveByUserAndType(userID, tokenType string) (*model.Token, error)
	DeleteUnusedByUserAndType(userID, tokenType string) error
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tokens (id, user_id, type, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(query,
		token.ID,
		token.UserID,
		token.Type,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

// ByToken fetches a token row regardless of its used/expired state. The
// caller distinguishes a consumed token (replayed link) from one that
// never existed.
func (r *tokenRepository) ByToken(token string) (*model.Token, error) {
	var t model.Token
	query := `SELECT * FROM tokens WHERE token = $1`

	err := r.db.Get(&t, query, token)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// Consume atomically marks a live token of the given type as used and
// returns it. Of two concurrent requests with the same token only one
// succeeds; the other gets ErrTokenNotFound. The type predicate keeps a
// token posted to the wrong endpoint alive and untouched.
func (r *tokenRepository) Consume(token, tokenType string) (*model.Token, error) {
	var t model.Token
	now := time.Now().UTC()

	query := `
		UPDATE tokens
		SET used_at = $1
		WHERE token = $2
		AND type = $3
		AND used_at IS NULL
		AND expires_at > $4
		RETURNING *
	`

	err := r.db.Get(&t, query, now, token, tokenType, now)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// LiveByUserAndType returns the newest unused, unexpired token of the
// given type, or ErrTokenNotFound.
func (r *tokenRepository) LiveByUserAndType(userID, tokenType string) (*model.Token, error) {
	var t model.Token
	query := `
		SELECT * FROM tokens
		WHERE user_id = $1 AND type = $2 AND used_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.Get(&t, query, userID, tokenType, time.Now().UTC())
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *tokenRepository) DeleteUnusedByUserAndType(userID, tokenType string) error {
	query := `DELETE FROM tokens WHERE user_id = $1 AND type = $2 AND used_at IS NULL`
	_, err := r.db.Exec(query, userID, tokenType)
	return err
}
