package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/skyreport/skyreport/internal/model"
	"github.com/skyreport/skyreport/internal/repository"
	"github.com/skyreport/skyreport/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// Mailer is the outbound-email dependency of the auth lifecycle.
// Implemented by EmailService; faked in tests.
type Mailer interface {
	SendVerificationEmail(to, token string) error
	SendPasswordResetEmail(to, token string) error
}

// AuthService owns the account lifecycle: register, verify, login,
// forgot/reset password and the cooldown-guarded resends.
type AuthService struct {
	userRepository  repository.UserRepository
	tokenRepository repository.TokenRepository
	mailer          Mailer
	jwtSecret       string
	isProduction    bool
	jwtExpiry       time.Duration
	verifyExpiry    time.Duration
	resetExpiry     time.Duration
	resendCooldown  time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	tokenRepository repository.TokenRepository,
	mailer Mailer,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
	verifyExpiry time.Duration,
	resetExpiry time.Duration,
	resendCooldown time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:  userRepository,
		tokenRepository: tokenRepository,
		mailer:          mailer,
		jwtSecret:       jwtSecret,
		isProduction:    isProduction,
		jwtExpiry:       jwtExpiry,
		verifyExpiry:    verifyExpiry,
		resetExpiry:     resetExpiry,
		resendCooldown:  resendCooldown,
	}
}

// Register creates an unverified account and mails a verification link.
// When the email cannot be delivered the user row is kept and
// ErrEmailDelivery is returned alongside the user, so the caller can
// steer the client toward the resend endpoint.
func (s *AuthService) Register(username, email, password, country string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	country = strings.TrimSpace(country)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, validationError(err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, validationError(err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, validationError(err)
	}
	if country == "" {
		return nil, validationError(errors.New("country is required"))
	}

	// Email is checked before username so an unverified duplicate gets
	// pointed at resend-verification instead of a bare conflict.
	existing, err := s.userRepository.ByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		if !existing.IsVerified {
			return nil, ErrUnverifiedExists
		}
		return nil, ErrEmailTaken
	}

	_, err = s.userRepository.ByUsername(username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Country:      country,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.userRepository.Create(user)
	if err != nil {
		// The unique constraints arbitrate concurrent registrations.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	verificationToken, err := s.issueToken(user.ID, model.TokenTypeEmailVerify, s.verifyExpiry)
	if err != nil {
		return nil, err
	}

	_, err = s.userRepository.ClaimVerificationSend(user.ID, now, now)
	if err != nil {
		slog.Warn("failed to stamp verification send", "error", err, "user_id", user.ID)
	}

	err = s.mailer.SendVerificationEmail(user.Email, verificationToken)
	if err != nil {
		slog.Error("failed to send verification email", "error", err, "email", user.Email)
		return user, ErrEmailDelivery
	}

	slog.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Verify consumes a verification token and flips is_verified exactly once.
// A replayed token maps to ErrAlreadyVerified, not a generic invalid-token
// error: the consumed row stays behind with used_at set.
func (s *AuthService) Verify(tokenValue string) error {
	if tokenValue == "" {
		return validationError(errors.New("verification token is required"))
	}

	token, err := s.tokenRepository.ByToken(tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to look up token: %w", err)
	}

	if token.Type != model.TokenTypeEmailVerify {
		return ErrInvalidToken
	}
	if token.IsUsed() {
		return ErrAlreadyVerified
	}
	if token.IsExpired() {
		return ErrInvalidToken
	}

	_, err = s.tokenRepository.Consume(tokenValue, model.TokenTypeEmailVerify)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			// Lost the consume race: someone else just verified with it.
			return ErrAlreadyVerified
		}
		return fmt.Errorf("failed to consume token: %w", err)
	}

	flipped, err := s.userRepository.SetVerified(token.UserID)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	if !flipped {
		return ErrAlreadyVerified
	}

	slog.Info("email verified", "user_id", token.UserID)
	return nil
}

// Login authenticates by email or username (case-sensitive exact match)
// and returns the user with a signed session token.
func (s *AuthService) Login(identifier, password string) (*model.User, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", validationError(errors.New("identifier and password are required"))
	}

	user, err := s.userRepository.ByEmail(identifier)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.userRepository.ByUsername(identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	err = s.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, "", ErrNotVerified
	}

	jwtToken, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return user, jwtToken, nil
}

// ForgotPassword always reports success so email addresses cannot be
// enumerated. When the account exists a reset token valid for one hour is
// mailed and the cooldown stamp is claimed.
func (s *AuthService) ForgotPassword(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			slog.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now().UTC()
	claimed, err := s.userRepository.ClaimResetSend(user.ID, now, now.Add(-s.resendCooldown))
	if err != nil {
		return fmt.Errorf("failed to claim reset send: %w", err)
	}
	if !claimed {
		// Inside the cooldown window; still report success.
		slog.Info("password reset request suppressed by cooldown", "user_id", user.ID)
		return nil
	}

	err = s.tokenRepository.DeleteUnusedByUserAndType(user.ID, model.TokenTypePasswordReset)
	if err != nil {
		slog.Warn("failed to delete old reset tokens", "error", err, "user_id", user.ID)
	}

	resetToken, err := s.issueToken(user.ID, model.TokenTypePasswordReset, s.resetExpiry)
	if err != nil {
		return err
	}

	err = s.mailer.SendPasswordResetEmail(user.Email, resetToken)
	if err != nil {
		slog.Error("failed to send reset email", "error", err, "email", user.Email)
	}

	return nil
}

// ResetPassword consumes a live reset token and stores a new hash. An
// expired token always fails, even with the correct token string.
func (s *AuthService) ResetPassword(tokenValue, newPassword string) error {
	if tokenValue == "" {
		return validationError(errors.New("reset token is required"))
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return validationError(err)
	}

	// Consumption is scoped to reset tokens so a verification token
	// posted here is rejected without being burned.
	token, err := s.tokenRepository.Consume(tokenValue, model.TokenTypePasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to consume token: %w", err)
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.userRepository.SetPasswordHash(token.UserID, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password reset", "user_id", token.UserID)
	return nil
}

// ResendVerification re-sends the verification link, enforcing a per-email
// cooldown from the persisted last-sent stamp.
func (s *AuthService) ResendVerification(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	now := time.Now().UTC()
	if err := s.checkCooldown(user.LastVerificationEmailSent, now); err != nil {
		return err
	}

	claimed, err := s.userRepository.ClaimVerificationSend(user.ID, now, now.Add(-s.resendCooldown))
	if err != nil {
		return fmt.Errorf("failed to claim verification send: %w", err)
	}
	if !claimed {
		// Lost a concurrent claim race inside the window.
		return &RateLimitError{RetryAfter: int(s.resendCooldown.Seconds())}
	}

	err = s.tokenRepository.DeleteUnusedByUserAndType(user.ID, model.TokenTypeEmailVerify)
	if err != nil {
		slog.Warn("failed to delete old verification tokens", "error", err, "user_id", user.ID)
	}

	verificationToken, err := s.issueToken(user.ID, model.TokenTypeEmailVerify, s.verifyExpiry)
	if err != nil {
		return err
	}

	err = s.mailer.SendVerificationEmail(user.Email, verificationToken)
	if err != nil {
		slog.Error("failed to resend verification email", "error", err, "email", user.Email)
		return ErrEmailDelivery
	}

	return nil
}

// ResendReset re-sends the live reset token. A no-op error when no reset
// is pending; same cooldown as verification resends.
func (s *AuthService) ResendReset(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	live, err := s.tokenRepository.LiveByUserAndType(user.ID, model.TokenTypePasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrNoPendingReset
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.checkCooldown(user.LastResetEmailSent, now); err != nil {
		return err
	}

	claimed, err := s.userRepository.ClaimResetSend(user.ID, now, now.Add(-s.resendCooldown))
	if err != nil {
		return fmt.Errorf("failed to claim reset send: %w", err)
	}
	if !claimed {
		return &RateLimitError{RetryAfter: int(s.resendCooldown.Seconds())}
	}

	err = s.mailer.SendPasswordResetEmail(user.Email, live.Token)
	if err != nil {
		slog.Error("failed to resend reset email", "error", err, "email", user.Email)
		return ErrEmailDelivery
	}

	return nil
}

// UpdateProfile changes username and country, keeping username unique.
func (s *AuthService) UpdateProfile(userID, username, country string) (*model.User, error) {
	username = strings.TrimSpace(username)
	country = strings.TrimSpace(country)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, validationError(err)
	}
	if country == "" {
		return nil, validationError(errors.New("country is required"))
	}

	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if username != user.Username {
		other, err := s.userRepository.ByUsername(username)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, ErrUsernameTaken
		}
	}

	user.Username = username
	user.Country = country

	err = s.userRepository.Update(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// UserByID loads a user for the auth middleware.
func (s *AuthService) UserByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

func (s *AuthService) checkCooldown(lastSent *time.Time, now time.Time) error {
	if lastSent == nil {
		return nil
	}
	elapsed := now.Sub(*lastSent)
	if elapsed >= s.resendCooldown {
		return nil
	}
	remaining := int(math.Ceil((s.resendCooldown - elapsed).Seconds()))
	if remaining < 1 {
		remaining = 1
	}
	return &RateLimitError{RetryAfter: remaining}
}

func (s *AuthService) issueToken(userID, tokenType string, expiry time.Duration) (string, error) {
	value, err := s.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := &model.Token{
		UserID:    userID,
		Type:      tokenType,
		Token:     value,
		ExpiresAt: time.Now().UTC().Add(expiry),
	}
	err = s.tokenRepository.Create(token)
	if err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return value, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.jwtExpiry).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// SetJWTCookie writes the session as an http-only cookie. The cookie is
// the only session transport this API accepts.
func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) JWTExpiry() time.Duration {
	return s.jwtExpiry
}
