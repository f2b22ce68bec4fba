package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skyreport/skyreport/internal/model"
	"github.com/skyreport/skyreport/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) ByID(id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ByEmail(email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) ByUsername(username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Update(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID != user.ID && u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) SetVerified(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.IsVerified {
		return false, nil
	}
	u.IsVerified = true
	return true, nil
}

func (r *fakeUserRepo) SetPasswordHash(id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) ClaimVerificationSend(id string, now, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	if u.LastVerificationEmailSent != nil && u.LastVerificationEmailSent.After(cutoff) {
		return false, nil
	}
	stamp := now
	u.LastVerificationEmailSent = &stamp
	return true, nil
}

func (r *fakeUserRepo) ClaimResetSend(id string, now, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	if u.LastResetEmailSent != nil && u.LastResetEmailSent.After(cutoff) {
		return false, nil
	}
	stamp := now
	u.LastResetEmailSent = &stamp
	return true, nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.Token)}
}

func (r *fakeTokenRepo) Create(token *model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeTokenRepo) ByToken(token string) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	return t, nil
}

func (r *fakeTokenRepo) Consume(token, tokenType string) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.Type != tokenType || t.IsUsed() || t.IsExpired() {
		return nil, repository.ErrTokenNotFound
	}
	now := time.Now().UTC()
	t.UsedAt = &now
	return t, nil
}

func (r *fakeTokenRepo) LiveByUserAndType(userID, tokenType string) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *model.Token
	for _, t := range r.tokens {
		if t.UserID != userID || t.Type != tokenType || t.IsUsed() || t.IsExpired() {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) {
			newest = t
		}
	}
	if newest == nil {
		return nil, repository.ErrTokenNotFound
	}
	return newest, nil
}

func (r *fakeTokenRepo) DeleteUnusedByUserAndType(userID, tokenType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, t := range r.tokens {
		if t.UserID == userID && t.Type == tokenType && !t.IsUsed() {
			delete(r.tokens, key)
		}
	}
	return nil
}

type fakeMailer struct {
	mu                 sync.Mutex
	verificationTokens []string
	resetTokens        []string
	failVerification   bool
	failReset          bool
}

func (m *fakeMailer) SendVerificationEmail(to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failVerification {
		return errors.New("smtp unavailable")
	}
	m.verificationTokens = append(m.verificationTokens, token)
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReset {
		return errors.New("smtp unavailable")
	}
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

func (m *fakeMailer) lastVerificationToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.verificationTokens) == 0 {
		return ""
	}
	return m.verificationTokens[len(m.verificationTokens)-1]
}

func (m *fakeMailer) lastResetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetTokens) == 0 {
		return ""
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

func newTestAuthService() (*AuthService, *fakeUserRepo, *fakeTokenRepo, *fakeMailer) {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	mailer := &fakeMailer{}
	svc := NewAuthService(
		users, tokens, mailer,
		"test-secret", false,
		168*time.Hour, 24*time.Hour, time.Hour, 60*time.Second,
	)
	return svc, users, tokens, mailer
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	user, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.False(t, user.IsVerified)
	require.Len(t, mailer.verificationTokens, 1)

	// Login before verification is refused
	_, _, err = svc.Login("alice@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrNotVerified)

	err = svc.Verify(mailer.lastVerificationToken())
	require.NoError(t, err)

	logged, jwtToken, err := svc.Login("alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	require.NotEmpty(t, jwtToken)

	claims, err := svc.VerifyJWT(jwtToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, "alice", claims["username"])
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestAuthService()

	cases := []struct {
		name     string
		username string
		email    string
		password string
		country  string
	}{
		{"short username", "al", "alice@example.com", "hunter22", "Iceland"},
		{"bad email", "alice", "not-an-email", "hunter22", "Iceland"},
		{"short password", "alice", "alice@example.com", "12345", "Iceland"},
		{"missing country", "alice", "alice@example.com", "hunter22", "  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(tc.username, tc.email, tc.password, tc.country)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)

	// Same email while still unverified points at the resend flow
	_, err = svc.Register("alice2", "alice@example.com", "hunter22", "Iceland")
	assert.ErrorIs(t, err, ErrUnverifiedExists)

	err = svc.Verify(mailer.lastVerificationToken())
	require.NoError(t, err)

	_, err = svc.Register("alice2", "alice@example.com", "hunter22", "Iceland")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register("alice", "other@example.com", "hunter22", "Iceland")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterEmailDeliveryFailure(t *testing.T) {
	svc, users, _, mailer := newTestAuthService()
	mailer.failVerification = true

	user, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	assert.ErrorIs(t, err, ErrEmailDelivery)
	require.NotNil(t, user)

	// Account survives the failed send
	stored, err := users.ByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
}

func TestVerifyExactlyOnce(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	token := mailer.lastVerificationToken()

	require.NoError(t, svc.Verify(token))

	// Replayed link is distinguishable from a bogus one
	err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	err = svc.Verify("deadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	svc, users, tokens, _ := newTestAuthService()

	user := &model.User{ID: uuid.New().String(), Username: "bob", Email: "bob@example.com"}
	require.NoError(t, users.Create(user))

	expired := &model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeEmailVerify,
		Token:     "expired-token",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, tokens.Create(expired))

	err := svc.Verify("expired-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	stored, err := users.ByID(user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
}

func TestLoginByUsername(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))

	user, _, err := svc.Login("alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))

	_, _, err = svc.Login("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	// Enumeration-safe: unknown address still reports success
	err := svc.ForgotPassword("nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, mailer.resetTokens)
}

func TestResetPasswordFlow(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))

	require.NoError(t, svc.ForgotPassword("alice@example.com"))
	resetToken := mailer.lastResetToken()
	require.NotEmpty(t, resetToken)

	require.NoError(t, svc.ResetPassword(resetToken, "new-password"))

	_, _, err = svc.Login("alice", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("alice", "new-password")
	require.NoError(t, err)

	// The consumed token cannot be replayed
	err = svc.ResetPassword(resetToken, "another-password")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestForgotPasswordSuppressedInsideCooldown(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))

	require.NoError(t, svc.ForgotPassword("alice@example.com"))
	firstToken := mailer.lastResetToken()

	// A repeat inside the window still reports success but sends
	// nothing and keeps the first token live
	require.NoError(t, svc.ForgotPassword("alice@example.com"))
	require.Len(t, mailer.resetTokens, 1)

	require.NoError(t, svc.ResetPassword(firstToken, "new-password"))
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, users, tokens, _ := newTestAuthService()

	user := &model.User{ID: uuid.New().String(), Username: "bob", Email: "bob@example.com", IsVerified: true}
	require.NoError(t, users.Create(user))

	expired := &model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypePasswordReset,
		Token:     "stale-reset",
		ExpiresAt: time.Now().UTC().Add(-time.Second),
	}
	require.NoError(t, tokens.Create(expired))

	err := svc.ResetPassword("stale-reset", "new-password")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetPasswordRejectsVerificationTokenWithoutBurningIt(t *testing.T) {
	svc, users, _, mailer := newTestAuthService()

	user, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	verifyToken := mailer.lastVerificationToken()

	// A verification token posted to reset-password is refused
	err = svc.ResetPassword(verifyToken, "new-password")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// and stays live: the verification link still works afterwards
	require.NoError(t, svc.Verify(verifyToken))
	stored, err := users.ByID(user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	// The password was never touched
	_, _, err = svc.Login("alice", "hunter22")
	require.NoError(t, err)
}

func TestVerifyRejectsResetTokenWithoutBurningIt(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))
	require.NoError(t, svc.ForgotPassword("alice@example.com"))
	resetToken := mailer.lastResetToken()

	// A reset token posted to verify is refused
	err = svc.Verify(resetToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// and still resets the password afterwards
	require.NoError(t, svc.ResetPassword(resetToken, "new-password"))
	_, _, err = svc.Login("alice", "new-password")
	require.NoError(t, err)
}

func TestResendVerificationCooldown(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	// Register stamps the cooldown, so an immediate resend is refused
	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)

	err = svc.ResendVerification("alice@example.com")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Greater(t, rateErr.RetryAfter, 0)
	assert.LessOrEqual(t, rateErr.RetryAfter, 60)
	require.Len(t, mailer.verificationTokens, 1)
}

func TestResendVerificationAfterCooldown(t *testing.T) {
	svc, users, _, mailer := newTestAuthService()

	user, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	firstToken := mailer.lastVerificationToken()

	// Age the stamp past the window
	stored, err := users.ByID(user.ID)
	require.NoError(t, err)
	old := time.Now().UTC().Add(-2 * time.Minute)
	stored.LastVerificationEmailSent = &old

	require.NoError(t, svc.ResendVerification("alice@example.com"))
	require.Len(t, mailer.verificationTokens, 2)

	// The first link is dead; only the replacement verifies
	err = svc.Verify(firstToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))
}

func TestResendVerificationErrors(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	err := svc.ResendVerification("nobody@example.com")
	assert.ErrorIs(t, err, ErrEmailNotFound)

	_, err = svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))

	err = svc.ResendVerification("alice@example.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestResendResetRequiresPendingReset(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	_, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))

	err = svc.ResendReset("alice@example.com")
	assert.ErrorIs(t, err, ErrNoPendingReset)
}

func TestResendResetReusesLiveToken(t *testing.T) {
	svc, users, _, mailer := newTestAuthService()

	user, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))
	require.NoError(t, svc.ForgotPassword("alice@example.com"))
	firstToken := mailer.lastResetToken()

	stored, err := users.ByID(user.ID)
	require.NoError(t, err)
	old := time.Now().UTC().Add(-2 * time.Minute)
	stored.LastResetEmailSent = &old

	require.NoError(t, svc.ResendReset("alice@example.com"))
	require.Len(t, mailer.resetTokens, 2)
	assert.Equal(t, firstToken, mailer.lastResetToken())
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _, mailer := newTestAuthService()

	user, err := svc.Register("alice", "alice@example.com", "hunter22", "Iceland")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(mailer.lastVerificationToken()))

	updated, err := svc.UpdateProfile(user.ID, "alice-r", "Norway")
	require.NoError(t, err)
	assert.Equal(t, "alice-r", updated.Username)
	assert.Equal(t, "Norway", updated.Country)

	_, err = svc.Register("bob", "bob@example.com", "hunter22", "Iceland")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(user.ID, "bob", "Norway")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
