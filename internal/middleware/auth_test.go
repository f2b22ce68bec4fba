package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skyreport/skyreport/internal/ctxkeys"
	"github.com/skyreport/skyreport/internal/model"
	"github.com/skyreport/skyreport/internal/repository"
	"github.com/skyreport/skyreport/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUserRepo serves a single user by ID; the auth middleware only reads.
type stubUserRepo struct {
	user *model.User
}

func (r *stubUserRepo) Create(*model.User) error { return nil }
func (r *stubUserRepo) ByID(id string) (*model.User, error) {
	if r.user != nil && r.user.ID == id {
		u := *r.user
		return &u, nil
	}
	return nil, repository.ErrUserNotFound
}
func (r *stubUserRepo) ByEmail(string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}
func (r *stubUserRepo) ByUsername(string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}
func (r *stubUserRepo) Update(*model.User) error          { return nil }
func (r *stubUserRepo) SetVerified(string) (bool, error)  { return false, nil }
func (r *stubUserRepo) SetPasswordHash(_, _ string) error { return nil }
func (r *stubUserRepo) ClaimVerificationSend(string, time.Time, time.Time) (bool, error) {
	return false, nil
}
func (r *stubUserRepo) ClaimResetSend(string, time.Time, time.Time) (bool, error) {
	return false, nil
}

func newStubAuthService(user *model.User) *service.AuthService {
	return service.NewAuthService(
		&stubUserRepo{user: user}, nil, nil,
		"test-secret", false,
		time.Hour, time.Hour, time.Hour, time.Minute,
	)
}

func TestAuthMiddlewarePopulatesContext(t *testing.T) {
	user := &model.User{ID: "u-1", Username: "alice", Email: "alice@example.com", IsVerified: true, PasswordHash: "secret"}
	authService := newStubAuthService(user)

	token, err := authService.GenerateJWT(user)
	require.NoError(t, err)

	var seen *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.User(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})

	AuthMiddleware(authService)(next).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, "u-1", seen.ID)
	assert.Empty(t, seen.PasswordHash)
}

func TestAuthMiddlewareClearsBadCookie(t *testing.T) {
	authService := newStubAuthService(nil)

	var seen *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.User(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "garbage"})
	rec := httptest.NewRecorder()

	AuthMiddleware(authService)(next).ServeHTTP(rec, req)

	assert.Nil(t, seen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req = req.WithContext(ctxkeys.WithUser(req.Context(), &model.User{ID: "u-1"}))
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	Chain(final, mw("first"), mw("second")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
