package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/skyreport/skyreport/internal/ctxkeys"
	"github.com/skyreport/skyreport/internal/service"
)

// AuthHandler handles HTTP requests for the account lifecycle.
type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

// HandleRegister handles POST /register requests.
// A failed verification email still yields 201: the account exists, the
// caller just has to request a resend.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Register(req.Username, req.Email, req.Password, req.Country)
	if err != nil {
		if errors.Is(err, service.ErrEmailDelivery) {
			writeJSON(w, http.StatusCreated, map[string]any{
				"message":        "account created, but the verification email could not be sent; please request a resend",
				"emailDelivered": false,
				"user":           user,
			})
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":        "account created, check your email to verify your address",
		"emailDelivered": true,
		"user":           user,
	})
}

// HandleVerify handles GET /verify?token= requests.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("token is required"))
		return
	}

	err := h.service.Verify(token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified, you can now log in"})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// HandleLogin handles POST /login requests. The identifier may be an
// email address or a username.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.service.Login(req.Identifier, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.service.SetJWTCookie(w, token, time.Now().Add(h.service.JWTExpiry()))
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleLogout handles POST /logout requests. Sessions are stateless so
// this only clears the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.service.ClearJWTCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type emailRequest struct {
	Email string `json:"email"`
}

// HandleForgotPassword handles POST /forgot-password requests. Always
// answers 200 so the endpoint cannot be used to probe for accounts.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.service.ForgotPassword(req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if that email is registered, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleResetPassword handles POST /reset-password requests.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.service.ResetPassword(req.Token, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated, you can now log in"})
}

// HandleResendVerification handles POST /resend-verification requests.
func (h *AuthHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.service.ResendVerification(req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "verification email sent"})
}

// HandleResendReset handles POST /resend-reset requests.
func (h *AuthHandler) HandleResendReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.service.ResendReset(req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "reset email sent"})
}

// HandleProfile handles GET /profile requests.
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Country  string `json:"country"`
}

// HandleUpdateProfile handles PUT /profile requests.
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.UpdateProfile(user.ID, req.Username, req.Country)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	updated.PasswordHash = ""
	writeJSON(w, http.StatusOK, map[string]any{"user": updated})
}
