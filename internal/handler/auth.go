package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/folio-cms/folio/internal/metrics"
	"github.com/folio-cms/folio/internal/server/middleware"
	"github.com/folio-cms/folio/internal/service"
)

// AuthHandler serves the admin session endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Username string `json:"username" validate:"required,max=200"`
	Password string `json:"password" validate:"required,max=200"`
}

type loginUser struct {
	Username  string     `json:"username"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      loginUser `json:"user"`
}

// Login verifies the admin credential and returns a session token.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.auth.VerifyLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			h.logger.Warn("failed login attempt", "username", req.Username, "remote_addr", clientIP(r))
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		writeInternalError(w, r, h.logger, "Login failed", err)
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.logger.Info("admin logged in", "username", res.Username)
	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Message:   "Login successful",
		Token:     res.Token,
		TokenType: "bearer",
		ExpiresAt: res.ExpiresAt,
		User:      loginUser{Username: res.Username, LastLogin: res.LastLogin},
	})
}

// Verify reports the identity behind a valid token.
// GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"username":   p.Username,
		"expires_at": p.ExpiresAt,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=200"`
	NewPassword     string `json:"new_password" validate:"required,max=200"`
}

// ChangePassword replaces the admin password.
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req changePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.auth.ChangePassword(r.Context(), p, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrWrongPassword):
		writeError(w, http.StatusBadRequest, "Current password is incorrect",
			map[string]string{"current_password": "current password is incorrect"})
		return
	case errors.Is(err, service.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "New password is too short",
			map[string]string{"new_password": err.Error()})
		return
	case errors.Is(err, service.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, "New password is too long",
			map[string]string{"new_password": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "User not found")
		return
	default:
		writeInternalError(w, r, h.logger, "Failed to change password", err)
		return
	}

	h.logger.Info("admin password changed", "username", p.Username)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password changed successfully",
	})
}

// Logout revokes the token used for this request.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := h.auth.Logout(r.Context(), p); err != nil {
		writeInternalError(w, r, h.logger, "Failed to log out", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}
