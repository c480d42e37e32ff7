package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/crud"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service      *Service
	errs         *httputil.ErrorWriter
	isProduction bool
	cookieTTL    time.Duration
	now          func() time.Time
}

func NewHandler(service *Service, errs *httputil.ErrorWriter, isProduction bool, cookieTTL time.Duration) *Handler {
	return &Handler{
		service:      service,
		errs:         errs,
		isProduction: isProduction,
		cookieTTL:    cookieTTL,
		now:          time.Now,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdatePasswordRequest represents a signed-in password change
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// sendSession sets the session cookie and answers with the token and account.
func (h *Handler) sendSession(w http.ResponseWriter, r *http.Request, s *Session, status int) {
	SetTokenCookie(w, r, s.Token, h.isProduction, h.cookieTTL, h.now())
	httputil.RespondJSON(w, httputil.Envelope{
		Status: "success",
		Token:  s.Token,
		Data:   map[string]any{"user": s.User},
	}, status)
}

// Signup handles user registration
// @Summary      Sign up
// @Description  Create a regular user account and sign it in. A welcome email is sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupInput true "Account details"
// @Success      201 {object} httputil.Envelope
// @Failure      400 {object} httputil.ErrorResponse "Validation error or duplicate email"
// @Router       /api/v1/users/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupInput
	if err := crud.DecodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	session, err := h.service.Signup(r.Context(), req, baseURL(r)+"/me")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	h.sendSession(w, r, session, http.StatusCreated)
}

// Login handles user login
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} httputil.Envelope
// @Failure      400 {object} httputil.ErrorResponse "Missing credentials"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Router       /api/v1/users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := crud.DecodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("login failed", "error", err.Error())
		h.errs.Write(w, r, err)
		return
	}

	h.sendSession(w, r, session, http.StatusOK)
}

// Logout replaces the session cookie with a short-lived sentinel
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Success      200 {object} httputil.Envelope
// @Router       /api/v1/users/logout [get]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearTokenCookie(w, h.now())
	httputil.RespondJSON(w, httputil.Envelope{Status: "success"}, http.StatusOK)
}

// ForgotPassword emails a password reset link
// @Summary      Forgot password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Account email"
// @Success      200 {object} httputil.Envelope
// @Failure      404 {object} httputil.ErrorResponse "No account with that email"
// @Failure      500 {object} httputil.ErrorResponse "Email could not be sent"
// @Router       /api/v1/users/forgotPassword [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := crud.DecodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	resetURL := func(token string) string {
		return fmt.Sprintf("%s/api/v1/users/resetPassword/%s", baseURL(r), token)
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email, resetURL); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httputil.RespondMessage(w, "Token sent to email!", http.StatusOK)
}

// ResetPassword sets a new password from a reset token
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token path string true "Reset token"
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} httputil.Envelope
// @Failure      400 {object} httputil.ErrorResponse "Token is invalid or has expired"
// @Router       /api/v1/users/resetPassword/{token} [patch]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := crud.DecodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	session, err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password, req.PasswordConfirm)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	h.sendSession(w, r, session, http.StatusOK)
}

// UpdatePassword changes the signed-in user's password
// @Summary      Update password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdatePasswordRequest true "Current and new password"
// @Success      200 {object} httputil.Envelope
// @Failure      401 {object} httputil.ErrorResponse "Current password is wrong"
// @Router       /api/v1/users/updateMyPassword [patch]
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, ErrNoToken)
		return
	}

	var req UpdatePasswordRequest
	if err := crud.DecodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if req.PasswordCurrent == "" {
		h.errs.Write(w, r, apperror.Validation("Please provide your current password"))
		return
	}

	session, err := h.service.UpdatePassword(r.Context(), current, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	h.sendSession(w, r, session, http.StatusOK)
}

// Session reports the account behind the session cookie, or null
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200 {object} httputil.Envelope
// @Router       /api/v1/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	u, _ := user.FromContext(r.Context())
	httputil.RespondJSON(w, httputil.Envelope{
		Status: "success",
		Data:   map[string]any{"user": u},
	}, http.StatusOK)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if isSecureRequest(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
