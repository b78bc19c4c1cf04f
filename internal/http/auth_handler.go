package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/validation"
)

const defaultAuthRedirect = "/catalog"

type AuthHandler struct {
	workspaces Workspaces
	logger     *slog.Logger
}

func NewAuthHandler(workspaces Workspaces, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{workspaces: workspaces, logger: logger}
}

type SignUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User          domain.User `json:"user"`
	Authenticated bool        `json:"authenticated"`
	Redirect      string      `json:"redirect,omitempty"`
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces, h.logger)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{
		User:          ws.User.User(),
		Authenticated: ws.User.IsAuthenticated(),
	})
}

// SignUp handles POST /api/v1/auth/signup. The new user replaces whatever
// occupied the client's slot and is signed in right away.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	errs := validation.Validate(validation.SignUpSchema, validation.Fields{
		"name":            req.Name,
		"email":           req.Email,
		"password":        req.Password,
		"confirmPassword": req.ConfirmPassword,
	})
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	ws, ok := workspace(w, r, h.workspaces, h.logger)
	if !ok {
		return
	}

	user := domain.User{Name: strings.TrimSpace(req.Name), Email: req.Email}
	if err := ws.User.AddToUser(r.Context(), user); err != nil {
		respondStoreError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user signed up", slog.String("client_id", ws.ClientID))
	respondJSON(w, http.StatusCreated, AuthResponse{
		User:          ws.User.User(),
		Authenticated: true,
		Redirect:      redirectTarget(r),
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	errs := validation.Validate(validation.SignInSchema, validation.Fields{
		"email":    req.Email,
		"password": req.Password,
	})
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	ws, ok := workspace(w, r, h.workspaces, h.logger)
	if !ok {
		return
	}

	result, err := ws.User.Login(r.Context(), req.Email)
	if err != nil {
		respondStoreError(w, r, h.logger, err)
		return
	}
	if !result.Success {
		respondError(w, http.StatusUnauthorized, "login_failed", result.Reason)
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{
		User:          ws.User.User(),
		Authenticated: true,
		Redirect:      redirectTarget(r),
	})
}

// redirectTarget reads ?redirect= and only allows local paths.
func redirectTarget(r *http.Request) string {
	target := r.URL.Query().Get("redirect")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return defaultAuthRedirect
	}
	return target
}
