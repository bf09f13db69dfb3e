package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/middleware"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/response"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/validator"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *domain.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *domain.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Title    string `json:"title,omitempty" validate:"max=100"`
	Company  string `json:"company,omitempty" validate:"max=100"`
	Industry string `json:"industry,omitempty" validate:"max=100"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "registration", err)
		return
	}

	result, err := h.authService.Register(r.Context(), domain.RegisterInput{
		Name:     validator.SanitizeString(req.Name, 100),
		Email:    validator.SanitizeEmail(req.Email),
		Password: req.Password,
		Title:    validator.SanitizeString(req.Title, 100),
		Company:  validator.SanitizeString(req.Company, 100),
		Industry: validator.SanitizeString(req.Industry, 100),
	})
	if err != nil {
		writeError(w, h.logger, "registration", err)
		return
	}

	response.Created(w, result)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "login", err)
		return
	}

	result, err := h.authService.Login(r.Context(), validator.SanitizeEmail(req.Email), req.Password)
	if err != nil {
		writeError(w, h.logger, "login", err)
		return
	}

	response.OK(w, result)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "token refresh", err)
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, h.logger, "token refresh", err)
		return
	}

	response.OK(w, result)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	user, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "profile lookup", err)
		return
	}

	response.OK(w, user)
}
