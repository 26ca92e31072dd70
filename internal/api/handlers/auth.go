package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/storynest/backend/internal/api/response"
	"github.com/storynest/backend/internal/auth"
	"github.com/storynest/backend/internal/models"
	"github.com/storynest/backend/internal/repository"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	userRepo   *repository.UserRepository
	jwtService *auth.JWTService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userRepo *repository.UserRepository, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		userRepo:   userRepo,
		jwtService: jwtService,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expires_in"`
	User      *UserResponse `json:"user"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// isValidEmail performs a basic shape check on an email address
func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && len(email) <= 254 && emailPattern.MatchString(email)
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !isValidEmail(req.Email) {
		response.Error(w, http.StatusBadRequest, "invalid_email", "Invalid email address")
		return
	}

	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		response.Error(w, http.StatusBadRequest, "weak_password", err.Error())
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		response.InternalError(w, "Failed to process registration")
		return
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: passwordHash,
	}

	if err := h.userRepo.Create(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			response.Error(w, http.StatusConflict, "email_taken", "An account with this email already exists")
			return
		}
		response.InternalError(w, "Failed to create account")
		return
	}

	h.writeAuthResponse(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.userRepo.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
			return
		}
		response.InternalError(w, "Failed to log in")
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		response.Error(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	h.writeAuthResponse(w, http.StatusOK, user)
}

// Me handles GET /api/v1/user/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), identity.UserKey)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, http.StatusNotFound, "not_found", "User not found")
			return
		}
		response.InternalError(w, "Failed to fetch user")
		return
	}

	response.Success(w, &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// writeAuthResponse issues a token for the user and writes the response
func (h *AuthHandler) writeAuthResponse(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.jwtService.Generate(user.ID, user.Email)
	if err != nil {
		response.InternalError(w, "Failed to issue token")
		return
	}

	response.JSON(w, status, AuthResponse{
		Token:     token,
		ExpiresIn: int64(h.jwtService.GetExpiration().Seconds()),
		User: &UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		},
	})
}
