package handlers

import (
	"errors"
	"net/http"

	"storefront-backend/internal/auth"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

type AuthHandler struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
}

func NewAuthHandler(users repository.UserRepository, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "invalid_input", "password must be at least 6 characters", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to register", nil)
		return
	}

	user := models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
		Phone:        req.Phone,
		Address:      req.Address,
	}

	if err := h.users.Create(r.Context(), &user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserExists):
			writeError(w, http.StatusConflict, "user_exists", "email already registered", nil)
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to register", nil)
		}
		return
	}

	token, err := h.tokens.Issue(user.UserID, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: &user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_credentials", "invalid credentials", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to log in", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_credentials", "invalid credentials", nil)
		return
	}

	token, err := h.tokens.Issue(user.UserID, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}
