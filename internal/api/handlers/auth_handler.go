package handlers

import (
	"log/slog"
	"net/http"

	"github.com/chatq/assist-backend/internal/services"
)

// AuthHandler serves admin account registration and login.
type AuthHandler struct {
	users *services.UserService
	log   *slog.Logger
}

func NewAuthHandler(users *services.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	token, user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Uniform 401 regardless of which check failed.
		respondJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token, TenantID: user.TenantID, Role: user.Role})
}
