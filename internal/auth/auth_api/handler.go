package auth_api

import (
	"errors"
	"fmt"
	"net/http"

	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/utils"
)

type Handler struct {
	AuthService *auth.Service
	Validator   *utils.Validator
	Logger      *logger.Logger
}

func NewHandler(svc *auth.Service, v *utils.Validator, log *logger.Logger) *Handler {
	return &Handler{AuthService: svc, Validator: v, Logger: log}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		utils.WriteMessage(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		utils.WriteMessage(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Login: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error during login.")
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.LoginResponse{Token: token})
}

// StreamToken hands the signed-in admin a short-lived token for opening the
// purchase feed with EventSource, which cannot send an Authorization header.
func (h *Handler) StreamToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.AuthService.Tokens.IssueStreamToken(auth.UserID(r.Context()), auth.Username(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StreamToken: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error.")
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.StreamTokenResponse{
		Token:     token,
		ExpiresIn: int(auth.StreamTokenTTL.Seconds()),
	})
}
