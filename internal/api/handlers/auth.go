package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/splitfair/splitfair/internal/api/httpx"
	"github.com/splitfair/splitfair/internal/api/validate"
	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/models"
	"github.com/splitfair/splitfair/internal/services"
)

type AuthHandler struct {
	tm    *auth.TokenManager
	users *services.UserService
}

func NewAuthHandler(tm *auth.TokenManager, users *services.UserService) *AuthHandler {
	return &AuthHandler{tm: tm, users: users}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResp struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"` // seconds until the access token expires
	User         *models.User `json:"user,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if errs := validate.Collect(
		validate.Required("name", req.Name),
		validate.Required("email", req.Email),
		validate.Required("password", req.Password),
	); errs != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
		return
	}
	u, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	h.writeTokens(w, u.ID, &u)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "refresh_token is required", nil)
		return
	}
	claims, err := h.tm.ParseRefresh(req.RefreshToken)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	h.writeTokens(w, claims.UserID, nil)
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, userID string, u *models.User) {
	access, refresh, exp, err := h.tm.GeneratePair(userID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Seconds()),
		User:         u,
	})
}
