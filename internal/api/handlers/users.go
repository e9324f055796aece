package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splitfair/splitfair/internal/api/httpx"
	"github.com/splitfair/splitfair/internal/api/validate"
	"github.com/splitfair/splitfair/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), identity(r).UserID)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if ef := validate.UUID("id", id); ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", ef.Msg, ef)
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
