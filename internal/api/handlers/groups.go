package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splitfair/splitfair/internal/api/httpx"
	"github.com/splitfair/splitfair/internal/api/validate"
	"github.com/splitfair/splitfair/internal/services"
)

type GroupHandler struct {
	groups *services.GroupService
}

func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type groupReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type addMemberReq struct {
	UserID string `json:"user_id"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req groupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	g, err := h.groups.Create(r.Context(), identity(r), req.Name, req.Description)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, g)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	gs, err := h.groups.List(r.Context(), identity(r))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gs)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, g)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req groupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	g, err := h.groups.Update(r.Context(), identity(r), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, g)
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if ef := validate.UUID("user_id", req.UserID); ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", ef.Msg, ef)
		return
	}
	m, err := h.groups.AddMember(r.Context(), identity(r), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.groups.RemoveMember(r.Context(), identity(r), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ms, err := h.groups.ListMembers(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ms)
}

func (h *GroupHandler) Balances(w http.ResponseWriter, r *http.Request) {
	bs, err := h.groups.Balances(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bs)
}
