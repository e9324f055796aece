package handlers

import (
	"net/http"

	"github.com/splitfair/splitfair/internal/api/httpx"
	"github.com/splitfair/splitfair/internal/services"
)

type BalanceHandler struct {
	balances *services.BalanceService
}

func NewBalanceHandler(balances *services.BalanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

// Me reports the caller's position across every group: total paid, total
// owed, and the net of the two.
func (h *BalanceHandler) Me(w http.ResponseWriter, r *http.Request) {
	b, err := h.balances.ForUser(r.Context(), identity(r))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}
