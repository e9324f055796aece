package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splitfair/splitfair/internal/api/httpx"
	"github.com/splitfair/splitfair/internal/api/validate"
	"github.com/splitfair/splitfair/internal/money"
	"github.com/splitfair/splitfair/internal/services"
	"github.com/splitfair/splitfair/internal/split"
)

type ExpenseHandler struct {
	expenses    *services.ExpenseService
	settlements *services.SettlementService
}

func NewExpenseHandler(expenses *services.ExpenseService, settlements *services.SettlementService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, settlements: settlements}
}

// splitReq is one participant's entry. Percentage is a scale-2 decimal
// ("33.33"); it and Amount reuse the exact Money parser, so floats never
// touch the wire values.
type splitReq struct {
	UserID     string       `json:"user_id"`
	Percentage *money.Money `json:"percentage,omitempty"`
	Amount     *money.Money `json:"amount,omitempty"`
}

type createExpenseReq struct {
	GroupID     string      `json:"group_id"`
	Description string      `json:"description"`
	Amount      money.Money `json:"amount"`
	PaidBy      string      `json:"paid_by"`
	SplitType   string      `json:"split_type"`
	Splits      []splitReq  `json:"splits"`
}

type updateExpenseReq struct {
	Description *string      `json:"description"`
	Amount      *money.Money `json:"amount"`
	SplitType   *string      `json:"split_type"`
	Splits      []splitReq   `json:"splits"`
}

func toEntries(reqs []splitReq) []split.Entry {
	if reqs == nil {
		return nil
	}
	entries := make([]split.Entry, len(reqs))
	for i, sr := range reqs {
		e := split.Entry{UserID: sr.UserID}
		if sr.Percentage != nil {
			e.PercentBP = sr.Percentage.MinorUnits()
		}
		if sr.Amount != nil {
			e.Amount = *sr.Amount
		}
		entries[i] = e
	}
	return entries
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createExpenseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if errs := validate.Collect(
		validate.Required("description", req.Description),
		validate.UUID("group_id", req.GroupID),
		validate.UUID("paid_by", req.PaidBy),
	); errs != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
		return
	}
	typ, err := split.ParseType(req.SplitType)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	created, err := h.expenses.Create(r.Context(), identity(r), services.CreateExpenseInput{
		GroupID:      req.GroupID,
		Description:  req.Description,
		Amount:       req.Amount,
		PaidBy:       req.PaidBy,
		SplitType:    typ,
		Participants: toEntries(req.Splits),
	})
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

// List returns the group's expenses when ?group_id= is given (member
// only), otherwise the caller's own expenses across groups.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	if groupID := r.URL.Query().Get("group_id"); groupID != "" {
		es, err := h.expenses.ListByGroup(r.Context(), identity(r), groupID)
		if err != nil {
			httpx.WriteAppError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, es)
		return
	}
	es, err := h.expenses.ListOwn(r.Context(), identity(r))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, es)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.expenses.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateExpenseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	in := services.UpdateExpenseInput{
		Description:  req.Description,
		Amount:       req.Amount,
		Participants: toEntries(req.Splits),
	}
	if req.SplitType != nil {
		typ, err := split.ParseType(*req.SplitType)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		in.SplitType = &typ
	}
	updated, err := h.expenses.Update(r.Context(), identity(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.expenses.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpenseHandler) Splits(w http.ResponseWriter, r *http.Request) {
	splits, err := h.expenses.Splits(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, splits)
}

// Settle marks outstanding splits of an expense paid: all of them when the
// caller is the payer, the caller's own otherwise.
func (h *ExpenseHandler) Settle(w http.ResponseWriter, r *http.Request) {
	n, err := h.settlements.SettleExpense(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"settled": n})
}

// SettleSplit settles one split; repeating the call is a no-op success.
func (h *ExpenseHandler) SettleSplit(w http.ResponseWriter, r *http.Request) {
	sp, err := h.settlements.SettleSplit(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sp)
}
