package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/splitfair/splitfair/internal/apperr"
	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/metrics"
	"github.com/splitfair/splitfair/internal/models"
	repo "github.com/splitfair/splitfair/internal/repository"
	"github.com/splitfair/splitfair/internal/worker"
)

// SettlementService flips splits to settled. Only the split's owner or the
// expense's payer may settle; repeating a settlement is a no-op success so
// clients can retry safely.
type SettlementService struct {
	splits   repo.Splits
	expenses repo.Expenses
	audits   repo.AuditLogs
	wp       *worker.Pool
}

func NewSettlementService(splits repo.Splits, expenses repo.Expenses, audits repo.AuditLogs, wp *worker.Pool) *SettlementService {
	return &SettlementService{splits: splits, expenses: expenses, audits: audits, wp: wp}
}

func (s *SettlementService) audit(entityID, action string, details map[string]any) {
	id := entityID
	s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.audits.Create(ctx, models.AuditLog{
			EntityType: "settlement",
			EntityID:   &id,
			Action:     action,
			Details:    details,
		})
		if err != nil {
			slog.Warn("audit write failed", "entity", "settlement", "id", id, "err", err)
		}
	})
}

// SettleSplit marks one split paid and returns its final state.
func (s *SettlementService) SettleSplit(ctx context.Context, actor auth.Identity, splitID string) (models.Split, error) {
	sp, err := s.splits.GetByID(ctx, splitID)
	if err != nil {
		return models.Split{}, err
	}
	e, err := s.expenses.GetByID(ctx, sp.ExpenseID)
	if err != nil {
		return models.Split{}, err
	}
	if actor.UserID != sp.UserID && actor.UserID != e.PaidBy {
		return models.Split{}, apperr.Forbidden("only the split owner or the expense payer may settle it")
	}

	changed, err := s.splits.Settle(ctx, splitID, time.Now().UTC())
	if err != nil {
		return models.Split{}, err
	}
	if changed {
		metrics.SettlementsTotal.Inc()
		s.audit(splitID, "settled", map[string]any{"expense_id": sp.ExpenseID, "by": actor.UserID})
	}
	// A lost race or a repeat call lands here with changed=false; the
	// split is settled either way, so re-read and report that state.
	return s.splits.GetByID(ctx, splitID)
}

// SettleExpense settles outstanding splits of the expense in one atomic
// statement. The payer settles every split; a participant settles only
// their own. Returns how many splits changed.
func (s *SettlementService) SettleExpense(ctx context.Context, actor auth.Identity, expenseID string) (int, error) {
	e, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return 0, err
	}

	scope := actor.UserID
	if actor.UserID == e.PaidBy {
		scope = "" // payer settles everyone
	} else {
		splits, err := s.splits.ListByExpense(ctx, expenseID)
		if err != nil {
			return 0, err
		}
		owns := false
		for _, sp := range splits {
			if sp.UserID == actor.UserID {
				owns = true
				break
			}
		}
		if !owns {
			return 0, apperr.Forbidden("only the payer or a participant may settle this expense")
		}
	}

	n, err := s.splits.SettleOutstanding(ctx, expenseID, scope, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SettlementsTotal.Add(float64(n))
		s.audit(expenseID, "expense_settled", map[string]any{"splits": n, "by": actor.UserID})
	}
	return n, nil
}
