package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/splitfair/splitfair/internal/apperr"
	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/metrics"
	"github.com/splitfair/splitfair/internal/models"
	"github.com/splitfair/splitfair/internal/money"
	repo "github.com/splitfair/splitfair/internal/repository"
	"github.com/splitfair/splitfair/internal/split"
	"github.com/splitfair/splitfair/internal/worker"
)

type ExpenseService struct {
	expenses repo.Expenses
	splits   repo.Splits
	groups   repo.Groups
	audits   repo.AuditLogs
	wp       *worker.Pool
}

func NewExpenseService(expenses repo.Expenses, splits repo.Splits, groups repo.Groups, audits repo.AuditLogs, wp *worker.Pool) *ExpenseService {
	return &ExpenseService{expenses: expenses, splits: splits, groups: groups, audits: audits, wp: wp}
}

type CreateExpenseInput struct {
	GroupID     string
	Description string
	Amount      money.Money
	PaidBy      string
	SplitType   split.Type
	// Participants, in request order. Order matters: rounding remainders go
	// to the earliest entries.
	Participants []split.Entry
}

type UpdateExpenseInput struct {
	Description  *string
	Amount       *money.Money
	SplitType    *split.Type
	Participants []split.Entry
}

// audit records a mutation off the request path; failures are logged, never
// surfaced.
func (s *ExpenseService) audit(entityType, entityID, action string, details map[string]any) {
	id := entityID
	s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.audits.Create(ctx, models.AuditLog{
			EntityType: entityType,
			EntityID:   &id,
			Action:     action,
			Details:    details,
		})
		if err != nil {
			slog.Warn("audit write failed", "entity", entityType, "id", id, "err", err)
		}
	})
}

// computeShares runs the pure engine and translates its errors into the
// boundary taxonomy.
func computeShares(total money.Money, typ split.Type, entries []split.Entry) ([]models.Split, error) {
	shares, err := split.Compute(total, typ, entries)
	if err != nil {
		metrics.SplitErrors.Inc()
		return nil, apperr.Validation(err.Error())
	}
	out := make([]models.Split, len(shares))
	for i, sh := range shares {
		out[i] = models.Split{UserID: sh.UserID, Amount: sh.Amount}
	}
	return out, nil
}

func (s *ExpenseService) requireGroupMember(ctx context.Context, groupID, userID, who string) error {
	if _, err := s.groups.GetMember(ctx, groupID, userID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.Forbidden(who + " is not a member of this group")
		}
		return err
	}
	return nil
}

func (s *ExpenseService) Create(ctx context.Context, actor auth.Identity, in CreateExpenseInput) (models.ExpenseWithSplits, error) {
	if err := s.requireGroupMember(ctx, in.GroupID, actor.UserID, "caller"); err != nil {
		return models.ExpenseWithSplits{}, err
	}
	if in.PaidBy != actor.UserID {
		if err := s.requireGroupMember(ctx, in.GroupID, in.PaidBy, "payer"); err != nil {
			return models.ExpenseWithSplits{}, err
		}
	}

	shares, err := computeShares(in.Amount, in.SplitType, in.Participants)
	if err != nil {
		return models.ExpenseWithSplits{}, err
	}
	created, err := s.expenses.CreateWithSplits(ctx, models.Expense{
		GroupID:     in.GroupID,
		Description: in.Description,
		Amount:      in.Amount,
		PaidBy:      in.PaidBy,
		SplitType:   in.SplitType,
		CreatedBy:   actor.UserID,
	}, shares)
	if err != nil {
		return models.ExpenseWithSplits{}, err
	}

	metrics.ExpensesCreated.WithLabelValues(string(in.SplitType)).Inc()
	s.audit("expense", created.ID, "created", map[string]any{
		"amount": created.Amount.String(), "split_type": string(created.SplitType), "by": actor.UserID,
	})
	return created, nil
}

func (s *ExpenseService) Get(ctx context.Context, actor auth.Identity, id string) (models.Expense, error) {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return models.Expense{}, err
	}
	if err := s.requireGroupMember(ctx, e.GroupID, actor.UserID, "caller"); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// ListByGroup returns the group's expenses with splits, member-only.
func (s *ExpenseService) ListByGroup(ctx context.Context, actor auth.Identity, groupID string) ([]models.ExpenseWithSplits, error) {
	if err := s.requireGroupMember(ctx, groupID, actor.UserID, "caller"); err != nil {
		return nil, err
	}
	return s.expenses.ListByGroup(ctx, groupID)
}

// ListOwn returns the expenses the caller created, across groups.
func (s *ExpenseService) ListOwn(ctx context.Context, actor auth.Identity) ([]models.Expense, error) {
	return s.expenses.ListByCreator(ctx, actor.UserID)
}

func (s *ExpenseService) Splits(ctx context.Context, actor auth.Identity, expenseID string) ([]models.Split, error) {
	if _, err := s.Get(ctx, actor, expenseID); err != nil {
		return nil, err
	}
	return s.splits.ListByExpense(ctx, expenseID)
}

// Update edits an expense. Description-only edits leave splits untouched.
// Changing the amount, split type, or participant set regenerates every
// split, which the store refuses once any split is settled.
func (s *ExpenseService) Update(ctx context.Context, actor auth.Identity, id string, in UpdateExpenseInput) (models.ExpenseWithSplits, error) {
	current, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return models.ExpenseWithSplits{}, err
	}
	if actor.UserID != current.CreatedBy && actor.UserID != current.PaidBy {
		return models.ExpenseWithSplits{}, apperr.Forbidden("only the creator or payer may edit an expense")
	}

	descriptionOnly := in.Amount == nil && in.SplitType == nil && in.Participants == nil
	if descriptionOnly {
		if in.Description == nil {
			return models.ExpenseWithSplits{}, apperr.Validation("nothing to update")
		}
		updated, err := s.expenses.UpdateDescription(ctx, id, *in.Description)
		if err != nil {
			return models.ExpenseWithSplits{}, err
		}
		splits, err := s.splits.ListByExpense(ctx, id)
		if err != nil {
			return models.ExpenseWithSplits{}, err
		}
		s.audit("expense", id, "updated", map[string]any{"fields": "description", "by": actor.UserID})
		return models.ExpenseWithSplits{Expense: updated, Splits: splits}, nil
	}

	next := current
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Amount != nil {
		next.Amount = *in.Amount
	}
	if in.SplitType != nil {
		next.SplitType = *in.SplitType
	}
	entries := in.Participants
	if entries == nil {
		// Keep the current participant set; only valid for equal splits,
		// where entries carry no per-user inputs.
		if next.SplitType != split.TypeEqual {
			return models.ExpenseWithSplits{}, apperr.Validation("participants are required for percentage and fixed splits")
		}
		existing, err := s.splits.ListByExpense(ctx, id)
		if err != nil {
			return models.ExpenseWithSplits{}, err
		}
		for _, sp := range existing {
			entries = append(entries, split.Entry{UserID: sp.UserID})
		}
	}

	shares, err := computeShares(next.Amount, next.SplitType, entries)
	if err != nil {
		return models.ExpenseWithSplits{}, err
	}
	updated, err := s.expenses.ReplaceSplits(ctx, next, shares)
	if err != nil {
		return models.ExpenseWithSplits{}, err
	}
	s.audit("expense", id, "updated", map[string]any{
		"amount": updated.Amount.String(), "split_type": string(updated.SplitType), "by": actor.UserID,
	})
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actor.UserID != e.CreatedBy && actor.UserID != e.PaidBy {
		return apperr.Forbidden("only the creator or payer may delete an expense")
	}
	if err := s.expenses.Delete(ctx, id); err != nil {
		return err
	}
	s.audit("expense", id, "deleted", map[string]any{"by": actor.UserID})
	return nil
}
