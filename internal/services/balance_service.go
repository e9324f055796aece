package services

import (
	"context"

	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/balance"
	"github.com/splitfair/splitfair/internal/models"
	repo "github.com/splitfair/splitfair/internal/repository"
)

type BalanceService struct {
	expenses repo.Expenses
}

func NewBalanceService(expenses repo.Expenses) *BalanceService {
	return &BalanceService{expenses: expenses}
}

// ForUser computes the caller's cross-group balance over every expense they
// touch as payer or participant.
func (s *BalanceService) ForUser(ctx context.Context, actor auth.Identity) (models.Balance, error) {
	expenses, err := s.expenses.ListForUser(ctx, actor.UserID)
	if err != nil {
		return models.Balance{}, err
	}
	b := balance.Compute(expenses)[actor.UserID]
	b.UserID = actor.UserID // present even with no expenses
	return b, nil
}
