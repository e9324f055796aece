package repository

import (
	"context"
	"time"

	"github.com/splitfair/splitfair/internal/models"
)

type Users interface {
	Create(ctx context.Context, name, email, passwordHash string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type Groups interface {
	// Create inserts the group and its creator's admin membership in one
	// transaction.
	Create(ctx context.Context, g models.Group) (models.Group, error)
	GetByID(ctx context.Context, id string) (models.Group, error)
	ListForUser(ctx context.Context, userID string) ([]models.Group, error)
	Update(ctx context.Context, g models.Group) (models.Group, error)
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, groupID, userID string, role models.MemberRole) (models.GroupMember, error)
	RemoveMember(ctx context.Context, groupID, userID string) error
	GetMember(ctx context.Context, groupID, userID string) (models.GroupMember, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
}

type Expenses interface {
	// CreateWithSplits inserts the expense and all of its splits in a single
	// serializable transaction; either everything lands or nothing does.
	CreateWithSplits(ctx context.Context, e models.Expense, splits []models.Split) (models.ExpenseWithSplits, error)
	GetByID(ctx context.Context, id string) (models.Expense, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.ExpenseWithSplits, error)
	ListByCreator(ctx context.Context, userID string) ([]models.Expense, error)
	// ListForUser returns every expense the user touches as payer or split
	// owner, with splits, for cross-group balance views.
	ListForUser(ctx context.Context, userID string) ([]models.ExpenseWithSplits, error)
	UpdateDescription(ctx context.Context, id, description string) (models.Expense, error)
	// ReplaceSplits updates amount, split type, and description and swaps
	// every split, atomically. It fails with a conflict if any existing
	// split is already settled.
	ReplaceSplits(ctx context.Context, e models.Expense, splits []models.Split) (models.ExpenseWithSplits, error)
	Delete(ctx context.Context, id string) error
}

type Splits interface {
	GetByID(ctx context.Context, id string) (models.Split, error)
	ListByExpense(ctx context.Context, expenseID string) ([]models.Split, error)
	// Settle flips is_settled in a conditional update; it reports false,
	// without error, when the split was already settled.
	Settle(ctx context.Context, id string, at time.Time) (bool, error)
	// SettleOutstanding settles every unsettled split of the expense in one
	// statement, scoped to one owner when userID is non-empty. Returns the
	// number of splits that changed.
	SettleOutstanding(ctx context.Context, expenseID, userID string, at time.Time) (int, error)
	AnySettled(ctx context.Context, expenseID string) (bool, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
