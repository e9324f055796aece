package services

import (
	"context"
	"sync"
	"testing"

	"github.com/splitfair/splitfair/internal/apperr"
	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/models"
	"github.com/splitfair/splitfair/internal/money"
	"github.com/splitfair/splitfair/internal/split"
	"github.com/splitfair/splitfair/internal/worker"
)

// settleOnRead settles one split right after the first expense read,
// modeling a settlement racing an in-flight update.
type settleOnRead struct {
	*fakeStore
	splitID string
	once    sync.Once
}

func (s *settleOnRead) GetByID(ctx context.Context, id string) (models.Expense, error) {
	e, err := s.fakeStore.GetByID(ctx, id)
	s.once.Do(func() {
		_, _ = s.fakeStore.Settle(ctx, s.splitID, timeNow())
	})
	return e, err
}

// newExpenseFixture builds an expense service over in-memory fakes with a
// three-member group: alice (admin, g-1), bob and carol (members).
func newExpenseFixture(t *testing.T) (*ExpenseService, *fakeStore, *fakeGroups) {
	t.Helper()
	store := newFakeStore()
	groups := newFakeGroups()
	if _, err := groups.Create(context.Background(), groupNamed("trip", "alice")); err != nil {
		t.Fatal(err)
	}
	groups.addMember("g-1", "bob", "member")
	groups.addMember("g-1", "carol", "member")
	wp := worker.NewPool(1)
	t.Cleanup(wp.Stop)
	svc := NewExpenseService(store, splitsView{store}, groups, &fakeAudits{}, wp)
	return svc, store, groups
}

func TestExpenseCreate(t *testing.T) {
	ctx := context.Background()
	three := []split.Entry{{UserID: "alice"}, {UserID: "bob"}, {UserID: "carol"}}

	tests := []struct {
		name     string
		actor    string
		in       CreateExpenseInput
		wantKind apperr.Kind
		wantSum  int64
	}{
		{
			name:  "equal split sums to total",
			actor: "alice",
			in: CreateExpenseInput{
				GroupID: "g-1", Description: "dinner", Amount: money.FromMinorUnits(1000),
				PaidBy: "alice", SplitType: split.TypeEqual, Participants: three,
			},
			wantSum: 1000,
		},
		{
			name:  "caller not a member",
			actor: "mallory",
			in: CreateExpenseInput{
				GroupID: "g-1", Description: "dinner", Amount: money.FromMinorUnits(1000),
				PaidBy: "mallory", SplitType: split.TypeEqual, Participants: three,
			},
			wantKind: apperr.KindForbidden,
		},
		{
			name:  "payer not a member",
			actor: "alice",
			in: CreateExpenseInput{
				GroupID: "g-1", Description: "dinner", Amount: money.FromMinorUnits(1000),
				PaidBy: "mallory", SplitType: split.TypeEqual, Participants: three,
			},
			wantKind: apperr.KindForbidden,
		},
		{
			name:  "bad percentages are a validation error",
			actor: "bob",
			in: CreateExpenseInput{
				GroupID: "g-1", Description: "rent", Amount: money.FromMinorUnits(10000),
				PaidBy: "bob", SplitType: split.TypePercentage,
				Participants: []split.Entry{{UserID: "alice", PercentBP: 5000}, {UserID: "bob", PercentBP: 4000}},
			},
			wantKind: apperr.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newExpenseFixture(t)
			created, err := svc.Create(ctx, auth.Identity{UserID: tt.actor}, tt.in)
			if tt.wantKind != "" {
				if !apperr.IsKind(err, tt.wantKind) {
					t.Fatalf("kind = %v (err %v), want %v", apperr.KindOf(err), err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			var sum int64
			for _, sp := range created.Splits {
				sum += sp.Amount.MinorUnits()
			}
			if sum != tt.wantSum {
				t.Errorf("splits sum = %d, want %d", sum, tt.wantSum)
			}
		})
	}
}

func TestExpenseUpdate(t *testing.T) {
	ctx := context.Background()
	alice := auth.Identity{UserID: "alice"}

	create := func(t *testing.T, svc *ExpenseService) string {
		t.Helper()
		created, err := svc.Create(ctx, alice, CreateExpenseInput{
			GroupID: "g-1", Description: "dinner", Amount: money.FromMinorUnits(1000),
			PaidBy: "alice", SplitType: split.TypeEqual,
			Participants: []split.Entry{{UserID: "alice"}, {UserID: "bob"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		return created.ID
	}

	t.Run("amount change regenerates splits", func(t *testing.T) {
		svc, _, _ := newExpenseFixture(t)
		id := create(t, svc)
		amount := money.FromMinorUnits(3000)
		updated, err := svc.Update(ctx, alice, id, UpdateExpenseInput{Amount: &amount})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		for _, sp := range updated.Splits {
			if got := sp.Amount.MinorUnits(); got != 1500 {
				t.Errorf("split = %d, want 1500", got)
			}
		}
	})

	t.Run("amount change conflicts once a split is settled", func(t *testing.T) {
		svc, store, _ := newExpenseFixture(t)
		id := create(t, svc)
		splits, _ := store.ListByExpense(ctx, id)
		if _, err := store.Settle(ctx, splits[0].ID, timeNow()); err != nil {
			t.Fatal(err)
		}
		amount := money.FromMinorUnits(3000)
		_, err := svc.Update(ctx, alice, id, UpdateExpenseInput{Amount: &amount})
		if !apperr.IsKind(err, apperr.KindConflict) {
			t.Fatalf("kind = %v (err %v), want conflict", apperr.KindOf(err), err)
		}
	})

	t.Run("description edit survives settlement", func(t *testing.T) {
		svc, store, _ := newExpenseFixture(t)
		id := create(t, svc)
		splits, _ := store.ListByExpense(ctx, id)
		if _, err := store.Settle(ctx, splits[0].ID, timeNow()); err != nil {
			t.Fatal(err)
		}
		desc := "team dinner"
		updated, err := svc.Update(ctx, alice, id, UpdateExpenseInput{Description: &desc})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Description != desc {
			t.Errorf("description = %q, want %q", updated.Description, desc)
		}
	})

	t.Run("settlement landing mid-update still conflicts", func(t *testing.T) {
		// The store must re-check settlement when it replaces splits, not
		// trust the state the service read earlier.
		svc, store, _ := newExpenseFixture(t)
		id := create(t, svc)
		splits, _ := store.ListByExpense(ctx, id)
		wrapped := &settleOnRead{fakeStore: store, splitID: splits[0].ID}
		svc.expenses = wrapped

		amount := money.FromMinorUnits(3000)
		_, err := svc.Update(ctx, alice, id, UpdateExpenseInput{Amount: &amount})
		if !apperr.IsKind(err, apperr.KindConflict) {
			t.Fatalf("kind = %v (err %v), want conflict", apperr.KindOf(err), err)
		}
		current, _ := store.ListByExpense(ctx, id)
		if len(current) != 2 || !current[0].IsSettled {
			t.Errorf("settled split was not preserved: %+v", current)
		}
	})

	t.Run("remainder follows original participant order", func(t *testing.T) {
		svc, _, _ := newExpenseFixture(t)
		created, err := svc.Create(ctx, alice, CreateExpenseInput{
			GroupID: "g-1", Description: "dinner", Amount: money.FromMinorUnits(1000),
			PaidBy: "alice", SplitType: split.TypeEqual,
			Participants: []split.Entry{{UserID: "carol"}, {UserID: "alice"}, {UserID: "bob"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if created.Splits[0].UserID != "carol" || created.Splits[0].Amount.MinorUnits() != 334 {
			t.Fatalf("first split = %+v, want carol with 334", created.Splits[0])
		}

		// An amount edit without a participant list rebuilds the entries
		// from the stored positions, so carol stays first and keeps the
		// extra cent.
		amount := money.FromMinorUnits(2000)
		updated, err := svc.Update(ctx, alice, created.ID, UpdateExpenseInput{Amount: &amount})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		order := make([]string, len(updated.Splits))
		for i, sp := range updated.Splits {
			order[i] = sp.UserID
			if sp.Position != i {
				t.Errorf("split %d has position %d", i, sp.Position)
			}
		}
		if order[0] != "carol" || order[1] != "alice" || order[2] != "bob" {
			t.Fatalf("participant order changed: %v", order)
		}
		if updated.Splits[0].Amount.MinorUnits() != 667 {
			t.Errorf("carol's share = %d, want 667", updated.Splits[0].Amount.MinorUnits())
		}
	})

	t.Run("only creator or payer may edit", func(t *testing.T) {
		svc, _, _ := newExpenseFixture(t)
		id := create(t, svc)
		desc := "sneaky"
		_, err := svc.Update(ctx, auth.Identity{UserID: "carol"}, id, UpdateExpenseInput{Description: &desc})
		if !apperr.IsKind(err, apperr.KindForbidden) {
			t.Fatalf("kind = %v (err %v), want forbidden", apperr.KindOf(err), err)
		}
	})

	t.Run("switch to percentage requires participants", func(t *testing.T) {
		svc, _, _ := newExpenseFixture(t)
		id := create(t, svc)
		typ := split.TypePercentage
		_, err := svc.Update(ctx, alice, id, UpdateExpenseInput{SplitType: &typ})
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("kind = %v (err %v), want validation", apperr.KindOf(err), err)
		}
	})
}

func TestExpenseDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newExpenseFixture(t)
	created, err := svc.Create(ctx, auth.Identity{UserID: "alice"}, CreateExpenseInput{
		GroupID: "g-1", Description: "dinner", Amount: money.FromMinorUnits(1000),
		PaidBy: "bob", SplitType: split.TypeEqual,
		Participants: []split.Entry{{UserID: "alice"}, {UserID: "bob"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, auth.Identity{UserID: "carol"}, created.ID); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("stranger delete kind = %v, want forbidden", apperr.KindOf(err))
	}
	// bob is the payer, not the creator; payers may delete.
	if err := svc.Delete(ctx, auth.Identity{UserID: "bob"}, created.ID); err != nil {
		t.Fatalf("payer delete: %v", err)
	}
	if _, err := store.GetByID(ctx, created.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expense still present after delete")
	}
}
