package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitfair/splitfair/internal/apperr"
	"github.com/splitfair/splitfair/internal/models"
	"github.com/splitfair/splitfair/internal/money"
	"github.com/splitfair/splitfair/internal/split"
)

type expensesRepo struct{ pool *pgxpool.Pool }

type row interface {
	Scan(dest ...any) error
}

func scanExpense(r row) (models.Expense, error) {
	var (
		e      models.Expense
		amount int64
		typ    string
	)
	err := r.Scan(&e.ID, &e.GroupID, &e.Description, &amount, &e.PaidBy, &typ, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return models.Expense{}, err
	}
	e.Amount = money.FromMinorUnits(amount)
	e.SplitType = split.Type(typ)
	return e, nil
}

func scanSplit(r row) (models.Split, error) {
	var (
		s      models.Split
		amount int64
	)
	err := r.Scan(&s.ID, &s.ExpenseID, &s.UserID, &amount, &s.Position, &s.IsSettled, &s.SettledAt, &s.CreatedAt)
	if err != nil {
		return models.Split{}, err
	}
	s.Amount = money.FromMinorUnits(amount)
	return s, nil
}

const expenseCols = `id, group_id, description, amount, paid_by, split_type, created_by, created_at, updated_at`
const splitCols = `id, expense_id, user_id, amount, position, is_settled, settled_at, created_at`
const splitColsPrefixed = `s.id, s.expense_id, s.user_id, s.amount, s.position, s.is_settled, s.settled_at, s.created_at`

// insertSplits persists splits with their slice index as position, so the
// request order survives storage.
func insertSplits(ctx context.Context, tx pgx.Tx, expenseID string, splits []models.Split) ([]models.Split, error) {
	out := make([]models.Split, 0, len(splits))
	for i, s := range splits {
		r := tx.QueryRow(ctx,
			`INSERT INTO splits(id, expense_id, user_id, amount, position)
			 VALUES($1, $2, $3, $4, $5)
			 RETURNING `+splitCols,
			uuid.NewString(), expenseID, s.UserID, s.Amount.MinorUnits(), i,
		)
		inserted, err := scanSplit(r)
		if err != nil {
			return nil, mapErr(err, "split not found")
		}
		out = append(out, inserted)
	}
	return out, nil
}

func (r *expensesRepo) CreateWithSplits(ctx context.Context, e models.Expense, splits []models.Split) (models.ExpenseWithSplits, error) {
	var out models.ExpenseWithSplits
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err := scanExpense(tx.QueryRow(ctx,
			`INSERT INTO expenses(id, group_id, description, amount, paid_by, split_type, created_by)
			 VALUES($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+expenseCols,
			uuid.NewString(), e.GroupID, e.Description, e.Amount.MinorUnits(), e.PaidBy, string(e.SplitType), e.CreatedBy,
		))
		if err != nil {
			return mapErr(err, "expense not found")
		}
		inserted, err := insertSplits(ctx, tx, created.ID, splits)
		if err != nil {
			return err
		}
		out = models.ExpenseWithSplits{Expense: created, Splits: inserted}
		return nil
	})
	return out, err
}

func (r *expensesRepo) GetByID(ctx context.Context, id string) (models.Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx,
		`SELECT `+expenseCols+` FROM expenses WHERE id=$1`, id))
	return e, mapErr(err, "expense not found")
}

func (r *expensesRepo) collectExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "expense not found")
	}
	defer rows.Close()

	var out []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, mapErr(err, "expense not found")
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err(), "expense not found")
}

func (r *expensesRepo) collectSplits(ctx context.Context, query string, args ...any) (map[string][]models.Split, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "split not found")
	}
	defer rows.Close()

	bySplitExpense := make(map[string][]models.Split)
	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return nil, mapErr(err, "split not found")
		}
		bySplitExpense[s.ExpenseID] = append(bySplitExpense[s.ExpenseID], s)
	}
	return bySplitExpense, mapErr(rows.Err(), "split not found")
}

func attach(expenses []models.Expense, splits map[string][]models.Split) []models.ExpenseWithSplits {
	out := make([]models.ExpenseWithSplits, len(expenses))
	for i, e := range expenses {
		out[i] = models.ExpenseWithSplits{Expense: e, Splits: splits[e.ID]}
	}
	return out
}

func (r *expensesRepo) ListByGroup(ctx context.Context, groupID string) ([]models.ExpenseWithSplits, error) {
	expenses, err := r.collectExpenses(ctx,
		`SELECT `+expenseCols+` FROM expenses WHERE group_id=$1 ORDER BY created_at DESC, id`, groupID)
	if err != nil {
		return nil, err
	}
	splits, err := r.collectSplits(ctx,
		`SELECT `+splitColsPrefixed+` FROM splits s
		   JOIN expenses e ON e.id = s.expense_id
		  WHERE e.group_id=$1
		  ORDER BY s.position`, groupID)
	if err != nil {
		return nil, err
	}
	return attach(expenses, splits), nil
}

func (r *expensesRepo) ListByCreator(ctx context.Context, userID string) ([]models.Expense, error) {
	return r.collectExpenses(ctx,
		`SELECT `+expenseCols+` FROM expenses WHERE created_by=$1 ORDER BY created_at DESC, id`, userID)
}

func (r *expensesRepo) ListForUser(ctx context.Context, userID string) ([]models.ExpenseWithSplits, error) {
	const predicate = `paid_by=$1 OR EXISTS (SELECT 1 FROM splits x WHERE x.expense_id=expenses.id AND x.user_id=$1)`
	expenses, err := r.collectExpenses(ctx,
		`SELECT `+expenseCols+` FROM expenses WHERE `+predicate+` ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	splits, err := r.collectSplits(ctx,
		`SELECT `+splitColsPrefixed+` FROM splits s
		  WHERE s.expense_id IN (SELECT id FROM expenses WHERE `+predicate+`)
		  ORDER BY s.position`, userID)
	if err != nil {
		return nil, err
	}
	return attach(expenses, splits), nil
}

func (r *expensesRepo) UpdateDescription(ctx context.Context, id, description string) (models.Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx,
		`UPDATE expenses SET description=$2, updated_at=now()
		  WHERE id=$1
		  RETURNING `+expenseCols,
		id, description))
	return e, mapErr(err, "expense not found")
}

func (r *expensesRepo) ReplaceSplits(ctx context.Context, e models.Expense, splits []models.Split) (models.ExpenseWithSplits, error) {
	var out models.ExpenseWithSplits
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock every split row before checking; settlement runs as a plain
		// autocommit UPDATE, so without the lock a split could settle
		// between this read and the DELETE below and be silently destroyed.
		rows, err := tx.Query(ctx,
			`SELECT is_settled FROM splits WHERE expense_id=$1 FOR UPDATE`, e.ID)
		if err != nil {
			return mapErr(err, "expense not found")
		}
		var settled bool
		for rows.Next() {
			var s bool
			if err := rows.Scan(&s); err != nil {
				rows.Close()
				return mapErr(err, "expense not found")
			}
			settled = settled || s
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return mapErr(err, "expense not found")
		}
		if settled {
			return apperr.Conflict("expense has settled splits; amount and split type are frozen")
		}

		updated, err := scanExpense(tx.QueryRow(ctx,
			`UPDATE expenses SET description=$2, amount=$3, split_type=$4, updated_at=now()
			  WHERE id=$1
			  RETURNING `+expenseCols,
			e.ID, e.Description, e.Amount.MinorUnits(), string(e.SplitType)))
		if err != nil {
			return mapErr(err, "expense not found")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM splits WHERE expense_id=$1`, e.ID); err != nil {
			return mapErr(err, "expense not found")
		}
		inserted, err := insertSplits(ctx, tx, e.ID, splits)
		if err != nil {
			return err
		}
		out = models.ExpenseWithSplits{Expense: updated, Splits: inserted}
		return nil
	})
	return out, err
}

func (r *expensesRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "expense not found")
	}
	if tag.RowsAffected() == 0 {
		return mapErr(pgx.ErrNoRows, "expense not found")
	}
	return nil
}
