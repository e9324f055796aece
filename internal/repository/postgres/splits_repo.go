package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitfair/splitfair/internal/models"
)

type splitsRepo struct{ pool *pgxpool.Pool }

func (r *splitsRepo) GetByID(ctx context.Context, id string) (models.Split, error) {
	s, err := scanSplit(r.pool.QueryRow(ctx,
		`SELECT `+splitCols+` FROM splits WHERE id=$1`, id))
	return s, mapErr(err, "split not found")
}

func (r *splitsRepo) ListByExpense(ctx context.Context, expenseID string) ([]models.Split, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+splitCols+` FROM splits WHERE expense_id=$1 ORDER BY position`, expenseID)
	if err != nil {
		return nil, mapErr(err, "split not found")
	}
	defer rows.Close()

	var out []models.Split
	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return nil, mapErr(err, "split not found")
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err(), "split not found")
}

// Settle is a compare-and-set: the WHERE clause only matches an unsettled
// row, so two racing callers cannot both observe a transition.
func (r *splitsRepo) Settle(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE splits SET is_settled=TRUE, settled_at=$2
		  WHERE id=$1 AND is_settled=FALSE`,
		id, at)
	if err != nil {
		return false, mapErr(err, "split not found")
	}
	return tag.RowsAffected() == 1, nil
}

// SettleOutstanding runs as a single statement, so it is atomic: either
// every matched split flips or none do.
func (r *splitsRepo) SettleOutstanding(ctx context.Context, expenseID, userID string, at time.Time) (int, error) {
	var owner *string
	if userID != "" {
		owner = &userID
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE splits SET is_settled=TRUE, settled_at=$2
		  WHERE expense_id=$1 AND is_settled=FALSE
		    AND ($3::uuid IS NULL OR user_id=$3::uuid)`,
		expenseID, at, owner)
	if err != nil {
		return 0, mapErr(err, "split not found")
	}
	return int(tag.RowsAffected()), nil
}

func (r *splitsRepo) AnySettled(ctx context.Context, expenseID string) (bool, error) {
	var settled bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM splits WHERE expense_id=$1 AND is_settled)`, expenseID,
	).Scan(&settled)
	return settled, mapErr(err, "expense not found")
}
