package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitfair/splitfair/internal/apperr"
	repo "github.com/splitfair/splitfair/internal/repository"
)

type Repositories struct {
	Users     repo.Users
	Groups    repo.Groups
	Expenses  repo.Expenses
	Splits    repo.Splits
	AuditLogs repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:     &usersRepo{pool},
		Groups:    &groupsRepo{pool},
		Expenses:  &expensesRepo{pool},
		Splits:    &splitsRepo{pool},
		AuditLogs: &auditLogsRepo{pool},
	}
}

// withTx runs fn inside one serializable transaction.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return apperr.Internal("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal("commit transaction", err)
	}
	return nil
}

// mapErr translates store failures into the boundary taxonomy so raw
// Postgres details never reach a client.
func mapErr(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return apperr.Conflict("resource already exists")
		case "23503": // foreign_key_violation
			return apperr.Validation("referenced resource does not exist")
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperr.Conflict("concurrent update, please retry")
		}
	}
	return apperr.Internal("store failure", err)
}
