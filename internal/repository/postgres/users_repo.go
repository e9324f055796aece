package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitfair/splitfair/internal/models"
)

type usersRepo struct{ pool *pgxpool.Pool }

func (r *usersRepo) Create(ctx context.Context, name, email, passwordHash string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users(id, name, email, password_hash)
		 VALUES($1, $2, $3, $4)
		 RETURNING id, name, email, password_hash, created_at, updated_at`,
		uuid.NewString(), name, email, passwordHash,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, mapErr(err, "user not found")
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at
		   FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, mapErr(err, "user not found")
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at
		   FROM users WHERE email=$1`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, mapErr(err, "user not found")
}
