package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitfair/splitfair/internal/models"
)

type groupsRepo struct{ pool *pgxpool.Pool }

func (r *groupsRepo) Create(ctx context.Context, g models.Group) (models.Group, error) {
	var out models.Group
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO groups(id, name, description, created_by)
			 VALUES($1, $2, $3, $4)
			 RETURNING id, name, description, created_by, created_at, updated_at`,
			uuid.NewString(), g.Name, g.Description, g.CreatedBy,
		).Scan(&out.ID, &out.Name, &out.Description, &out.CreatedBy, &out.CreatedAt, &out.UpdatedAt)
		if err != nil {
			return mapErr(err, "group not found")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO group_members(id, group_id, user_id, role) VALUES($1, $2, $3, $4)`,
			uuid.NewString(), out.ID, g.CreatedBy, models.RoleAdmin,
		)
		return mapErr(err, "group not found")
	})
	return out, err
}

func (r *groupsRepo) GetByID(ctx context.Context, id string) (models.Group, error) {
	var g models.Group
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_by, created_at, updated_at
		   FROM groups WHERE id=$1`, id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	return g, mapErr(err, "group not found")
}

func (r *groupsRepo) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT g.id, g.name, g.description, g.created_by, g.created_at, g.updated_at
		   FROM groups g
		   JOIN group_members m ON m.group_id = g.id
		  WHERE m.user_id=$1
		  ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err, "group not found")
	}
	defer rows.Close()

	var out []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, mapErr(err, "group not found")
		}
		out = append(out, g)
	}
	return out, mapErr(rows.Err(), "group not found")
}

func (r *groupsRepo) Update(ctx context.Context, g models.Group) (models.Group, error) {
	var out models.Group
	err := r.pool.QueryRow(ctx,
		`UPDATE groups SET name=$2, description=$3, updated_at=now()
		  WHERE id=$1
		  RETURNING id, name, description, created_by, created_at, updated_at`,
		g.ID, g.Name, g.Description,
	).Scan(&out.ID, &out.Name, &out.Description, &out.CreatedBy, &out.CreatedAt, &out.UpdatedAt)
	return out, mapErr(err, "group not found")
}

func (r *groupsRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "group not found")
	}
	if tag.RowsAffected() == 0 {
		return mapErr(pgx.ErrNoRows, "group not found")
	}
	return nil
}

func (r *groupsRepo) AddMember(ctx context.Context, groupID, userID string, role models.MemberRole) (models.GroupMember, error) {
	var m models.GroupMember
	err := r.pool.QueryRow(ctx,
		`INSERT INTO group_members(id, group_id, user_id, role)
		 VALUES($1, $2, $3, $4)
		 RETURNING id, group_id, user_id, role, joined_at`,
		uuid.NewString(), groupID, userID, role,
	).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	return m, mapErr(err, "group not found")
}

func (r *groupsRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return mapErr(err, "membership not found")
	}
	if tag.RowsAffected() == 0 {
		return mapErr(pgx.ErrNoRows, "membership not found")
	}
	return nil
}

func (r *groupsRepo) GetMember(ctx context.Context, groupID, userID string) (models.GroupMember, error) {
	var m models.GroupMember
	err := r.pool.QueryRow(ctx,
		`SELECT id, group_id, user_id, role, joined_at
		   FROM group_members WHERE group_id=$1 AND user_id=$2`,
		groupID, userID,
	).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	return m, mapErr(err, "membership not found")
}

func (r *groupsRepo) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, group_id, user_id, role, joined_at
		   FROM group_members WHERE group_id=$1 ORDER BY joined_at`, groupID)
	if err != nil {
		return nil, mapErr(err, "group not found")
	}
	defer rows.Close()

	var out []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, mapErr(err, "group not found")
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err(), "group not found")
}
