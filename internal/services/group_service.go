package services

import (
	"context"

	"github.com/splitfair/splitfair/internal/apperr"
	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/balance"
	"github.com/splitfair/splitfair/internal/models"
	repo "github.com/splitfair/splitfair/internal/repository"
)

type GroupService struct {
	groups   repo.Groups
	users    repo.Users
	expenses repo.Expenses
}

func NewGroupService(groups repo.Groups, users repo.Users, expenses repo.Expenses) *GroupService {
	return &GroupService{groups: groups, users: users, expenses: expenses}
}

// requireMember returns the actor's membership or a forbidden error.
func (s *GroupService) requireMember(ctx context.Context, groupID string, actor auth.Identity) (models.GroupMember, error) {
	m, err := s.groups.GetMember(ctx, groupID, actor.UserID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return models.GroupMember{}, apperr.Forbidden("not a member of this group")
		}
		return models.GroupMember{}, err
	}
	return m, nil
}

func (s *GroupService) requireAdmin(ctx context.Context, groupID string, actor auth.Identity) error {
	m, err := s.requireMember(ctx, groupID, actor)
	if err != nil {
		return err
	}
	if m.Role != models.RoleAdmin {
		return apperr.Forbidden("admin role required")
	}
	return nil
}

func (s *GroupService) Create(ctx context.Context, actor auth.Identity, name, description string) (models.Group, error) {
	g := models.Group{Name: name, Description: description, CreatedBy: actor.UserID}
	if err := g.Validate(); err != nil {
		return models.Group{}, err
	}
	return s.groups.Create(ctx, g)
}

func (s *GroupService) Get(ctx context.Context, actor auth.Identity, id string) (models.Group, error) {
	if _, err := s.requireMember(ctx, id, actor); err != nil {
		return models.Group{}, err
	}
	return s.groups.GetByID(ctx, id)
}

func (s *GroupService) List(ctx context.Context, actor auth.Identity) ([]models.Group, error) {
	return s.groups.ListForUser(ctx, actor.UserID)
}

func (s *GroupService) Update(ctx context.Context, actor auth.Identity, id, name, description string) (models.Group, error) {
	if err := s.requireAdmin(ctx, id, actor); err != nil {
		return models.Group{}, err
	}
	g := models.Group{ID: id, Name: name, Description: description}
	if err := g.Validate(); err != nil {
		return models.Group{}, err
	}
	return s.groups.Update(ctx, g)
}

func (s *GroupService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if err := s.requireAdmin(ctx, id, actor); err != nil {
		return err
	}
	return s.groups.Delete(ctx, id)
}

func (s *GroupService) AddMember(ctx context.Context, actor auth.Identity, groupID, userID string) (models.GroupMember, error) {
	if err := s.requireAdmin(ctx, groupID, actor); err != nil {
		return models.GroupMember{}, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return models.GroupMember{}, err
	}
	return s.groups.AddMember(ctx, groupID, userID, models.RoleMember)
}

func (s *GroupService) RemoveMember(ctx context.Context, actor auth.Identity, groupID, userID string) error {
	// Members may leave on their own; removing anyone else takes admin.
	if actor.UserID != userID {
		if err := s.requireAdmin(ctx, groupID, actor); err != nil {
			return err
		}
	}
	return s.groups.RemoveMember(ctx, groupID, userID)
}

func (s *GroupService) ListMembers(ctx context.Context, actor auth.Identity, groupID string) ([]models.GroupMember, error) {
	if _, err := s.requireMember(ctx, groupID, actor); err != nil {
		return nil, err
	}
	return s.groups.ListMembers(ctx, groupID)
}

// Balances returns per-member paid/owed/net across every expense in the
// group, ordered by user id.
func (s *GroupService) Balances(ctx context.Context, actor auth.Identity, groupID string) ([]models.Balance, error) {
	if _, err := s.requireMember(ctx, groupID, actor); err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return balance.Sorted(balance.Compute(expenses)), nil
}
