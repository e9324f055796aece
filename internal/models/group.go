package models

import (
	"strings"
	"time"

	"github.com/splitfair/splitfair/internal/apperr"
)

// MemberRole is the role a user holds inside one group.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type GroupMember struct {
	ID       string     `json:"id"`
	GroupID  string     `json:"group_id"`
	UserID   string     `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

func (g *Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return apperr.Validation("group name is required")
	}
	return nil
}
