// Package authz decides whether a caller may act on a board. Every decision
// reads the board membership table; nothing is cached between calls.
package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/models"
)

// RoleSet is the set of board roles an operation accepts.
type RoleSet struct {
	roles map[models.Role]struct{}
}

func Require(roles ...models.Role) RoleSet {
	set := RoleSet{roles: make(map[models.Role]struct{}, len(roles))}
	for _, r := range roles {
		set.roles[r] = struct{}{}
	}
	return set
}

// Allows reports whether role is in the set. Owner satisfies any set that
// contains admin.
func (s RoleSet) Allows(role models.Role) bool {
	if _, ok := s.roles[role]; ok {
		return true
	}
	if role == models.RoleOwner {
		_, adminOK := s.roles[models.RoleAdmin]
		return adminOK
	}
	return false
}

func (s RoleSet) String() string {
	names := make([]string, 0, len(s.roles))
	for _, r := range []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleEditor, models.RoleViewer} {
		if _, ok := s.roles[r]; ok {
			names = append(names, string(r))
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Capability sets are per operation, not per resource type: assigning an
// item needs more than editing it.
var (
	CanRead          = Require(models.RoleAdmin, models.RoleEditor, models.RoleViewer)
	CanCreateItem    = Require(models.RoleAdmin, models.RoleEditor)
	CanUpdateItem    = Require(models.RoleAdmin, models.RoleEditor)
	CanAssignItem    = Require(models.RoleAdmin)
	CanDeleteItem    = Require(models.RoleAdmin)
	CanManageColumns = Require(models.RoleAdmin, models.RoleEditor)
	CanDeleteColumn  = Require(models.RoleAdmin)
	CanManageMembers = Require(models.RoleAdmin)
	CanInvite        = Require(models.RoleAdmin)
	CanManageBoard   = Require(models.RoleAdmin)
	CanDeleteBoard   = Require(models.RoleOwner)
)

// MembershipReader is the slice of the membership table the guard needs.
type MembershipReader interface {
	Get(ctx context.Context, boardID, userID uuid.UUID) (*models.BoardMember, error)
}

type Guard struct {
	members MembershipReader
}

func NewGuard(members MembershipReader) *Guard {
	return &Guard{members: members}
}

// Membership returns the caller's row, or nil when the caller is not a member.
func (g *Guard) Membership(ctx context.Context, caller auth.Caller, boardID uuid.UUID) (*models.BoardMember, error) {
	m, err := g.members.Get(ctx, boardID, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("read membership: %w", err)
	}
	return m, nil
}

// HasPermission fails closed: no membership row means false.
func (g *Guard) HasPermission(ctx context.Context, caller auth.Caller, boardID uuid.UUID, required RoleSet) (bool, error) {
	m, err := g.Membership(ctx, caller, boardID)
	if err != nil {
		return false, err
	}
	return m != nil && required.Allows(m.Role), nil
}

// Authorize is HasPermission with the denial spelled out as an
// apperr.Forbidden carrying not_member or insufficient_role.
func (g *Guard) Authorize(ctx context.Context, caller auth.Caller, boardID uuid.UUID, required RoleSet) (*models.BoardMember, error) {
	m, err := g.Membership(ctx, caller, boardID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.Forbidden(apperr.ReasonNotMember, "you are not a member of this board")
	}
	if !required.Allows(m.Role) {
		return nil, apperr.Forbidden(apperr.ReasonInsufficientRole,
			fmt.Sprintf("role %s cannot perform this action, requires %s", m.Role, required))
	}
	return m, nil
}
