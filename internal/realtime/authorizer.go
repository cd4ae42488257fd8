package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
)

// JoinAuthorizer decides whether a caller may join a group. Joins are
// always explicit; the hub never adds a connection to a group on its own.
type JoinAuthorizer interface {
	AuthorizeJoin(ctx context.Context, caller auth.Caller, group GroupKey) error
}

// JoinAuthorizerFunc adapts a function to JoinAuthorizer.
type JoinAuthorizerFunc func(ctx context.Context, caller auth.Caller, group GroupKey) error

func (f JoinAuthorizerFunc) AuthorizeJoin(ctx context.Context, caller auth.Caller, group GroupKey) error {
	return f(ctx, caller, group)
}

type TeamMemberReader interface {
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error)
}

type RoomReader interface {
	GetRoomByID(ctx context.Context, roomID uuid.UUID) (*models.ChatRoom, error)
}

// MembershipAuthorizer admits board members to board groups, team members
// to team groups, and either to the chat room of the entity they belong to.
type MembershipAuthorizer struct {
	guard *authz.Guard
	teams TeamMemberReader
	rooms RoomReader
}

func NewMembershipAuthorizer(guard *authz.Guard, teams TeamMemberReader, rooms RoomReader) *MembershipAuthorizer {
	return &MembershipAuthorizer{guard: guard, teams: teams, rooms: rooms}
}

func (a *MembershipAuthorizer) AuthorizeJoin(ctx context.Context, caller auth.Caller, group GroupKey) error {
	kind, id, err := ParseGroup(group)
	if err != nil {
		return apperr.BadRequest(apperr.ReasonInvalidInput, err.Error())
	}

	switch kind {
	case GroupBoard:
		_, err := a.guard.Authorize(ctx, caller, id, authz.CanRead)
		return err
	case GroupTeam:
		return a.teamMember(ctx, caller, id)
	default:
		room, err := a.rooms.GetRoomByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get chat room: %w", err)
		}
		if room == nil {
			return apperr.NotFound(apperr.ReasonRoomNotFound, "chat room not found")
		}
		if room.Type == models.RoomTeam {
			return a.teamMember(ctx, caller, room.EntityID)
		}
		_, err = a.guard.Authorize(ctx, caller, room.EntityID, authz.CanRead)
		return err
	}
}

func (a *MembershipAuthorizer) teamMember(ctx context.Context, caller auth.Caller, teamID uuid.UUID) error {
	m, err := a.teams.GetMember(ctx, teamID, caller.UserID)
	if err != nil {
		return fmt.Errorf("get team member: %w", err)
	}
	if m == nil {
		return apperr.Forbidden(apperr.ReasonNotMember, "you are not a member of this team")
	}
	return nil
}
