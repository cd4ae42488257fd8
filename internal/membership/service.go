// Package membership manages the board membership table: listing members,
// changing roles and removing members.
package membership

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/realtime"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
)

// Member is a membership row joined with the user's public profile.
type Member struct {
	models.BoardMember
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type Service struct {
	boards      repository.BoardRepository
	members     repository.MembershipRepository
	users       repository.UserRepository
	tx          repository.TxManager
	guard       *authz.Guard
	broadcaster realtime.Broadcaster
	logger      *zap.Logger
}

func NewService(repos *repository.Repositories, guard *authz.Guard, broadcaster realtime.Broadcaster, logger *zap.Logger) *Service {
	return &Service{
		boards:      repos.Boards,
		members:     repos.Members,
		users:       repos.Users,
		tx:          repos.Tx,
		guard:       guard,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *Service) ListMembers(ctx context.Context, caller auth.Caller, boardID uuid.UUID) ([]Member, error) {
	if err := s.boardExists(ctx, boardID); err != nil {
		return nil, err
	}
	if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanRead); err != nil {
		return nil, err
	}

	rows, err := s.members.List(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	out := make([]Member, 0, len(rows))
	for _, m := range rows {
		view := Member{BoardMember: m}
		u, err := s.users.GetByID(ctx, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("get member user: %w", err)
		}
		if u != nil {
			view.Email = u.Email
			view.DisplayName = u.DisplayName
		}
		out = append(out, view)
	}
	return out, nil
}

// ChangeRole sets userID's role. The owner row never changes, owner cannot
// be granted, and the board's last admin cannot be demoted.
func (s *Service) ChangeRole(ctx context.Context, caller auth.Caller, boardID, userID uuid.UUID, rawRole string) (*models.BoardMember, error) {
	role, ok := models.ParseRole(rawRole)
	if !ok || role == models.RoleOwner {
		return nil, apperr.BadRequest(apperr.ReasonInvalidRole, fmt.Sprintf("role %q cannot be assigned", rawRole))
	}
	if err := s.boardExists(ctx, boardID); err != nil {
		return nil, err
	}
	if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanManageMembers); err != nil {
		return nil, err
	}

	var updated models.BoardMember
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.members.ListForUpdate(ctx, boardID)
		if err != nil {
			return fmt.Errorf("lock members: %w", err)
		}
		target, err := findTarget(locked, userID)
		if err != nil {
			return err
		}
		if target.Role == role {
			updated = *target
			return nil
		}
		if target.Role == models.RoleAdmin && role != models.RoleAdmin {
			if err := ensureAnotherAdmin(locked); err != nil {
				return err
			}
		}
		if err := s.members.UpdateRole(ctx, boardID, userID, role); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		updated = *target
		updated.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member role changed",
		zap.String("board_id", boardID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
		zap.String("by", caller.UserID.String()),
	)
	s.broadcaster.Broadcast(ctx, realtime.BoardGroup(boardID), realtime.EventMemberRoleChanged, updated)
	return &updated, nil
}

// RemoveMember removes userID. Admins may remove anyone but the owner; any
// member may remove themselves.
func (s *Service) RemoveMember(ctx context.Context, caller auth.Caller, boardID, userID uuid.UUID) error {
	if err := s.boardExists(ctx, boardID); err != nil {
		return err
	}
	if userID == caller.UserID {
		if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanRead); err != nil {
			return err
		}
	} else if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanManageMembers); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.members.ListForUpdate(ctx, boardID)
		if err != nil {
			return fmt.Errorf("lock members: %w", err)
		}
		target, err := findTarget(locked, userID)
		if err != nil {
			return err
		}
		if target.Role == models.RoleAdmin {
			if err := ensureAnotherAdmin(locked); err != nil {
				return err
			}
		}
		if err := s.members.Remove(ctx, boardID, userID); err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcaster.Broadcast(ctx, realtime.BoardGroup(boardID), realtime.EventMemberRemoved, map[string]uuid.UUID{
		"board_id": boardID,
		"user_id":  userID,
	})
	return nil
}

func (s *Service) boardExists(ctx context.Context, boardID uuid.UUID) error {
	b, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return fmt.Errorf("get board: %w", err)
	}
	if b == nil {
		return apperr.NotFound(apperr.ReasonBoardNotFound, "board not found")
	}
	return nil
}

// findTarget finds a member that may be modified among the board's locked rows.
func findTarget(locked []models.BoardMember, userID uuid.UUID) (*models.BoardMember, error) {
	idx := slices.IndexFunc(locked, func(m models.BoardMember) bool { return m.UserID == userID })
	if idx < 0 {
		return nil, apperr.NotFound(apperr.ReasonMemberNotFound, "member not found")
	}
	m := locked[idx]
	if m.Role == models.RoleOwner {
		return nil, apperr.Forbidden(apperr.ReasonOwnerImmutable, "the board owner cannot be changed or removed")
	}
	return &m, nil
}

// ensureAnotherAdmin counts explicit admins. The rows must come from
// ListForUpdate in the same transaction or two demotions can both pass.
func ensureAnotherAdmin(locked []models.BoardMember) error {
	admins := 0
	for _, m := range locked {
		if m.Role == models.RoleAdmin {
			admins++
		}
	}
	if admins <= 1 {
		return apperr.Forbidden(apperr.ReasonLastAdmin, "a board must keep at least one admin")
	}
	return nil
}
