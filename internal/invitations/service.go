// Package invitations issues and redeems single-use board and team
// invitations. New invitations are pushed to the invitee's notification
// channel when they have an account.
package invitations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/notify"
	"github.com/lalith-99/boardsync/internal/realtime"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
)

type Service struct {
	invites     repository.InvitationRepository
	boards      repository.BoardRepository
	members     repository.MembershipRepository
	teams       repository.TeamRepository
	users       repository.UserRepository
	tx          repository.TxManager
	guard       *authz.Guard
	pusher      notify.Pusher
	broadcaster realtime.Broadcaster
	logger      *zap.Logger
	ttl         time.Duration
	now         func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	repos *repository.Repositories,
	guard *authz.Guard,
	pusher notify.Pusher,
	broadcaster realtime.Broadcaster,
	ttl time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		invites:     repos.Invitations,
		boards:      repos.Boards,
		members:     repos.Members,
		teams:       repos.Teams,
		users:       repos.Users,
		tx:          repos.Tx,
		guard:       guard,
		pusher:      pusher,
		broadcaster: broadcaster,
		logger:      logger,
		ttl:         ttl,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InviteToBoard invites email to boardID with role. Owner cannot be granted
// through an invitation.
func (s *Service) InviteToBoard(ctx context.Context, caller auth.Caller, boardID uuid.UUID, email, rawRole string) (*models.BoardInvitation, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(rawRole)
	if !ok || role == models.RoleOwner {
		return nil, apperr.BadRequest(apperr.ReasonInvalidRole, fmt.Sprintf("role %q cannot be granted by invitation", rawRole))
	}
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return nil, apperr.NotFound(apperr.ReasonBoardNotFound, "board not found")
	}
	if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanInvite); err != nil {
		return nil, err
	}

	invitee, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get invitee: %w", err)
	}
	if invitee != nil {
		existing, err := s.members.Get(ctx, boardID, invitee.ID)
		if err != nil {
			return nil, fmt.Errorf("get member: %w", err)
		}
		if existing != nil {
			return nil, apperr.Conflict(apperr.ReasonAlreadyMember, "user is already a member of this board")
		}
	}

	now := s.now().UTC()
	inv := models.BoardInvitation{
		Token:     uuid.NewString(),
		BoardID:   boardID,
		BoardName: board.Name,
		Email:     email,
		Role:      role,
		InvitedBy: caller.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.invites.CreateBoardInvite(ctx, inv); err != nil {
		return nil, fmt.Errorf("create board invitation: %w", err)
	}

	s.logger.Info("board invitation created",
		zap.String("board_id", boardID.String()),
		zap.String("role", string(role)),
		zap.String("by", caller.UserID.String()),
	)
	if invitee != nil {
		s.pusher.Push(ctx, invitee.ID, notify.Event{Type: notify.TypeBoard, Data: inv})
	}
	return &inv, nil
}

// AcceptBoard redeems token for the caller. An existing membership is left
// as it is, so accepting never downgrades a role.
func (s *Service) AcceptBoard(ctx context.Context, caller auth.Caller, token string) (*models.BoardMember, error) {
	inv, err := s.invites.GetBoardInvite(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get board invitation: %w", err)
	}
	if inv == nil {
		return nil, errInvitationMissing()
	}
	if err := s.redeemable(caller, inv.Email, inv.Expired(s.now()), func() error {
		return s.invites.DeleteBoardInvite(ctx, token)
	}); err != nil {
		return nil, err
	}

	var member *models.BoardMember
	var joined bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// A concurrent accept or reject may have consumed it.
		current, err := s.invites.GetBoardInvite(ctx, token)
		if err != nil {
			return fmt.Errorf("get board invitation: %w", err)
		}
		if current == nil {
			return errInvitationMissing()
		}

		existing, err := s.members.Get(ctx, inv.BoardID, caller.UserID)
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		if existing == nil {
			if err := s.members.Add(ctx, inv.BoardID, caller.UserID, inv.Role); err != nil {
				return fmt.Errorf("add member: %w", err)
			}
			joined = true
		}
		if err := s.invites.DeleteBoardInvite(ctx, token); err != nil {
			return fmt.Errorf("delete board invitation: %w", err)
		}
		member, err = s.members.Get(ctx, inv.BoardID, caller.UserID)
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if joined {
		s.broadcaster.Broadcast(ctx, realtime.BoardGroup(inv.BoardID), realtime.EventMemberJoined, member)
	}
	return member, nil
}

func (s *Service) RejectBoard(ctx context.Context, caller auth.Caller, token string) error {
	inv, err := s.invites.GetBoardInvite(ctx, token)
	if err != nil {
		return fmt.Errorf("get board invitation: %w", err)
	}
	if inv == nil {
		return errInvitationMissing()
	}
	if !sameEmail(inv.Email, caller.Email) {
		return apperr.Forbidden(apperr.ReasonInvitationTarget, "this invitation was sent to someone else")
	}
	if err := s.invites.DeleteBoardInvite(ctx, token); err != nil {
		return fmt.Errorf("delete board invitation: %w", err)
	}
	return nil
}

// ListBoardInvites returns the caller's pending, unexpired board invitations.
func (s *Service) ListBoardInvites(ctx context.Context, caller auth.Caller) ([]models.BoardInvitation, error) {
	invites, err := s.invites.ListBoardInvites(ctx, caller.Email, s.now())
	if err != nil {
		return nil, fmt.Errorf("list board invitations: %w", err)
	}
	return invites, nil
}

// InviteToTeam is limited to the team's leaders.
func (s *Service) InviteToTeam(ctx context.Context, caller auth.Caller, teamID uuid.UUID, email string) (*models.TeamInvitation, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, apperr.NotFound(apperr.ReasonTeamNotFound, "team not found")
	}
	leader, err := s.teams.GetMember(ctx, teamID, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("get team member: %w", err)
	}
	if leader == nil {
		return nil, apperr.Forbidden(apperr.ReasonNotMember, "you are not a member of this team")
	}
	if leader.Role != models.TeamRoleLeader {
		return nil, apperr.Forbidden(apperr.ReasonInsufficientRole, "only team leaders can invite")
	}

	invitee, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get invitee: %w", err)
	}
	if invitee != nil {
		existing, err := s.teams.GetMember(ctx, teamID, invitee.ID)
		if err != nil {
			return nil, fmt.Errorf("get team member: %w", err)
		}
		if existing != nil {
			return nil, apperr.Conflict(apperr.ReasonAlreadyMember, "user is already a member of this team")
		}
	}

	now := s.now().UTC()
	inv := models.TeamInvitation{
		Token:     uuid.NewString(),
		TeamID:    teamID,
		TeamName:  team.Name,
		Email:     email,
		InvitedBy: caller.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.invites.CreateTeamInvite(ctx, inv); err != nil {
		return nil, fmt.Errorf("create team invitation: %w", err)
	}

	if invitee != nil {
		s.pusher.Push(ctx, invitee.ID, notify.Event{Type: notify.TypeTeam, Data: inv})
	}
	return &inv, nil
}

func (s *Service) AcceptTeam(ctx context.Context, caller auth.Caller, token string) (*models.TeamMember, error) {
	inv, err := s.invites.GetTeamInvite(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get team invitation: %w", err)
	}
	if inv == nil {
		return nil, errInvitationMissing()
	}
	if err := s.redeemable(caller, inv.Email, inv.Expired(s.now()), func() error {
		return s.invites.DeleteTeamInvite(ctx, token)
	}); err != nil {
		return nil, err
	}

	var member *models.TeamMember
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.invites.GetTeamInvite(ctx, token)
		if err != nil {
			return fmt.Errorf("get team invitation: %w", err)
		}
		if current == nil {
			return errInvitationMissing()
		}

		if err := s.teams.AddMember(ctx, inv.TeamID, caller.UserID, models.TeamRoleMember); err != nil {
			return fmt.Errorf("add team member: %w", err)
		}
		if err := s.invites.DeleteTeamInvite(ctx, token); err != nil {
			return fmt.Errorf("delete team invitation: %w", err)
		}
		member, err = s.teams.GetMember(ctx, inv.TeamID, caller.UserID)
		if err != nil {
			return fmt.Errorf("get team member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(ctx, realtime.TeamGroup(inv.TeamID), realtime.EventMemberJoined, member)
	return member, nil
}

func (s *Service) RejectTeam(ctx context.Context, caller auth.Caller, token string) error {
	inv, err := s.invites.GetTeamInvite(ctx, token)
	if err != nil {
		return fmt.Errorf("get team invitation: %w", err)
	}
	if inv == nil {
		return errInvitationMissing()
	}
	if !sameEmail(inv.Email, caller.Email) {
		return apperr.Forbidden(apperr.ReasonInvitationTarget, "this invitation was sent to someone else")
	}
	if err := s.invites.DeleteTeamInvite(ctx, token); err != nil {
		return fmt.Errorf("delete team invitation: %w", err)
	}
	return nil
}

func (s *Service) ListTeamInvites(ctx context.Context, caller auth.Caller) ([]models.TeamInvitation, error) {
	invites, err := s.invites.ListTeamInvites(ctx, caller.Email, s.now())
	if err != nil {
		return nil, fmt.Errorf("list team invitations: %w", err)
	}
	return invites, nil
}

// redeemable checks an invitation before acceptance. Expired invitations
// are deleted on the way out.
func (s *Service) redeemable(caller auth.Caller, email string, expired bool, remove func() error) error {
	if !sameEmail(email, caller.Email) {
		return apperr.Forbidden(apperr.ReasonInvitationTarget, "this invitation was sent to someone else")
	}
	if expired {
		if err := remove(); err != nil {
			s.logger.Warn("failed to delete expired invitation", zap.Error(err))
		}
		return apperr.BadRequest(apperr.ReasonInvitationExpired, "invitation has expired")
	}
	return nil
}

func errInvitationMissing() error {
	return apperr.NotFound(apperr.ReasonInvitationMissing, "invitation not found")
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", apperr.BadRequest(apperr.ReasonInvalidInput, "a valid email is required")
	}
	return email, nil
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
