package teams

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
)

type Service struct {
	teams  repository.TeamRepository
	tx     repository.TxManager
	logger *zap.Logger
}

func NewService(repos *repository.Repositories, logger *zap.Logger) *Service {
	return &Service{teams: repos.Teams, tx: repos.Tx, logger: logger}
}

// CreateTeam stores the team with the caller as its leader.
func (s *Service) CreateTeam(ctx context.Context, caller auth.Caller, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest(apperr.ReasonInvalidInput, "team name is required")
	}

	var team *models.Team
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		team, err = s.teams.Create(ctx, name, caller.UserID)
		if err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		if err := s.teams.AddMember(ctx, team.ID, caller.UserID, models.TeamRoleLeader); err != nil {
			return fmt.Errorf("add leader: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team created", zap.String("team_id", team.ID.String()))
	return team, nil
}

func (s *Service) ListTeams(ctx context.Context, caller auth.Caller) ([]models.Team, error) {
	teams, err := s.teams.ListForUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// Members is visible to team members only.
func (s *Service) Members(ctx context.Context, caller auth.Caller, teamID uuid.UUID) ([]models.TeamMember, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, apperr.NotFound(apperr.ReasonTeamNotFound, "team not found")
	}
	me, err := s.teams.GetMember(ctx, teamID, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("get team member: %w", err)
	}
	if me == nil {
		return nil, apperr.Forbidden(apperr.ReasonNotMember, "you are not a member of this team")
	}

	members, err := s.teams.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}
