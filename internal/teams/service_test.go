package teams

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateTeamMakesCallerLeader(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), zap.NewNop())
	leader := auth.Caller{UserID: uuid.New()}

	team, err := svc.CreateTeam(ctx, leader, " Platform ")
	require.NoError(t, err)
	assert.Equal(t, "Platform", team.Name)

	members, err := svc.Members(ctx, leader, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.TeamRoleLeader, members[0].Role)

	teams, err := svc.ListTeams(ctx, leader)
	require.NoError(t, err)
	require.Len(t, teams, 1)
}

func TestTeamMembersHiddenFromOutsiders(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), zap.NewNop())

	team, err := svc.CreateTeam(ctx, auth.Caller{UserID: uuid.New()}, "Platform")
	require.NoError(t, err)

	_, err = svc.Members(ctx, auth.Caller{UserID: uuid.New()}, team.ID)
	assert.Equal(t, apperr.ReasonNotMember, apperr.ReasonOf(err))

	_, err = svc.Members(ctx, auth.Caller{UserID: uuid.New()}, uuid.New())
	assert.Equal(t, apperr.ReasonTeamNotFound, apperr.ReasonOf(err))

	_, err = svc.CreateTeam(ctx, auth.Caller{UserID: uuid.New()}, "")
	assert.Equal(t, apperr.ReasonInvalidInput, apperr.ReasonOf(err))
}
