package membership

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/realtime"
	"github.com/lalith-99/boardsync/internal/repository"
	"github.com/lalith-99/boardsync/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Broadcast(_ context.Context, _ realtime.GroupKey, event string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

type fixture struct {
	ctx     context.Context
	svc     *Service
	repos   *repository.Repositories
	rec     *recorder
	boardID uuid.UUID

	owner, admin, editor, viewer auth.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.New()
	f := &fixture{ctx: ctx, repos: repos, rec: &recorder{}}

	for _, c := range []*auth.Caller{&f.owner, &f.admin, &f.editor, &f.viewer} {
		u, err := repos.Users.Create(ctx, uuid.NewString()+"@example.com", "member", "hash")
		require.NoError(t, err)
		c.UserID = u.ID
		c.Email = u.Email
	}

	board, err := repos.Boards.Create(ctx, "Roadmap", f.owner.UserID)
	require.NoError(t, err)
	f.boardID = board.ID
	require.NoError(t, repos.Members.Add(ctx, board.ID, f.owner.UserID, models.RoleOwner))
	require.NoError(t, repos.Members.Add(ctx, board.ID, f.admin.UserID, models.RoleAdmin))
	require.NoError(t, repos.Members.Add(ctx, board.ID, f.editor.UserID, models.RoleEditor))
	require.NoError(t, repos.Members.Add(ctx, board.ID, f.viewer.UserID, models.RoleViewer))

	f.svc = NewService(repos, authz.NewGuard(repos.Members), f.rec, zap.NewNop())
	return f
}

func (f *fixture) roleOf(t *testing.T, userID uuid.UUID) models.Role {
	t.Helper()
	m, err := f.repos.Members.Get(f.ctx, f.boardID, userID)
	require.NoError(t, err)
	if m == nil {
		return ""
	}
	return m.Role
}

func TestListMembersIncludesProfile(t *testing.T) {
	f := newFixture(t)

	members, err := f.svc.ListMembers(f.ctx, f.viewer, f.boardID)
	require.NoError(t, err)
	require.Len(t, members, 4)
	for _, m := range members {
		assert.NotEmpty(t, m.Email)
		assert.Equal(t, "member", m.DisplayName)
	}
}

func TestListMembersRequiresMembership(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListMembers(f.ctx, auth.Caller{UserID: uuid.New()}, f.boardID)
	assert.Equal(t, apperr.ReasonNotMember, apperr.ReasonOf(err))
}

func TestChangeRolePromotesEditor(t *testing.T) {
	f := newFixture(t)

	m, err := f.svc.ChangeRole(f.ctx, f.admin, f.boardID, f.editor.UserID, "Admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, m.Role)
	assert.Equal(t, models.RoleAdmin, f.roleOf(t, f.editor.UserID))
	assert.Equal(t, []string{realtime.EventMemberRoleChanged}, f.rec.events)
}

func TestChangeRoleRejections(t *testing.T) {
	cases := []struct {
		name   string
		caller func(f *fixture) auth.Caller
		target func(f *fixture) uuid.UUID
		role   string
		reason string
	}{
		{
			name:   "editor cannot manage members",
			caller: func(f *fixture) auth.Caller { return f.editor },
			target: func(f *fixture) uuid.UUID { return f.viewer.UserID },
			role:   "editor",
			reason: apperr.ReasonInsufficientRole,
		},
		{
			name:   "unknown role",
			caller: func(f *fixture) auth.Caller { return f.admin },
			target: func(f *fixture) uuid.UUID { return f.viewer.UserID },
			role:   "superuser",
			reason: apperr.ReasonInvalidRole,
		},
		{
			name:   "owner cannot be granted",
			caller: func(f *fixture) auth.Caller { return f.owner },
			target: func(f *fixture) uuid.UUID { return f.viewer.UserID },
			role:   "owner",
			reason: apperr.ReasonInvalidRole,
		},
		{
			name:   "owner row is immutable",
			caller: func(f *fixture) auth.Caller { return f.admin },
			target: func(f *fixture) uuid.UUID { return f.owner.UserID },
			role:   "viewer",
			reason: apperr.ReasonOwnerImmutable,
		},
		{
			name:   "sole admin cannot be demoted",
			caller: func(f *fixture) auth.Caller { return f.admin },
			target: func(f *fixture) uuid.UUID { return f.admin.UserID },
			role:   "editor",
			reason: apperr.ReasonLastAdmin,
		},
		{
			name:   "missing member",
			caller: func(f *fixture) auth.Caller { return f.admin },
			target: func(f *fixture) uuid.UUID { return uuid.New() },
			role:   "viewer",
			reason: apperr.ReasonMemberNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.ChangeRole(f.ctx, tc.caller(f), f.boardID, tc.target(f), tc.role)
			assert.Equal(t, tc.reason, apperr.ReasonOf(err))
			assert.Empty(t, f.rec.events)
		})
	}
}

func TestChangeRoleDemotesAdminWhenAnotherRemains(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ChangeRole(f.ctx, f.owner, f.boardID, f.editor.UserID, "admin")
	require.NoError(t, err)

	_, err = f.svc.ChangeRole(f.ctx, f.editor, f.boardID, f.admin.UserID, "viewer")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, f.roleOf(t, f.admin.UserID))
}

func TestConcurrentDemotionsKeepOneAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ChangeRole(f.ctx, f.owner, f.boardID, f.editor.UserID, "admin")
	require.NoError(t, err)

	targets := []uuid.UUID{f.admin.UserID, f.editor.UserID}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, id := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.ChangeRole(f.ctx, f.owner, f.boardID, id, "viewer")
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.Equal(t, apperr.ReasonLastAdmin, apperr.ReasonOf(err))
		}
	}
	assert.Equal(t, 1, failed)

	admins := 0
	for _, id := range targets {
		if f.roleOf(t, id) == models.RoleAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}

func TestChangeRoleUnknownBoard(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ChangeRole(f.ctx, f.admin, uuid.New(), f.viewer.UserID, "editor")
	assert.Equal(t, apperr.ReasonBoardNotFound, apperr.ReasonOf(err))
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.RemoveMember(f.ctx, f.admin, f.boardID, f.viewer.UserID))
	assert.Empty(t, f.roleOf(t, f.viewer.UserID))
	assert.Equal(t, []string{realtime.EventMemberRemoved}, f.rec.events)
}

func TestRemoveMemberSelfLeave(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.RemoveMember(f.ctx, f.viewer, f.boardID, f.viewer.UserID))
	assert.Empty(t, f.roleOf(t, f.viewer.UserID))
}

func TestRemoveMemberRejections(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RemoveMember(f.ctx, f.editor, f.boardID, f.viewer.UserID)
	assert.Equal(t, apperr.ReasonInsufficientRole, apperr.ReasonOf(err))

	err = f.svc.RemoveMember(f.ctx, f.admin, f.boardID, f.owner.UserID)
	assert.Equal(t, apperr.ReasonOwnerImmutable, apperr.ReasonOf(err))

	err = f.svc.RemoveMember(f.ctx, f.admin, f.boardID, f.admin.UserID)
	assert.Equal(t, apperr.ReasonLastAdmin, apperr.ReasonOf(err))

	assert.Equal(t, models.RoleViewer, f.roleOf(t, f.viewer.UserID))
	assert.Equal(t, models.RoleAdmin, f.roleOf(t, f.admin.UserID))
}
