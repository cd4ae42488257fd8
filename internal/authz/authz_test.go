package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTable map[uuid.UUID]models.Role

func (f fixedTable) Get(_ context.Context, boardID, userID uuid.UUID) (*models.BoardMember, error) {
	role, ok := f[userID]
	if !ok {
		return nil, nil
	}
	return &models.BoardMember{BoardID: boardID, UserID: userID, Role: role}, nil
}

type failingTable struct{}

func (failingTable) Get(context.Context, uuid.UUID, uuid.UUID) (*models.BoardMember, error) {
	return nil, errors.New("db down")
}

func TestRoleSetAllows(t *testing.T) {
	tests := []struct {
		set  RoleSet
		role models.Role
		want bool
	}{
		{CanUpdateItem, models.RoleAdmin, true},
		{CanUpdateItem, models.RoleEditor, true},
		{CanUpdateItem, models.RoleViewer, false},
		{CanUpdateItem, models.RoleOwner, true},
		{CanAssignItem, models.RoleEditor, false},
		{CanAssignItem, models.RoleOwner, true},
		{CanDeleteItem, models.RoleEditor, false},
		{CanDeleteBoard, models.RoleAdmin, false},
		{CanDeleteBoard, models.RoleOwner, true},
		{CanRead, models.RoleViewer, true},
		{Require(models.RoleEditor), models.RoleOwner, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.set.Allows(tt.role), "%s allows %s", tt.set, tt.role)
	}
}

func TestHasPermission(t *testing.T) {
	ctx := context.Background()
	boardID := uuid.New()
	editor, viewer, stranger := uuid.New(), uuid.New(), uuid.New()
	guard := NewGuard(fixedTable{editor: models.RoleEditor, viewer: models.RoleViewer})

	ok, err := guard.HasPermission(ctx, auth.Caller{UserID: editor}, boardID, CanUpdateItem)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.HasPermission(ctx, auth.Caller{UserID: viewer}, boardID, CanUpdateItem)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.HasPermission(ctx, auth.Caller{UserID: stranger}, boardID, CanRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthorizeReasons(t *testing.T) {
	ctx := context.Background()
	boardID := uuid.New()
	viewer, stranger := uuid.New(), uuid.New()
	guard := NewGuard(fixedTable{viewer: models.RoleViewer})

	_, err := guard.Authorize(ctx, auth.Caller{UserID: stranger}, boardID, CanRead)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.ReasonNotMember, apperr.ReasonOf(err))

	_, err = guard.Authorize(ctx, auth.Caller{UserID: viewer}, boardID, CanDeleteItem)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.ReasonInsufficientRole, apperr.ReasonOf(err))

	m, err := guard.Authorize(ctx, auth.Caller{UserID: viewer}, boardID, CanRead)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, m.Role)
}

func TestAuthorizeStorageErrorIsNotForbidden(t *testing.T) {
	guard := NewGuard(failingTable{})

	_, err := guard.Authorize(context.Background(), auth.Caller{UserID: uuid.New()}, uuid.New(), CanRead)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
