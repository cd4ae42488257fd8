package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

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

type broadcast struct {
	group realtime.GroupKey
	event string
}

type recorder struct {
	mu     sync.Mutex
	events []broadcast
}

func (r *recorder) Broadcast(_ context.Context, group realtime.GroupKey, event string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, broadcast{group, event})
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last() broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	ctx     context.Context
	svc     *Service
	repos   *repository.Repositories
	rec     *recorder
	boardID uuid.UUID
	col     *models.Column

	owner, admin, editor, viewer, assignee, stranger auth.Caller
}

var fixedNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.New()

	f := &fixture{
		ctx:      ctx,
		repos:    repos,
		rec:      &recorder{},
		owner:    auth.Caller{UserID: uuid.New()},
		admin:    auth.Caller{UserID: uuid.New()},
		editor:   auth.Caller{UserID: uuid.New()},
		viewer:   auth.Caller{UserID: uuid.New()},
		assignee: auth.Caller{UserID: uuid.New()},
		stranger: auth.Caller{UserID: uuid.New()},
	}

	board, err := repos.Boards.Create(ctx, "Sprint", f.owner.UserID)
	require.NoError(t, err)
	f.boardID = board.ID
	for caller, role := range map[uuid.UUID]models.Role{
		f.owner.UserID:    models.RoleOwner,
		f.admin.UserID:    models.RoleAdmin,
		f.editor.UserID:   models.RoleEditor,
		f.viewer.UserID:   models.RoleViewer,
		f.assignee.UserID: models.RoleViewer,
	} {
		require.NoError(t, repos.Members.Add(ctx, board.ID, caller, role))
	}
	f.col, err = repos.Columns.Create(ctx, board.ID, "Todo")
	require.NoError(t, err)

	f.svc = NewService(repos, authz.NewGuard(repos.Members), f.rec, zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }))
	return f
}

func day(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func strPtr(s string) *string { return &s }

// seedAssigned creates an item assigned to f.assignee with a due date.
func (f *fixture) seedAssigned(t *testing.T) *models.Item {
	t.Helper()
	item, err := f.svc.CreateItem(f.ctx, f.admin, CreateItemInput{
		ColumnID:   f.col.ID,
		Title:      "Write report",
		Status:     "Todo",
		AssigneeID: &f.assignee.UserID,
		DueDate:    day("2024-01-01"),
	})
	require.NoError(t, err)
	return item
}

func inputFrom(item *models.Item) UpdateItemInput {
	return UpdateItemInput{
		ID:          item.ID,
		ColumnID:    item.ColumnID,
		Title:       item.Title,
		Description: item.Description,
		Status:      item.Status,
		AssigneeID:  item.AssigneeID,
		StartDate:   item.StartDate,
		DueDate:     item.DueDate,
	}
}

func (f *fixture) trail(t *testing.T, itemID uuid.UUID) []models.ActivityLog {
	t.Helper()
	entries, err := f.repos.Activity.ListByItem(f.ctx, itemID)
	require.NoError(t, err)
	return entries
}

func assertRejected(t *testing.T, err error, kind apperr.Kind, reason string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
	assert.Equal(t, reason, apperr.ReasonOf(err))
}

func TestDiff(t *testing.T) {
	col := uuid.New()
	before := models.Item{ColumnID: col, Title: "a", Status: "Todo", DueDate: day("2024-01-01")}
	after := before
	after.Title = "b"
	after.Description = strPtr("")
	after.Status = "Done"
	after.DueDate = day("2024-01-10")

	changes := Diff(before, after)
	require.Len(t, changes, 3)
	assert.Equal(t, []string{FieldTitle, FieldDueDate, FieldStatus},
		[]string{changes[0].Field, changes[1].Field, changes[2].Field})
	assert.Equal(t, "2024-01-01", changes[1].Old)
	assert.Equal(t, "2024-01-10", changes[1].New)
	assert.Equal(t, models.ActivityStatusChanged, changes[2].Action)
	assert.Equal(t, models.ActivityUpdated, changes[0].Action)

	assert.Empty(t, Diff(before, before))
}

func TestAuditEntriesDetails(t *testing.T) {
	entries := AuditEntries(uuid.New(), uuid.New(), []FieldChange{
		{Field: FieldStatus, Old: "Todo", New: "Done", Action: models.ActivityStatusChanged},
		{Field: FieldDueDate, Old: "2024-01-01", New: "", Action: models.ActivityUpdated},
	}, fixedNow)

	require.Len(t, entries, 2)
	assert.Equal(t, "Status changed to Done", entries[0].Details)
	assert.Equal(t, "DueDate cleared", entries[1].Details)
	assert.Equal(t, fixedNow, entries[0].Timestamp)
}

func TestCreateItem(t *testing.T) {
	f := newFixture(t)

	item, err := f.svc.CreateItem(f.ctx, f.editor, CreateItemInput{ColumnID: f.col.ID, Title: "Plan"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.Version)

	trail := f.trail(t, item.ID)
	require.Len(t, trail, 1)
	assert.Equal(t, models.ActivityCreated, trail[0].Action)
	assert.Empty(t, trail[0].Field)
	assert.Equal(t, broadcast{realtime.BoardGroup(f.boardID), realtime.EventItemCreated}, f.rec.last())
}

func TestCreateItemRules(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateItem(f.ctx, f.viewer, CreateItemInput{ColumnID: f.col.ID, Title: "x"})
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonInsufficientRole)

	_, err = f.svc.CreateItem(f.ctx, f.editor, CreateItemInput{ColumnID: f.col.ID, Title: "x", AssigneeID: &f.viewer.UserID})
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonInsufficientRole)

	_, err = f.svc.CreateItem(f.ctx, f.stranger, CreateItemInput{ColumnID: f.col.ID, Title: "x"})
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonNotMember)

	_, err = f.svc.CreateItem(f.ctx, f.admin, CreateItemInput{ColumnID: uuid.New(), Title: "x"})
	assertRejected(t, err, apperr.KindNotFound, apperr.ReasonColumnNotFound)

	_, err = f.svc.CreateItem(f.ctx, f.owner, CreateItemInput{ColumnID: f.col.ID, Title: "x", AssigneeID: &f.viewer.UserID})
	assert.NoError(t, err)

	assert.Equal(t, 1, f.rec.count())
}

func TestEditorMayChangeAnyFieldExceptAssignee(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)

	in := inputFrom(item)
	in.Title = "Write final report"
	in.Description = strPtr("with charts")
	in.Status = "Doing"
	in.StartDate = day("2023-12-20")
	in.DueDate = day("2024-01-05")

	updated, err := f.svc.UpdateItem(f.ctx, f.editor, item.ID, in)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	trail := f.trail(t, item.ID)
	require.Len(t, trail, 6)
	fields := make([]string, 0, 5)
	for _, e := range trail[1:] {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{FieldTitle, FieldDescription, FieldStartDate, FieldDueDate, FieldStatus}, fields)

	in = inputFrom(updated)
	in.AssigneeID = &f.editor.UserID
	_, err = f.svc.UpdateItem(f.ctx, f.editor, item.ID, in)
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonInsufficientRole)

	_, err = f.svc.UpdateItem(f.ctx, f.admin, item.ID, in)
	require.NoError(t, err)
}

func TestAssigneeDueDateOnly(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)
	before := f.rec.count()

	in := inputFrom(item)
	in.DueDate = day("2024-01-10")
	updated, err := f.svc.UpdateItem(f.ctx, f.assignee, item.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", updated.DueDate.Format(DateLayout))

	trail := f.trail(t, item.ID)
	require.Len(t, trail, 2)
	entry := trail[1]
	assert.Equal(t, models.ActivityUpdated, entry.Action)
	assert.Equal(t, "DueDate", entry.Field)
	assert.Equal(t, "2024-01-01", entry.OldValue)
	assert.Equal(t, "2024-01-10", entry.NewValue)
	assert.Equal(t, f.assignee.UserID, entry.UserID)

	assert.Equal(t, before+1, f.rec.count())
	assert.Equal(t, realtime.EventItemUpdated, f.rec.last().event)
}

func TestAssigneeStatusAndDatesOneEntryEach(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)

	in := inputFrom(item)
	in.Status = "Done"
	in.StartDate = day("2023-12-28")
	in.DueDate = day("2024-01-03")
	_, err := f.svc.UpdateItem(f.ctx, f.assignee, item.ID, in)
	require.NoError(t, err)

	trail := f.trail(t, item.ID)[1:]
	require.Len(t, trail, 3)
	assert.Equal(t, FieldStartDate, trail[0].Field)
	assert.Equal(t, FieldDueDate, trail[1].Field)
	assert.Equal(t, FieldStatus, trail[2].Field)
	assert.Equal(t, models.ActivityStatusChanged, trail[2].Action)
}

func TestAssigneeRestrictedFieldsRejectWholeUpdate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, in *UpdateItemInput)
	}{
		{"title", func(_ *fixture, in *UpdateItemInput) { in.Title = "renamed" }},
		{"description", func(_ *fixture, in *UpdateItemInput) { in.Description = strPtr("new") }},
		{"assignee", func(f *fixture, in *UpdateItemInput) { in.AssigneeID = &f.viewer.UserID }},
		{"unassign", func(_ *fixture, in *UpdateItemInput) { in.AssigneeID = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			item := f.seedAssigned(t)
			broadcasts := f.rec.count()

			in := inputFrom(item)
			in.Status = "Done"
			in.DueDate = day("2024-01-10")
			tt.mutate(f, &in)

			_, err := f.svc.UpdateItem(f.ctx, f.assignee, item.ID, in)
			assertRejected(t, err, apperr.KindForbidden, apperr.ReasonAssigneeFields)

			after, err := f.repos.Items.GetByID(f.ctx, item.ID)
			require.NoError(t, err)
			assert.Equal(t, *item, *after)
			assert.Len(t, f.trail(t, item.ID), 1)
			assert.Equal(t, broadcasts, f.rec.count())
		})
	}
}

func TestNonAssigneeWithoutWriteRole(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)

	in := inputFrom(item)
	in.Status = "Done"

	_, err := f.svc.UpdateItem(f.ctx, f.viewer, item.ID, in)
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonNotYourTask)

	_, err = f.svc.UpdateItem(f.ctx, f.stranger, item.ID, in)
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonNotMember)

	_, err = f.svc.UpdateItemStatus(f.ctx, f.viewer, item.ID, "Done")
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonNotYourTask)

	assert.Len(t, f.trail(t, item.ID), 1)
}

func TestIdenticalUpdateIsNoOp(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)
	broadcasts := f.rec.count()

	in := inputFrom(item)
	in.Description = strPtr("")

	for _, caller := range []auth.Caller{f.editor, f.assignee} {
		got, err := f.svc.UpdateItem(f.ctx, caller, item.ID, in)
		require.NoError(t, err)
		assert.Equal(t, item.Version, got.Version)
	}
	_, err := f.svc.UpdateItemStatus(f.ctx, f.assignee, item.ID, item.Status)
	require.NoError(t, err)

	assert.Len(t, f.trail(t, item.ID), 1)
	assert.Equal(t, broadcasts, f.rec.count())
}

func TestUpdateItemStatus(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)

	updated, err := f.svc.UpdateItemStatus(f.ctx, f.assignee, item.ID, "Done")
	require.NoError(t, err)
	assert.Equal(t, "Done", updated.Status)

	trail := f.trail(t, item.ID)
	require.Len(t, trail, 2)
	assert.Equal(t, models.ActivityStatusChanged, trail[1].Action)
	assert.Equal(t, "Todo", trail[1].OldValue)
	assert.Equal(t, "Done", trail[1].NewValue)
	assert.Equal(t, "Status changed to Done", trail[1].Details)
	assert.Equal(t, realtime.EventItemStatusChanged, f.rec.last().event)
}

func TestUpdateItemLookupErrors(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)

	in := inputFrom(item)
	_, err := f.svc.UpdateItem(f.ctx, f.editor, uuid.New(), in)
	assertRejected(t, err, apperr.KindBadRequest, apperr.ReasonIDMismatch)

	missing := uuid.New()
	in.ID = missing
	_, err = f.svc.UpdateItem(f.ctx, f.editor, missing, in)
	assertRejected(t, err, apperr.KindNotFound, apperr.ReasonItemNotFound)

	in = inputFrom(item)
	in.ColumnID = uuid.New()
	_, err = f.svc.UpdateItem(f.ctx, f.editor, item.ID, in)
	assertRejected(t, err, apperr.KindNotFound, apperr.ReasonColumnNotFound)

	other, err := f.repos.Boards.Create(f.ctx, "Other", f.owner.UserID)
	require.NoError(t, err)
	foreign, err := f.repos.Columns.Create(f.ctx, other.ID, "Elsewhere")
	require.NoError(t, err)
	in.ColumnID = foreign.ID
	_, err = f.svc.UpdateItem(f.ctx, f.editor, item.ID, in)
	assertRejected(t, err, apperr.KindBadRequest, apperr.ReasonColumnMismatch)
}

func TestMoveItemWithinBoard(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)
	done, err := f.repos.Columns.Create(f.ctx, f.boardID, "Done")
	require.NoError(t, err)

	in := inputFrom(item)
	in.ColumnID = done.ID
	_, err = f.svc.UpdateItem(f.ctx, f.assignee, item.ID, in)
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonAssigneeFields)

	moved, err := f.svc.UpdateItem(f.ctx, f.editor, item.ID, in)
	require.NoError(t, err)
	assert.Equal(t, done.ID, moved.ColumnID)

	trail := f.trail(t, item.ID)
	assert.Equal(t, FieldColumn, trail[len(trail)-1].Field)
}

func TestStaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)

	in := inputFrom(item)
	in.Title = "first"
	_, err := f.svc.UpdateItem(f.ctx, f.editor, item.ID, in)
	require.NoError(t, err)

	stale := item.Version
	in.Title = "second"
	in.Version = &stale
	_, err = f.svc.UpdateItem(f.ctx, f.admin, item.ID, in)
	assertRejected(t, err, apperr.KindConflict, apperr.ReasonVersionConflict)
	assert.Len(t, f.trail(t, item.ID), 2)
}

// racingItems loses every compare-and-set, as if another writer always
// commits between our read and our write.
type racingItems struct {
	repository.ItemRepository
}

func (racingItems) Update(context.Context, models.Item, int64) (*models.Item, error) {
	return nil, repository.ErrVersionConflict
}

func TestConcurrentWriterConflictWritesNoAudit(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)
	broadcasts := f.rec.count()

	repos := *f.repos
	repos.Items = racingItems{f.repos.Items}
	svc := NewService(&repos, authz.NewGuard(repos.Members), f.rec, zap.NewNop())

	in := inputFrom(item)
	in.Title = "lost"
	_, err := svc.UpdateItem(f.ctx, f.editor, item.ID, in)
	assertRejected(t, err, apperr.KindConflict, apperr.ReasonVersionConflict)

	assert.Len(t, f.trail(t, item.ID), 1)
	assert.Equal(t, broadcasts, f.rec.count())
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)
	broadcasts := f.rec.count()

	for _, caller := range []auth.Caller{f.viewer, f.editor, f.assignee} {
		err := f.svc.DeleteItem(f.ctx, caller, item.ID)
		assertRejected(t, err, apperr.KindForbidden, apperr.ReasonInsufficientRole)
	}
	assert.Len(t, f.trail(t, item.ID), 1)
	assert.Equal(t, broadcasts, f.rec.count())

	require.NoError(t, f.svc.DeleteItem(f.ctx, f.owner, item.ID))

	gone, err := f.repos.Items.GetByID(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	trail := f.trail(t, item.ID)
	require.Len(t, trail, 2)
	assert.Equal(t, models.ActivityDeleted, trail[1].Action)
	assert.Equal(t, realtime.EventItemDeleted, f.rec.last().event)

	err = f.svc.DeleteItem(f.ctx, f.owner, item.ID)
	assertRejected(t, err, apperr.KindNotFound, apperr.ReasonItemNotFound)
}

func TestItemActivityReadPath(t *testing.T) {
	f := newFixture(t)
	item := f.seedAssigned(t)
	_, err := f.svc.UpdateItemStatus(f.ctx, f.assignee, item.ID, "Doing")
	require.NoError(t, err)

	entries, err := f.svc.ItemActivity(f.ctx, f.viewer, item.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActivityCreated, entries[0].Action)
	assert.Equal(t, models.ActivityStatusChanged, entries[1].Action)

	_, err = f.svc.ItemActivity(f.ctx, f.stranger, item.ID)
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonNotMember)
}

func TestColumnOperations(t *testing.T) {
	f := newFixture(t)

	col, err := f.svc.CreateColumn(f.ctx, f.editor, f.boardID, "Doing")
	require.NoError(t, err)
	assert.Equal(t, 1, col.Position)
	assert.Equal(t, realtime.EventColumnCreated, f.rec.last().event)

	_, err = f.svc.CreateColumn(f.ctx, f.viewer, f.boardID, "Nope")
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonInsufficientRole)

	_, err = f.svc.CreateColumn(f.ctx, f.admin, uuid.New(), "Nope")
	assertRejected(t, err, apperr.KindNotFound, apperr.ReasonBoardNotFound)

	renamed, err := f.svc.RenameColumn(f.ctx, f.editor, col.ID, "In progress")
	require.NoError(t, err)
	assert.Equal(t, "In progress", renamed.Name)

	item, err := f.svc.CreateItem(f.ctx, f.editor, CreateItemInput{ColumnID: col.ID, Title: "card"})
	require.NoError(t, err)

	err = f.svc.DeleteColumn(f.ctx, f.editor, col.ID)
	assertRejected(t, err, apperr.KindForbidden, apperr.ReasonInsufficientRole)

	require.NoError(t, f.svc.DeleteColumn(f.ctx, f.admin, col.ID))
	trail := f.trail(t, item.ID)
	require.Len(t, trail, 2)
	assert.Equal(t, models.ActivityDeleted, trail[1].Action)
	assert.Equal(t, realtime.EventColumnDeleted, f.rec.last().event)

	_, err = f.svc.ListItems(f.ctx, f.viewer, col.ID)
	assertRejected(t, err, apperr.KindNotFound, apperr.ReasonColumnNotFound)
}
