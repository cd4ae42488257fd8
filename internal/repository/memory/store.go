// Package memory is an in-process backend for every repository interface.
// It is used by STORE_DRIVER=memory and by service and handler tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/repository"
)

type memberKey struct {
	scope  uuid.UUID
	userID uuid.UUID
}

type roomKey struct {
	roomType models.RoomType
	entityID uuid.UUID
}

// tables holds every row. All access goes through Store.mu.
type tables struct {
	users       map[uuid.UUID]models.User
	teams       map[uuid.UUID]models.Team
	teamMembers map[memberKey]models.TeamMember
	boards      map[uuid.UUID]models.Board
	members     map[memberKey]models.BoardMember
	columns     map[uuid.UUID]models.Column
	items       map[uuid.UUID]models.Item
	activity    []models.ActivityLog
	favorites   map[memberKey]struct{}
	boardInv    map[string]models.BoardInvitation
	teamInv     map[string]models.TeamInvitation
	rooms       map[uuid.UUID]models.ChatRoom
	roomIndex   map[roomKey]uuid.UUID
	messages    []models.ChatMessage
	nextMsgID   int64
}

func newTables() tables {
	return tables{
		users:       make(map[uuid.UUID]models.User),
		teams:       make(map[uuid.UUID]models.Team),
		teamMembers: make(map[memberKey]models.TeamMember),
		boards:      make(map[uuid.UUID]models.Board),
		members:     make(map[memberKey]models.BoardMember),
		columns:     make(map[uuid.UUID]models.Column),
		items:       make(map[uuid.UUID]models.Item),
		favorites:   make(map[memberKey]struct{}),
		boardInv:    make(map[string]models.BoardInvitation),
		teamInv:     make(map[string]models.TeamInvitation),
		rooms:       make(map[uuid.UUID]models.ChatRoom),
		roomIndex:   make(map[roomKey]uuid.UUID),
	}
}

// snapshot copies every table. Rows are values so a shallow map copy is
// enough, except for pointer fields which are never mutated in place.
func (t *tables) snapshot() tables {
	return tables{
		users:       maps.Clone(t.users),
		teams:       maps.Clone(t.teams),
		teamMembers: maps.Clone(t.teamMembers),
		boards:      maps.Clone(t.boards),
		members:     maps.Clone(t.members),
		columns:     maps.Clone(t.columns),
		items:       maps.Clone(t.items),
		activity:    append([]models.ActivityLog(nil), t.activity...),
		favorites:   maps.Clone(t.favorites),
		boardInv:    maps.Clone(t.boardInv),
		teamInv:     maps.Clone(t.teamInv),
		rooms:       maps.Clone(t.rooms),
		roomIndex:   maps.Clone(t.roomIndex),
		messages:    append([]models.ChatMessage(nil), t.messages...),
		nextMsgID:   t.nextMsgID,
	}
}

// Store owns the shared tables. Each repository type is a thin view over it.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data tables
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newTables(), now: time.Now}
}

// SetClock overrides the time source used for generated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

type txKey struct{}

// WithinTx serializes transactions and restores the pre-transaction snapshot
// when fn fails. Writes outside a transaction wait on txMu, so a rollback
// never discards them. Reads are not blocked and can observe a
// transaction's partial writes.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.data.snapshot()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

// lockWrite takes the table lock for a single write and returns its unlock.
// Outside a transaction it also holds txMu so the write cannot land between
// a transaction's snapshot and its rollback.
func (s *Store) lockWrite(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// New returns every repository backed by a fresh Store.
func New() *repository.Repositories {
	return NewStore().Repositories()
}

func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Users:       &UserStore{s},
		Teams:       &TeamStore{s},
		Boards:      &BoardStore{s},
		Members:     &MembershipStore{s},
		Columns:     &ColumnStore{s},
		Items:       &ItemStore{s},
		Activity:    &ActivityStore{s},
		Favorites:   &FavoriteStore{s},
		Invitations: &InvitationStore{s},
		Chat:        &ChatStore{s},
		Tx:          s,
	}
}
