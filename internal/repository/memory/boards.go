package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/repository"
)

type BoardStore struct{ s *Store }

func (r *BoardStore) Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Board, error) {
	defer r.s.lockWrite(ctx)()

	b := models.Board{ID: uuid.New(), Name: name, OwnerID: ownerID, CreatedAt: r.s.now()}
	r.s.data.boards[b.ID] = b
	return &b, nil
}

func (r *BoardStore) GetByID(_ context.Context, boardID uuid.UUID) (*models.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.data.boards[boardID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *BoardStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	boards := make([]models.Board, 0)
	for k := range r.s.data.members {
		if k.userID != userID {
			continue
		}
		if b, ok := r.s.data.boards[k.scope]; ok {
			boards = append(boards, b)
		}
	}
	slices.SortFunc(boards, func(a, b models.Board) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return boards, nil
}

func (r *BoardStore) Rename(ctx context.Context, boardID uuid.UUID, name string) error {
	defer r.s.lockWrite(ctx)()

	if b, ok := r.s.data.boards[boardID]; ok {
		b.Name = name
		r.s.data.boards[boardID] = b
	}
	return nil
}

// Delete mirrors the Postgres cascades: members, columns, items, favorites
// and invitations go with the board. Activity entries stay.
func (r *BoardStore) Delete(ctx context.Context, boardID uuid.UUID) error {
	defer r.s.lockWrite(ctx)()

	d := &r.s.data
	delete(d.boards, boardID)
	for k := range d.members {
		if k.scope == boardID {
			delete(d.members, k)
		}
	}
	for k := range d.favorites {
		if k.scope == boardID {
			delete(d.favorites, k)
		}
	}
	for token, inv := range d.boardInv {
		if inv.BoardID == boardID {
			delete(d.boardInv, token)
		}
	}
	for id, col := range d.columns {
		if col.BoardID == boardID {
			d.deleteColumn(id)
		}
	}
	return nil
}

func (d *tables) deleteColumn(columnID uuid.UUID) {
	delete(d.columns, columnID)
	for id, it := range d.items {
		if it.ColumnID == columnID {
			delete(d.items, id)
		}
	}
}

type MembershipStore struct{ s *Store }

func (r *MembershipStore) Get(_ context.Context, boardID, userID uuid.UUID) (*models.BoardMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.data.members[memberKey{boardID, userID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *MembershipStore) List(_ context.Context, boardID uuid.UUID) ([]models.BoardMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	members := make([]models.BoardMember, 0)
	for k, m := range r.s.data.members {
		if k.scope == boardID {
			members = append(members, m)
		}
	}
	slices.SortFunc(members, func(a, b models.BoardMember) int { return a.JoinedAt.Compare(b.JoinedAt) })
	return members, nil
}

// ListForUpdate needs no row locks here: transactions already run one at a
// time under txMu.
func (r *MembershipStore) ListForUpdate(ctx context.Context, boardID uuid.UUID) ([]models.BoardMember, error) {
	return r.List(ctx, boardID)
}

func (r *MembershipStore) Add(ctx context.Context, boardID, userID uuid.UUID, role models.Role) error {
	defer r.s.lockWrite(ctx)()

	key := memberKey{boardID, userID}
	if _, ok := r.s.data.members[key]; ok {
		return nil
	}
	r.s.data.members[key] = models.BoardMember{BoardID: boardID, UserID: userID, Role: role, JoinedAt: r.s.now()}
	return nil
}

func (r *MembershipStore) UpdateRole(ctx context.Context, boardID, userID uuid.UUID, role models.Role) error {
	defer r.s.lockWrite(ctx)()

	key := memberKey{boardID, userID}
	if m, ok := r.s.data.members[key]; ok {
		m.Role = role
		r.s.data.members[key] = m
	}
	return nil
}

func (r *MembershipStore) Remove(ctx context.Context, boardID, userID uuid.UUID) error {
	defer r.s.lockWrite(ctx)()

	delete(r.s.data.members, memberKey{boardID, userID})
	return nil
}

type ColumnStore struct{ s *Store }

func (r *ColumnStore) Create(ctx context.Context, boardID uuid.UUID, name string) (*models.Column, error) {
	defer r.s.lockWrite(ctx)()

	pos := 0
	for _, c := range r.s.data.columns {
		if c.BoardID == boardID && c.Position >= pos {
			pos = c.Position + 1
		}
	}
	col := models.Column{ID: uuid.New(), BoardID: boardID, Name: name, Position: pos, CreatedAt: r.s.now()}
	r.s.data.columns[col.ID] = col
	return &col, nil
}

func (r *ColumnStore) GetByID(_ context.Context, columnID uuid.UUID) (*models.Column, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.data.columns[columnID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ColumnStore) ListByBoard(_ context.Context, boardID uuid.UUID) ([]models.Column, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cols := make([]models.Column, 0)
	for _, c := range r.s.data.columns {
		if c.BoardID == boardID {
			cols = append(cols, c)
		}
	}
	slices.SortFunc(cols, func(a, b models.Column) int { return a.Position - b.Position })
	return cols, nil
}

func (r *ColumnStore) Rename(ctx context.Context, columnID uuid.UUID, name string) error {
	defer r.s.lockWrite(ctx)()

	if c, ok := r.s.data.columns[columnID]; ok {
		c.Name = name
		r.s.data.columns[columnID] = c
	}
	return nil
}

func (r *ColumnStore) Delete(ctx context.Context, columnID uuid.UUID) error {
	defer r.s.lockWrite(ctx)()

	r.s.data.deleteColumn(columnID)
	return nil
}

type ItemStore struct{ s *Store }

func (r *ItemStore) Create(ctx context.Context, item models.Item) (*models.Item, error) {
	defer r.s.lockWrite(ctx)()

	now := r.s.now()
	item.ID = uuid.New()
	item.Version = 1
	item.CreatedAt = now
	item.UpdatedAt = now
	r.s.data.items[item.ID] = item
	return &item, nil
}

func (r *ItemStore) GetByID(_ context.Context, itemID uuid.UUID) (*models.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	it, ok := r.s.data.items[itemID]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *ItemStore) ListByColumn(_ context.Context, columnID uuid.UUID) ([]models.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]models.Item, 0)
	for _, it := range r.s.data.items {
		if it.ColumnID == columnID {
			items = append(items, it)
		}
	}
	slices.SortFunc(items, func(a, b models.Item) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return items, nil
}

func (r *ItemStore) Update(ctx context.Context, item models.Item, expectedVersion int64) (*models.Item, error) {
	defer r.s.lockWrite(ctx)()

	stored, ok := r.s.data.items[item.ID]
	if !ok || stored.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	item.CreatedAt = stored.CreatedAt
	item.Version = stored.Version + 1
	item.UpdatedAt = r.s.now()
	r.s.data.items[item.ID] = item
	return &item, nil
}

func (r *ItemStore) Delete(ctx context.Context, itemID uuid.UUID) error {
	defer r.s.lockWrite(ctx)()

	delete(r.s.data.items, itemID)
	return nil
}
