package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/models"
)

type ActivityStore struct{ s *Store }

// Append copies the entry. The caller assigns ID and Timestamp.
func (r *ActivityStore) Append(ctx context.Context, entry models.ActivityLog) error {
	defer r.s.lockWrite(ctx)()

	r.s.data.activity = append(r.s.data.activity, entry)
	return nil
}

func (r *ActivityStore) ListByItem(_ context.Context, itemID uuid.UUID) ([]models.ActivityLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entries := make([]models.ActivityLog, 0)
	for _, e := range r.s.data.activity {
		if e.ItemID == itemID {
			entries = append(entries, e)
		}
	}
	// Stable keeps append order for equal timestamps, like seq does in SQL.
	slices.SortStableFunc(entries, func(a, b models.ActivityLog) int { return a.Timestamp.Compare(b.Timestamp) })
	return entries, nil
}

type FavoriteStore struct{ s *Store }

func (r *FavoriteStore) Exists(_ context.Context, userID, boardID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.data.favorites[memberKey{boardID, userID}]
	return ok, nil
}

func (r *FavoriteStore) Add(ctx context.Context, userID, boardID uuid.UUID) error {
	defer r.s.lockWrite(ctx)()

	r.s.data.favorites[memberKey{boardID, userID}] = struct{}{}
	return nil
}

func (r *FavoriteStore) Remove(ctx context.Context, userID, boardID uuid.UUID) error {
	defer r.s.lockWrite(ctx)()

	delete(r.s.data.favorites, memberKey{boardID, userID})
	return nil
}

func (r *FavoriteStore) ListBoards(_ context.Context, userID uuid.UUID) ([]models.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	boards := make([]models.Board, 0)
	for k := range r.s.data.favorites {
		if k.userID != userID {
			continue
		}
		if b, ok := r.s.data.boards[k.scope]; ok {
			boards = append(boards, b)
		}
	}
	slices.SortFunc(boards, func(a, b models.Board) int { return strings.Compare(a.Name, b.Name) })
	return boards, nil
}

type InvitationStore struct{ s *Store }

func (r *InvitationStore) CreateBoardInvite(ctx context.Context, inv models.BoardInvitation) error {
	defer r.s.lockWrite(ctx)()

	inv.Email = strings.ToLower(inv.Email)
	r.s.data.boardInv[inv.Token] = inv
	return nil
}

func (r *InvitationStore) GetBoardInvite(_ context.Context, token string) (*models.BoardInvitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inv, ok := r.s.data.boardInv[token]
	if !ok {
		return nil, nil
	}
	inv.BoardName = r.s.data.boards[inv.BoardID].Name
	return &inv, nil
}

func (r *InvitationStore) DeleteBoardInvite(ctx context.Context, token string) error {
	defer r.s.lockWrite(ctx)()

	delete(r.s.data.boardInv, token)
	return nil
}

func (r *InvitationStore) ListBoardInvites(_ context.Context, email string, now time.Time) ([]models.BoardInvitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(email)
	invites := make([]models.BoardInvitation, 0)
	for _, inv := range r.s.data.boardInv {
		if inv.Email != email || inv.Expired(now) {
			continue
		}
		inv.BoardName = r.s.data.boards[inv.BoardID].Name
		invites = append(invites, inv)
	}
	slices.SortFunc(invites, func(a, b models.BoardInvitation) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return invites, nil
}

func (r *InvitationStore) CreateTeamInvite(ctx context.Context, inv models.TeamInvitation) error {
	defer r.s.lockWrite(ctx)()

	inv.Email = strings.ToLower(inv.Email)
	r.s.data.teamInv[inv.Token] = inv
	return nil
}

func (r *InvitationStore) GetTeamInvite(_ context.Context, token string) (*models.TeamInvitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inv, ok := r.s.data.teamInv[token]
	if !ok {
		return nil, nil
	}
	inv.TeamName = r.s.data.teams[inv.TeamID].Name
	return &inv, nil
}

func (r *InvitationStore) DeleteTeamInvite(ctx context.Context, token string) error {
	defer r.s.lockWrite(ctx)()

	delete(r.s.data.teamInv, token)
	return nil
}

func (r *InvitationStore) ListTeamInvites(_ context.Context, email string, now time.Time) ([]models.TeamInvitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(email)
	invites := make([]models.TeamInvitation, 0)
	for _, inv := range r.s.data.teamInv {
		if inv.Email != email || inv.Expired(now) {
			continue
		}
		inv.TeamName = r.s.data.teams[inv.TeamID].Name
		invites = append(invites, inv)
	}
	slices.SortFunc(invites, func(a, b models.TeamInvitation) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return invites, nil
}

type ChatStore struct{ s *Store }

func (r *ChatStore) GetRoom(_ context.Context, roomType models.RoomType, entityID uuid.UUID) (*models.ChatRoom, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.data.roomIndex[roomKey{roomType, entityID}]
	if !ok {
		return nil, nil
	}
	room := r.s.data.rooms[id]
	return &room, nil
}

func (r *ChatStore) GetRoomByID(_ context.Context, roomID uuid.UUID) (*models.ChatRoom, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.data.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (r *ChatStore) CreateRoom(ctx context.Context, roomType models.RoomType, entityID uuid.UUID) (*models.ChatRoom, error) {
	defer r.s.lockWrite(ctx)()

	key := roomKey{roomType, entityID}
	if id, ok := r.s.data.roomIndex[key]; ok {
		room := r.s.data.rooms[id]
		return &room, nil
	}
	room := models.ChatRoom{ID: uuid.New(), Type: roomType, EntityID: entityID, CreatedAt: r.s.now()}
	r.s.data.rooms[room.ID] = room
	r.s.data.roomIndex[key] = room.ID
	return &room, nil
}

func (r *ChatStore) AddMessage(ctx context.Context, roomID, userID uuid.UUID, text string) (*models.ChatMessage, error) {
	defer r.s.lockWrite(ctx)()

	r.s.data.nextMsgID++
	msg := models.ChatMessage{
		ID:     r.s.data.nextMsgID,
		RoomID: roomID,
		UserID: userID,
		Text:   text,
		SentAt: r.s.now(),
	}
	r.s.data.messages = append(r.s.data.messages, msg)
	return &msg, nil
}

func (r *ChatStore) ListMessages(_ context.Context, roomID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	msgs := make([]models.ChatMessage, 0)
	for _, m := range r.s.data.messages {
		if m.RoomID == roomID {
			msgs = append(msgs, m)
		}
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
