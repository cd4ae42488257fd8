package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/boardsync/internal/models"
)

type ChatStore struct {
	pool *pgxpool.Pool
}

func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

func (s *ChatStore) GetRoom(ctx context.Context, roomType models.RoomType, entityID uuid.UUID) (*models.ChatRoom, error) {
	query := `
		SELECT id, type, entity_id, created_at
		FROM chat_rooms
		WHERE type = $1 AND entity_id = $2`

	var r models.ChatRoom
	err := conn(ctx, s.pool).QueryRow(ctx, query, roomType, entityID).Scan(&r.ID, &r.Type, &r.EntityID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat room: %w", err)
	}
	return &r, nil
}

func (s *ChatStore) GetRoomByID(ctx context.Context, roomID uuid.UUID) (*models.ChatRoom, error) {
	query := `SELECT id, type, entity_id, created_at FROM chat_rooms WHERE id = $1`

	var r models.ChatRoom
	err := conn(ctx, s.pool).QueryRow(ctx, query, roomID).Scan(&r.ID, &r.Type, &r.EntityID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat room by id: %w", err)
	}
	return &r, nil
}

// CreateRoom relies on the (type, entity_id) unique index: a concurrent
// creator loses the insert and reads the winner's row.
func (s *ChatStore) CreateRoom(ctx context.Context, roomType models.RoomType, entityID uuid.UUID) (*models.ChatRoom, error) {
	query := `
		INSERT INTO chat_rooms (type, entity_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (type, entity_id) DO NOTHING
		RETURNING id, type, entity_id, created_at`

	var r models.ChatRoom
	err := conn(ctx, s.pool).QueryRow(ctx, query, roomType, entityID).Scan(&r.ID, &r.Type, &r.EntityID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.GetRoom(ctx, roomType, entityID)
		}
		return nil, fmt.Errorf("insert chat room: %w", err)
	}
	return &r, nil
}

func (s *ChatStore) AddMessage(ctx context.Context, roomID, userID uuid.UUID, text string) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (room_id, user_id, text, sent_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, room_id, user_id, text, sent_at`

	var msg models.ChatMessage
	err := conn(ctx, s.pool).QueryRow(ctx, query, roomID, userID, text).Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.UserID,
		&msg.Text,
		&msg.SentAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns the newest limit messages, oldest first.
func (s *ChatStore) ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, room_id, user_id, text, sent_at FROM (
			SELECT id, room_id, user_id, text, sent_at
			FROM chat_messages
			WHERE room_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id`

	rows, err := conn(ctx, s.pool).Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.UserID, &msg.Text, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return messages, nil
}
