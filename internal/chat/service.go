// Package chat stores per-board and per-team chat rooms and fans new
// messages out to the room's realtime group.
package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/realtime"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
)

const (
	MaxMessageLength = 4000
	DefaultHistory   = 50
	MaxHistory       = 200
)

type Service struct {
	chat        repository.ChatRepository
	boards      repository.BoardRepository
	teams       repository.TeamRepository
	access      realtime.JoinAuthorizer
	broadcaster realtime.Broadcaster
	logger      *zap.Logger
}

// NewService uses access for every room check, so chat follows the same
// membership rules as realtime group joins.
func NewService(repos *repository.Repositories, access realtime.JoinAuthorizer, broadcaster realtime.Broadcaster, logger *zap.Logger) *Service {
	return &Service{
		chat:        repos.Chat,
		boards:      repos.Boards,
		teams:       repos.Teams,
		access:      access,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Room returns the room for the entity, creating it on first use.
func (s *Service) Room(ctx context.Context, caller auth.Caller, roomType models.RoomType, entityID uuid.UUID) (*models.ChatRoom, error) {
	var group realtime.GroupKey
	switch roomType {
	case models.RoomBoard:
		b, err := s.boards.GetByID(ctx, entityID)
		if err != nil {
			return nil, fmt.Errorf("get board: %w", err)
		}
		if b == nil {
			return nil, apperr.NotFound(apperr.ReasonBoardNotFound, "board not found")
		}
		group = realtime.BoardGroup(entityID)
	case models.RoomTeam:
		t, err := s.teams.GetByID(ctx, entityID)
		if err != nil {
			return nil, fmt.Errorf("get team: %w", err)
		}
		if t == nil {
			return nil, apperr.NotFound(apperr.ReasonTeamNotFound, "team not found")
		}
		group = realtime.TeamGroup(entityID)
	default:
		return nil, apperr.BadRequest(apperr.ReasonInvalidInput, fmt.Sprintf("unknown room type %q", roomType))
	}
	if err := s.access.AuthorizeJoin(ctx, caller, group); err != nil {
		return nil, err
	}

	room, err := s.chat.CreateRoom(ctx, roomType, entityID)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// Send stores a message and broadcasts it to everyone in the room.
func (s *Service) Send(ctx context.Context, caller auth.Caller, roomID uuid.UUID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.BadRequest(apperr.ReasonInvalidInput, "message text is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, apperr.BadRequest(apperr.ReasonInvalidInput, fmt.Sprintf("message exceeds %d characters", MaxMessageLength))
	}
	if err := s.access.AuthorizeJoin(ctx, caller, realtime.ChatRoomGroup(roomID)); err != nil {
		return nil, err
	}

	msg, err := s.chat.AddMessage(ctx, roomID, caller.UserID, text)
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}

	s.logger.Debug("chat message sent",
		zap.String("room_id", roomID.String()),
		zap.Int64("message_id", msg.ID),
	)
	s.broadcaster.Broadcast(ctx, realtime.ChatRoomGroup(roomID), realtime.EventReceiveMessage, msg)
	return msg, nil
}

// Messages returns up to limit of the room's latest messages, oldest first.
func (s *Service) Messages(ctx context.Context, caller auth.Caller, roomID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if err := s.access.AuthorizeJoin(ctx, caller, realtime.ChatRoomGroup(roomID)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistory
	}
	if limit > MaxHistory {
		limit = MaxHistory
	}

	msgs, err := s.chat.ListMessages(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
