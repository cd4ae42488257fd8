// Package boards handles board lifecycle: creation, listing, renaming and
// deletion, plus the full board view with columns and items.
package boards

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/realtime"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
)

// ColumnView is a column with its items in creation order.
type ColumnView struct {
	models.Column
	Items []models.Item `json:"items"`
}

// View is everything a client needs to render a board.
type View struct {
	models.Board
	Role    models.Role  `json:"role"`
	Columns []ColumnView `json:"columns"`
}

type Service struct {
	boards      repository.BoardRepository
	members     repository.MembershipRepository
	columns     repository.ColumnRepository
	items       repository.ItemRepository
	tx          repository.TxManager
	guard       *authz.Guard
	broadcaster realtime.Broadcaster
	logger      *zap.Logger
}

func NewService(repos *repository.Repositories, guard *authz.Guard, broadcaster realtime.Broadcaster, logger *zap.Logger) *Service {
	return &Service{
		boards:      repos.Boards,
		members:     repos.Members,
		columns:     repos.Columns,
		items:       repos.Items,
		tx:          repos.Tx,
		guard:       guard,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// CreateBoard stores the board and makes the caller its owner in the same
// transaction.
func (s *Service) CreateBoard(ctx context.Context, caller auth.Caller, name string) (*models.Board, error) {
	name, err := boardName(name)
	if err != nil {
		return nil, err
	}

	var board *models.Board
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		board, err = s.boards.Create(ctx, name, caller.UserID)
		if err != nil {
			return fmt.Errorf("create board: %w", err)
		}
		if err := s.members.Add(ctx, board.ID, caller.UserID, models.RoleOwner); err != nil {
			return fmt.Errorf("add owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("board created",
		zap.String("board_id", board.ID.String()),
		zap.String("owner_id", caller.UserID.String()),
	)
	return board, nil
}

func (s *Service) ListBoards(ctx context.Context, caller auth.Caller) ([]models.Board, error) {
	boards, err := s.boards.ListForUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (s *Service) GetBoard(ctx context.Context, caller auth.Caller, boardID uuid.UUID) (*View, error) {
	board, err := s.board(ctx, boardID)
	if err != nil {
		return nil, err
	}
	member, err := s.guard.Authorize(ctx, caller, boardID, authz.CanRead)
	if err != nil {
		return nil, err
	}

	cols, err := s.columns.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	view := &View{Board: *board, Role: member.Role, Columns: make([]ColumnView, 0, len(cols))}
	for _, col := range cols {
		items, err := s.items.ListByColumn(ctx, col.ID)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		view.Columns = append(view.Columns, ColumnView{Column: col, Items: items})
	}
	return view, nil
}

func (s *Service) RenameBoard(ctx context.Context, caller auth.Caller, boardID uuid.UUID, name string) (*models.Board, error) {
	name, err := boardName(name)
	if err != nil {
		return nil, err
	}
	board, err := s.board(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanManageBoard); err != nil {
		return nil, err
	}
	if board.Name == name {
		return board, nil
	}

	if err := s.boards.Rename(ctx, boardID, name); err != nil {
		return nil, fmt.Errorf("rename board: %w", err)
	}
	board.Name = name

	s.broadcaster.Broadcast(ctx, realtime.BoardGroup(boardID), realtime.EventBoardUpdated, board)
	return board, nil
}

// DeleteBoard is owner only. Columns, items, members, favorites and pending
// invitations go with the board; the activity log is kept.
func (s *Service) DeleteBoard(ctx context.Context, caller auth.Caller, boardID uuid.UUID) error {
	if _, err := s.board(ctx, boardID); err != nil {
		return err
	}
	if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanDeleteBoard); err != nil {
		return err
	}

	if err := s.boards.Delete(ctx, boardID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}

	s.logger.Info("board deleted",
		zap.String("board_id", boardID.String()),
		zap.String("by", caller.UserID.String()),
	)
	s.broadcaster.Broadcast(ctx, realtime.BoardGroup(boardID), realtime.EventBoardDeleted, map[string]uuid.UUID{
		"id": boardID,
	})
	return nil
}

func (s *Service) board(ctx context.Context, boardID uuid.UUID) (*models.Board, error) {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return nil, apperr.NotFound(apperr.ReasonBoardNotFound, "board not found")
	}
	return board, nil
}

func boardName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.BadRequest(apperr.ReasonInvalidInput, "board name is required")
	}
	return name, nil
}
