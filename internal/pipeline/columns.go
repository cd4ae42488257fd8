package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/realtime"
)

func (s *Service) CreateColumn(ctx context.Context, caller auth.Caller, boardID uuid.UUID, name string) (*models.Column, error) {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return nil, apperr.NotFound(apperr.ReasonBoardNotFound, "board not found")
	}
	if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanManageColumns); err != nil {
		return nil, s.reject(err)
	}

	col, err := s.columns.Create(ctx, boardID, name)
	if err != nil {
		return nil, fmt.Errorf("create column: %w", err)
	}

	s.broadcast(ctx, boardID, realtime.EventColumnCreated, col)
	return col, nil
}

func (s *Service) RenameColumn(ctx context.Context, caller auth.Caller, columnID uuid.UUID, name string) (*models.Column, error) {
	col, err := s.column(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Authorize(ctx, caller, col.BoardID, authz.CanManageColumns); err != nil {
		return nil, s.reject(err)
	}
	if col.Name == name {
		return col, nil
	}

	if err := s.columns.Rename(ctx, columnID, name); err != nil {
		return nil, fmt.Errorf("rename column: %w", err)
	}
	col.Name = name

	s.broadcast(ctx, col.BoardID, realtime.EventColumnUpdated, col)
	return col, nil
}

// DeleteColumn removes the column and its items. Each item gets a Deleted
// entry so its trail records how it went away.
func (s *Service) DeleteColumn(ctx context.Context, caller auth.Caller, columnID uuid.UUID) error {
	col, err := s.column(ctx, columnID)
	if err != nil {
		return err
	}
	if _, err := s.guard.Authorize(ctx, caller, col.BoardID, authz.CanDeleteColumn); err != nil {
		return s.reject(err)
	}

	var entries []models.ActivityLog
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		items, err := s.items.ListByColumn(ctx, columnID)
		if err != nil {
			return fmt.Errorf("list column items: %w", err)
		}
		at := s.now().UTC()
		for _, it := range items {
			entries = append(entries, deletedEntry(it, caller.UserID,
				fmt.Sprintf("Item deleted with column %s: %s", col.Name, it.Title), at))
		}
		if err := s.columns.Delete(ctx, columnID); err != nil {
			return fmt.Errorf("delete column: %w", err)
		}
		return s.appendEntries(ctx, entries...)
	})
	if err != nil {
		return err
	}

	s.recordEntries(entries)
	s.broadcast(ctx, col.BoardID, realtime.EventColumnDeleted, map[string]uuid.UUID{
		"id":       col.ID,
		"board_id": col.BoardID,
	})
	return nil
}

// ListItems returns a column's items for any board member.
func (s *Service) ListItems(ctx context.Context, caller auth.Caller, columnID uuid.UUID) ([]models.Item, error) {
	col, err := s.column(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Authorize(ctx, caller, col.BoardID, authz.CanRead); err != nil {
		return nil, s.reject(err)
	}
	items, err := s.items.ListByColumn(ctx, columnID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}
