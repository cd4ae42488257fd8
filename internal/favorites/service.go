package favorites

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/notify"
	"github.com/lalith-99/boardsync/internal/repository"
)

// Change is pushed to the user's other sessions after a toggle.
type Change struct {
	BoardID  uuid.UUID `json:"board_id"`
	Favorite bool      `json:"favorite"`
}

type Service struct {
	favorites repository.FavoriteRepository
	boards    repository.BoardRepository
	guard     *authz.Guard
	pusher    notify.Pusher
}

func NewService(repos *repository.Repositories, guard *authz.Guard, pusher notify.Pusher) *Service {
	return &Service{
		favorites: repos.Favorites,
		boards:    repos.Boards,
		guard:     guard,
		pusher:    pusher,
	}
}

// Toggle flips the caller's favorite flag for boardID and returns the new
// state.
func (s *Service) Toggle(ctx context.Context, caller auth.Caller, boardID uuid.UUID) (bool, error) {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return false, fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return false, apperr.NotFound(apperr.ReasonBoardNotFound, "board not found")
	}
	if _, err := s.guard.Authorize(ctx, caller, boardID, authz.CanRead); err != nil {
		return false, err
	}

	exists, err := s.favorites.Exists(ctx, caller.UserID, boardID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	if exists {
		err = s.favorites.Remove(ctx, caller.UserID, boardID)
	} else {
		err = s.favorites.Add(ctx, caller.UserID, boardID)
	}
	if err != nil {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}

	favorite := !exists
	s.pusher.Push(ctx, caller.UserID, notify.Event{
		Type: notify.TypeFavorite,
		Data: Change{BoardID: boardID, Favorite: favorite},
	})
	return favorite, nil
}

func (s *Service) IsFavorite(ctx context.Context, caller auth.Caller, boardID uuid.UUID) (bool, error) {
	exists, err := s.favorites.Exists(ctx, caller.UserID, boardID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// List returns the caller's favorite boards sorted by name.
func (s *Service) List(ctx context.Context, caller auth.Caller) ([]models.Board, error) {
	boards, err := s.favorites.ListBoards(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return boards, nil
}
