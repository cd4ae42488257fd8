package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/boardsync/internal/models"
)

type FavoriteStore struct {
	pool *pgxpool.Pool
}

func NewFavoriteStore(pool *pgxpool.Pool) *FavoriteStore {
	return &FavoriteStore{pool: pool}
}

func (s *FavoriteStore) Exists(ctx context.Context, userID, boardID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM favorite_boards
			WHERE user_id = $1 AND board_id = $2
		)`

	var exists bool
	if err := conn(ctx, s.pool).QueryRow(ctx, query, userID, boardID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

func (s *FavoriteStore) Add(ctx context.Context, userID, boardID uuid.UUID) error {
	query := `
		INSERT INTO favorite_boards (user_id, board_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, board_id) DO NOTHING`

	if _, err := conn(ctx, s.pool).Exec(ctx, query, userID, boardID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (s *FavoriteStore) Remove(ctx context.Context, userID, boardID uuid.UUID) error {
	query := `DELETE FROM favorite_boards WHERE user_id = $1 AND board_id = $2`

	if _, err := conn(ctx, s.pool).Exec(ctx, query, userID, boardID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *FavoriteStore) ListBoards(ctx context.Context, userID uuid.UUID) ([]models.Board, error) {
	query := `
		SELECT b.id, b.name, b.owner_id, b.created_at
		FROM favorite_boards f
		JOIN boards b ON b.id = f.board_id
		WHERE f.user_id = $1
		ORDER BY b.name`

	rows, err := conn(ctx, s.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	boards := make([]models.Board, 0)
	for rows.Next() {
		var b models.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return boards, nil
}
