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

type BoardStore struct {
	pool *pgxpool.Pool
}

func NewBoardStore(pool *pgxpool.Pool) *BoardStore {
	return &BoardStore{pool: pool}
}

func (s *BoardStore) Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Board, error) {
	query := `
		INSERT INTO boards (name, owner_id, created_at)
		VALUES ($1, $2, now())
		RETURNING id, name, owner_id, created_at`

	var b models.Board
	err := conn(ctx, s.pool).QueryRow(ctx, query, name, ownerID).Scan(
		&b.ID,
		&b.Name,
		&b.OwnerID,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert board: %w", err)
	}
	return &b, nil
}

func (s *BoardStore) GetByID(ctx context.Context, boardID uuid.UUID) (*models.Board, error) {
	query := `
		SELECT id, name, owner_id, created_at
		FROM boards
		WHERE id = $1`

	var b models.Board
	err := conn(ctx, s.pool).QueryRow(ctx, query, boardID).Scan(
		&b.ID,
		&b.Name,
		&b.OwnerID,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &b, nil
}

func (s *BoardStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Board, error) {
	query := `
		SELECT b.id, b.name, b.owner_id, b.created_at
		FROM boards b
		JOIN board_members m ON m.board_id = b.id
		WHERE m.user_id = $1
		ORDER BY b.created_at DESC`

	rows, err := conn(ctx, s.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := make([]models.Board, 0)
	for rows.Next() {
		var b models.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}

	return boards, nil
}

func (s *BoardStore) Rename(ctx context.Context, boardID uuid.UUID, name string) error {
	if _, err := conn(ctx, s.pool).Exec(ctx, `UPDATE boards SET name = $2 WHERE id = $1`, boardID, name); err != nil {
		return fmt.Errorf("rename board: %w", err)
	}
	return nil
}

// Delete cascades to columns, items, memberships, favorites and invitations.
// Activity log rows have no foreign key and survive.
func (s *BoardStore) Delete(ctx context.Context, boardID uuid.UUID) error {
	if _, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM boards WHERE id = $1`, boardID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}
