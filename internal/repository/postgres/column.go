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

type ColumnStore struct {
	pool *pgxpool.Pool
}

func NewColumnStore(pool *pgxpool.Pool) *ColumnStore {
	return &ColumnStore{pool: pool}
}

func (s *ColumnStore) Create(ctx context.Context, boardID uuid.UUID, name string) (*models.Column, error) {
	query := `
		INSERT INTO columns (board_id, name, position, created_at)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), -1) + 1 FROM columns WHERE board_id = $1), now())
		RETURNING id, board_id, name, position, created_at`

	var col models.Column
	err := conn(ctx, s.pool).QueryRow(ctx, query, boardID, name).Scan(
		&col.ID,
		&col.BoardID,
		&col.Name,
		&col.Position,
		&col.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert column: %w", err)
	}
	return &col, nil
}

func (s *ColumnStore) GetByID(ctx context.Context, columnID uuid.UUID) (*models.Column, error) {
	query := `
		SELECT id, board_id, name, position, created_at
		FROM columns
		WHERE id = $1`

	var col models.Column
	err := conn(ctx, s.pool).QueryRow(ctx, query, columnID).Scan(
		&col.ID,
		&col.BoardID,
		&col.Name,
		&col.Position,
		&col.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get column: %w", err)
	}
	return &col, nil
}

func (s *ColumnStore) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]models.Column, error) {
	query := `
		SELECT id, board_id, name, position, created_at
		FROM columns
		WHERE board_id = $1
		ORDER BY position`

	rows, err := conn(ctx, s.pool).Query(ctx, query, boardID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	columns := make([]models.Column, 0)
	for rows.Next() {
		var col models.Column
		if err := rows.Scan(&col.ID, &col.BoardID, &col.Name, &col.Position, &col.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

func (s *ColumnStore) Rename(ctx context.Context, columnID uuid.UUID, name string) error {
	if _, err := conn(ctx, s.pool).Exec(ctx, `UPDATE columns SET name = $2 WHERE id = $1`, columnID, name); err != nil {
		return fmt.Errorf("rename column: %w", err)
	}
	return nil
}

func (s *ColumnStore) Delete(ctx context.Context, columnID uuid.UUID) error {
	if _, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM columns WHERE id = $1`, columnID); err != nil {
		return fmt.Errorf("delete column: %w", err)
	}
	return nil
}
