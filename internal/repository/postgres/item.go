package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/repository"
)

const itemColumns = `id, column_id, title, description, status, assignee_id, start_date, due_date, version, created_at, updated_at`

type ItemStore struct {
	pool *pgxpool.Pool
}

func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

func scanItem(row pgx.Row) (*models.Item, error) {
	var it models.Item
	err := row.Scan(
		&it.ID,
		&it.ColumnID,
		&it.Title,
		&it.Description,
		&it.Status,
		&it.AssigneeID,
		&it.StartDate,
		&it.DueDate,
		&it.Version,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *ItemStore) Create(ctx context.Context, item models.Item) (*models.Item, error) {
	query := `
		INSERT INTO items (column_id, title, description, status, assignee_id, start_date, due_date, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, now(), now())
		RETURNING ` + itemColumns

	created, err := scanItem(conn(ctx, s.pool).QueryRow(ctx, query,
		item.ColumnID,
		item.Title,
		item.Description,
		item.Status,
		item.AssigneeID,
		item.StartDate,
		item.DueDate,
	))
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return created, nil
}

func (s *ItemStore) GetByID(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	it, err := scanItem(conn(ctx, s.pool).QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *ItemStore) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE column_id = $1 ORDER BY created_at`

	rows, err := conn(ctx, s.pool).Query(ctx, query, columnID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Update is a compare-and-set on version. Zero rows matched means another
// writer got there first (or the item was deleted meanwhile).
func (s *ItemStore) Update(ctx context.Context, item models.Item, expectedVersion int64) (*models.Item, error) {
	query := `
		UPDATE items SET
			column_id = $3,
			title = $4,
			description = $5,
			status = $6,
			assignee_id = $7,
			start_date = $8,
			due_date = $9,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + itemColumns

	updated, err := scanItem(conn(ctx, s.pool).QueryRow(ctx, query,
		item.ID,
		expectedVersion,
		item.ColumnID,
		item.Title,
		item.Description,
		item.Status,
		item.AssigneeID,
		item.StartDate,
		item.DueDate,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVersionConflict
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return updated, nil
}

func (s *ItemStore) Delete(ctx context.Context, itemID uuid.UUID) error {
	if _, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}
