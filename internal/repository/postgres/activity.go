package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/boardsync/internal/models"
)

// ActivityStore appends to activity_logs. The table rejects UPDATE and
// DELETE with a trigger, so this type only ever inserts and reads.
type ActivityStore struct {
	pool *pgxpool.Pool
}

func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

func (s *ActivityStore) Append(ctx context.Context, e models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (id, item_id, user_id, action, field, old_value, new_value, details, ts)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)`

	_, err := conn(ctx, s.pool).Exec(ctx, query,
		e.ID,
		e.ItemID,
		e.UserID,
		e.Action,
		e.Field,
		e.OldValue,
		e.NewValue,
		e.Details,
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// ListByItem orders by ts and then by seq, the bigserial assigned on insert,
// so entries written in the same instant keep their append order.
func (s *ActivityStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.ActivityLog, error) {
	query := `
		SELECT id, item_id, user_id, action,
			COALESCE(field, ''), COALESCE(old_value, ''), COALESCE(new_value, ''),
			details, ts
		FROM activity_logs
		WHERE item_id = $1
		ORDER BY ts, seq`

	rows, err := conn(ctx, s.pool).Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]models.ActivityLog, 0)
	for rows.Next() {
		var e models.ActivityLog
		if err := rows.Scan(
			&e.ID,
			&e.ItemID,
			&e.UserID,
			&e.Action,
			&e.Field,
			&e.OldValue,
			&e.NewValue,
			&e.Details,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}
