package db

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the idempotent bootstrap schema. Real deployments run
// versioned migrations out of band; this keeps local and test databases
// usable with no extra tooling.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	db.logger.Debug("schema ensured", zap.Int("bytes", len(schemaSQL)))
	return nil
}
