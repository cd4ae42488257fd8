// Package pipeline applies item and column mutations. Each mutation is
// authorized, diffed against the stored snapshot, persisted together with
// its audit entries in one transaction, and only then broadcast to the
// board's realtime group.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/observ"
	"github.com/lalith-99/boardsync/internal/realtime"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
)

type Service struct {
	boards      repository.BoardRepository
	columns     repository.ColumnRepository
	items       repository.ItemRepository
	activity    repository.ActivityRepository
	tx          repository.TxManager
	guard       *authz.Guard
	broadcaster realtime.Broadcaster
	logger      *zap.Logger
	metrics     *observ.Metrics
	now         func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *observ.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(
	repos *repository.Repositories,
	guard *authz.Guard,
	broadcaster realtime.Broadcaster,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		boards:      repos.Boards,
		columns:     repos.Columns,
		items:       repos.Items,
		activity:    repos.Activity,
		tx:          repos.Tx,
		guard:       guard,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// reject records a denial and hands the error back.
func (s *Service) reject(err error) error {
	if appErr, ok := apperr.As(err); ok {
		s.metrics.Rejected(appErr.Reason)
	}
	return err
}

// appendEntries writes audit entries. Only this package holds a writer on
// the activity repository.
func (s *Service) appendEntries(ctx context.Context, entries ...models.ActivityLog) error {
	for _, e := range entries {
		if err := s.activity.Append(ctx, e); err != nil {
			return fmt.Errorf("append activity: %w", err)
		}
	}
	return nil
}

func (s *Service) recordEntries(entries []models.ActivityLog) {
	for _, e := range entries {
		s.metrics.AuditEntry(string(e.Action))
	}
}

func (s *Service) broadcast(ctx context.Context, boardID uuid.UUID, event string, payload any) {
	s.broadcaster.Broadcast(ctx, realtime.BoardGroup(boardID), event, payload)
}

// locate loads an item and the column that places it on a board.
func (s *Service) locate(ctx context.Context, itemID uuid.UUID) (*models.Item, *models.Column, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, nil, apperr.NotFound(apperr.ReasonItemNotFound, "item not found")
	}
	col, err := s.columns.GetByID(ctx, item.ColumnID)
	if err != nil {
		return nil, nil, fmt.Errorf("get column: %w", err)
	}
	if col == nil {
		return nil, nil, apperr.NotFound(apperr.ReasonColumnNotFound, "column not found")
	}
	return item, col, nil
}

func (s *Service) column(ctx context.Context, columnID uuid.UUID) (*models.Column, error) {
	col, err := s.columns.GetByID(ctx, columnID)
	if err != nil {
		return nil, fmt.Errorf("get column: %w", err)
	}
	if col == nil {
		return nil, apperr.NotFound(apperr.ReasonColumnNotFound, "column not found")
	}
	return col, nil
}

func versionConflict(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperr.Conflict(apperr.ReasonVersionConflict, "item was modified by someone else, reload and retry")
	}
	return fmt.Errorf("update item: %w", err)
}
