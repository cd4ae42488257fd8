package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/realtime"
	"go.uber.org/zap"
)

type CreateItemInput struct {
	ColumnID    uuid.UUID
	Title       string
	Description *string
	Status      string
	AssigneeID  *uuid.UUID
	StartDate   *time.Time
	DueDate     *time.Time
}

// UpdateItemInput replaces every mutable field. A zero ColumnID keeps the
// item where it is. Version, when set, must match the stored version.
type UpdateItemInput struct {
	ID          uuid.UUID
	ColumnID    uuid.UUID
	Title       string
	Description *string
	Status      string
	AssigneeID  *uuid.UUID
	StartDate   *time.Time
	DueDate     *time.Time
	Version     *int64
}

// ItemRef identifies a deleted item in broadcasts.
type ItemRef struct {
	ID       uuid.UUID `json:"id"`
	ColumnID uuid.UUID `json:"column_id"`
}

// StatusChange is the ItemStatusChanged broadcast payload.
type StatusChange struct {
	ItemID uuid.UUID    `json:"item_id"`
	Status string       `json:"status"`
	Item   *models.Item `json:"item"`
}

func (s *Service) CreateItem(ctx context.Context, caller auth.Caller, in CreateItemInput) (*models.Item, error) {
	col, err := s.column(ctx, in.ColumnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Authorize(ctx, caller, col.BoardID, authz.CanCreateItem); err != nil {
		return nil, s.reject(err)
	}
	if in.AssigneeID != nil {
		if _, err := s.guard.Authorize(ctx, caller, col.BoardID, authz.CanAssignItem); err != nil {
			return nil, s.reject(err)
		}
	}

	var created *models.Item
	var entry models.ActivityLog
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.items.Create(ctx, models.Item{
			ColumnID:    col.ID,
			Title:       in.Title,
			Description: normalizeText(in.Description),
			Status:      in.Status,
			AssigneeID:  in.AssigneeID,
			StartDate:   normalizeDate(in.StartDate),
			DueDate:     normalizeDate(in.DueDate),
		})
		if err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		entry = models.ActivityLog{
			ID:        uuid.New(),
			ItemID:    created.ID,
			UserID:    caller.UserID,
			Action:    models.ActivityCreated,
			Details:   fmt.Sprintf("Item created: %s", created.Title),
			Timestamp: s.now().UTC(),
		}
		return s.appendEntries(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.recordEntries([]models.ActivityLog{entry})
	s.broadcast(ctx, col.BoardID, realtime.EventItemCreated, created)
	return created, nil
}

// UpdateItem applies a full replacement of the item's fields.
//
// Board admins and editors may change anything, though changing the
// assignee needs admin. Failing that, the item's current assignee may change
// status and dates only; a payload that also touches any other field is
// rejected whole. Everyone else is rejected.
func (s *Service) UpdateItem(ctx context.Context, caller auth.Caller, pathID uuid.UUID, in UpdateItemInput) (*models.Item, error) {
	if in.ID != pathID {
		return nil, s.reject(apperr.BadRequest(apperr.ReasonIDMismatch, "path id does not match body id"))
	}

	item, col, err := s.locate(ctx, pathID)
	if err != nil {
		return nil, err
	}

	target := *item
	target.Title = in.Title
	target.Description = normalizeText(in.Description)
	target.Status = in.Status
	target.AssigneeID = in.AssigneeID
	target.StartDate = normalizeDate(in.StartDate)
	target.DueDate = normalizeDate(in.DueDate)

	if in.ColumnID != uuid.Nil && in.ColumnID != item.ColumnID {
		dest, err := s.column(ctx, in.ColumnID)
		if err != nil {
			return nil, err
		}
		if dest.BoardID != col.BoardID {
			return nil, s.reject(apperr.BadRequest(apperr.ReasonColumnMismatch, "target column belongs to another board"))
		}
		target.ColumnID = dest.ID
	}

	changes := Diff(*item, target)
	if err := s.authorizeUpdate(ctx, caller, col.BoardID, item, changes); err != nil {
		return nil, s.reject(err)
	}
	if in.Version != nil && *in.Version != item.Version {
		return nil, s.reject(apperr.Conflict(apperr.ReasonVersionConflict, "item was modified by someone else, reload and retry"))
	}
	if len(changes) == 0 {
		return item, nil
	}

	updated, entries, err := s.persist(ctx, caller, item, target, changes)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("item updated",
		zap.String("item_id", updated.ID.String()),
		zap.Int("changed_fields", len(changes)),
		zap.Int64("version", updated.Version),
	)
	s.recordEntries(entries)
	s.broadcast(ctx, col.BoardID, realtime.EventItemUpdated, updated)
	return updated, nil
}

// UpdateItemStatus changes only the status. Admins, editors and the current
// assignee may call it.
func (s *Service) UpdateItemStatus(ctx context.Context, caller auth.Caller, itemID uuid.UUID, status string) (*models.Item, error) {
	item, col, err := s.locate(ctx, itemID)
	if err != nil {
		return nil, err
	}

	target := *item
	target.Status = status
	changes := Diff(*item, target)
	if err := s.authorizeUpdate(ctx, caller, col.BoardID, item, changes); err != nil {
		return nil, s.reject(err)
	}
	if len(changes) == 0 {
		return item, nil
	}

	updated, entries, err := s.persist(ctx, caller, item, target, changes)
	if err != nil {
		return nil, err
	}

	s.recordEntries(entries)
	s.broadcast(ctx, col.BoardID, realtime.EventItemStatusChanged, StatusChange{
		ItemID: updated.ID,
		Status: updated.Status,
		Item:   updated,
	})
	return updated, nil
}

func (s *Service) DeleteItem(ctx context.Context, caller auth.Caller, itemID uuid.UUID) error {
	item, col, err := s.locate(ctx, itemID)
	if err != nil {
		return err
	}
	if _, err := s.guard.Authorize(ctx, caller, col.BoardID, authz.CanDeleteItem); err != nil {
		return s.reject(err)
	}

	entry := deletedEntry(*item, caller.UserID, fmt.Sprintf("Item deleted: %s", item.Title), s.now().UTC())
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.items.Delete(ctx, item.ID); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return s.appendEntries(ctx, entry)
	})
	if err != nil {
		return err
	}

	s.recordEntries([]models.ActivityLog{entry})
	s.broadcast(ctx, col.BoardID, realtime.EventItemDeleted, ItemRef{ID: item.ID, ColumnID: item.ColumnID})
	return nil
}

func (s *Service) GetItem(ctx context.Context, caller auth.Caller, itemID uuid.UUID) (*models.Item, error) {
	item, col, err := s.locate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Authorize(ctx, caller, col.BoardID, authz.CanRead); err != nil {
		return nil, s.reject(err)
	}
	return item, nil
}

// ItemActivity returns the item's audit trail, oldest first.
func (s *Service) ItemActivity(ctx context.Context, caller auth.Caller, itemID uuid.UUID) ([]models.ActivityLog, error) {
	if _, err := s.GetItem(ctx, caller, itemID); err != nil {
		return nil, err
	}
	entries, err := s.activity.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

func (s *Service) authorizeUpdate(ctx context.Context, caller auth.Caller, boardID uuid.UUID, item *models.Item, changes []FieldChange) error {
	member, err := s.guard.Membership(ctx, caller, boardID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperr.Forbidden(apperr.ReasonNotMember, "you are not a member of this board")
	}

	if authz.CanUpdateItem.Allows(member.Role) {
		if touches(changes, FieldAssignee) && !authz.CanAssignItem.Allows(member.Role) {
			return apperr.Forbidden(apperr.ReasonInsufficientRole, "only board admins can assign items")
		}
		return nil
	}

	if item.AssigneeID != nil && *item.AssigneeID == caller.UserID {
		for _, ch := range changes {
			switch ch.Field {
			case FieldStatus, FieldStartDate, FieldDueDate:
			default:
				return apperr.Forbidden(apperr.ReasonAssigneeFields,
					fmt.Sprintf("as the assignee you may only change status and dates, not %s", ch.Field))
			}
		}
		return nil
	}

	return apperr.Forbidden(apperr.ReasonNotYourTask, "this item is not assigned to you")
}

// persist writes target with a version check and appends one entry per
// change, all in one transaction.
func (s *Service) persist(ctx context.Context, caller auth.Caller, before *models.Item, target models.Item, changes []FieldChange) (*models.Item, []models.ActivityLog, error) {
	entries := AuditEntries(before.ID, caller.UserID, changes, s.now().UTC())

	var updated *models.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.items.Update(ctx, target, before.Version)
		if err != nil {
			return versionConflict(err)
		}
		return s.appendEntries(ctx, entries...)
	})
	if err != nil {
		return nil, nil, s.reject(err)
	}
	return updated, entries, nil
}

func touches(changes []FieldChange, field string) bool {
	for _, ch := range changes {
		if ch.Field == field {
			return true
		}
	}
	return false
}

func deletedEntry(item models.Item, userID uuid.UUID, details string, at time.Time) models.ActivityLog {
	return models.ActivityLog{
		ID:        uuid.New(),
		ItemID:    item.ID,
		UserID:    userID,
		Action:    models.ActivityDeleted,
		Details:   details,
		Timestamp: at,
	}
}
