package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/models"
)

// Field labels written to the audit log.
const (
	FieldTitle       = "Title"
	FieldDescription = "Description"
	FieldStartDate   = "StartDate"
	FieldDueDate     = "DueDate"
	FieldStatus      = "Status"
	FieldAssignee    = "Assignee"
	FieldColumn      = "Column"
)

// DateLayout renders start and due dates. Both are calendar days.
const DateLayout = "2006-01-02"

// FieldChange is one field whose rendered value differs between snapshots.
type FieldChange struct {
	Field  string
	Old    string
	New    string
	Action models.ActivityKind
}

// Diff compares two snapshots of the same item field by field, in a fixed
// order, using exact string comparison of the rendered values. Unset and
// empty render the same, so nil to "" is not a change.
func Diff(before, after models.Item) []FieldChange {
	var changes []FieldChange
	add := func(field, oldV, newV string, action models.ActivityKind) {
		if oldV != newV {
			changes = append(changes, FieldChange{Field: field, Old: oldV, New: newV, Action: action})
		}
	}

	add(FieldTitle, before.Title, after.Title, models.ActivityUpdated)
	add(FieldDescription, text(before.Description), text(after.Description), models.ActivityUpdated)
	add(FieldStartDate, date(before.StartDate), date(after.StartDate), models.ActivityUpdated)
	add(FieldDueDate, date(before.DueDate), date(after.DueDate), models.ActivityUpdated)
	add(FieldStatus, before.Status, after.Status, models.ActivityStatusChanged)
	add(FieldAssignee, userRef(before.AssigneeID), userRef(after.AssigneeID), models.ActivityUpdated)
	add(FieldColumn, before.ColumnID.String(), after.ColumnID.String(), models.ActivityUpdated)

	return changes
}

// AuditEntries turns changes into log entries sharing one timestamp.
func AuditEntries(itemID, userID uuid.UUID, changes []FieldChange, at time.Time) []models.ActivityLog {
	entries := make([]models.ActivityLog, 0, len(changes))
	for _, ch := range changes {
		entries = append(entries, models.ActivityLog{
			ID:        uuid.New(),
			ItemID:    itemID,
			UserID:    userID,
			Action:    ch.Action,
			Field:     ch.Field,
			OldValue:  ch.Old,
			NewValue:  ch.New,
			Details:   details(ch),
			Timestamp: at,
		})
	}
	return entries
}

func details(ch FieldChange) string {
	if ch.Action == models.ActivityStatusChanged {
		return fmt.Sprintf("Status changed to %s", ch.New)
	}
	if ch.New == "" {
		return fmt.Sprintf("%s cleared", ch.Field)
	}
	return fmt.Sprintf("%s changed", ch.Field)
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func userRef(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// normalizeDate truncates t to its UTC calendar day.
func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// normalizeText maps "" to nil so storage holds one representation of unset.
func normalizeText(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
