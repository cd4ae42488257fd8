package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GlobalRole is the site-wide role carried in the JWT. It is unrelated to a
// user's role on any particular board.
type GlobalRole string

const (
	GlobalAdmin GlobalRole = "admin"
	GlobalUser  GlobalRole = "user"
)

// User is a person who can sign in. Banned users are rejected by middleware
// before any handler runs.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         GlobalRole `json:"role"`
	Banned       bool       `json:"banned"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Role is a user's role on one board. The set is closed: anything that does
// not parse is rejected instead of being compared as a free-form string.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole is case-insensitive and trims whitespace.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEditor:
		return RoleEditor, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

// AdminCapable reports whether the role can perform admin-only actions.
func (r Role) AdminCapable() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Board is a shared Kanban workspace.
type Board struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BoardMember is one row of the membership table, keyed by (BoardID, UserID).
type BoardMember struct {
	BoardID  uuid.UUID `json:"board_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type Column struct {
	ID        uuid.UUID `json:"id"`
	BoardID   uuid.UUID `json:"board_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a card. Version increments on every persisted update and is used
// as an optimistic-concurrency token.
type Item struct {
	ID          uuid.UUID  `json:"id"`
	ColumnID    uuid.UUID  `json:"column_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ActivityKind tags an activity log entry.
type ActivityKind string

const (
	ActivityCreated       ActivityKind = "Created"
	ActivityUpdated       ActivityKind = "Updated"
	ActivityStatusChanged ActivityKind = "StatusChanged"
	ActivityDeleted       ActivityKind = "Deleted"
)

// ActivityLog is an immutable audit entry. Field, OldValue and NewValue are
// only set for per-field diffs; create and delete entries carry Details only.
type ActivityLog struct {
	ID        uuid.UUID    `json:"id"`
	ItemID    uuid.UUID    `json:"item_id"`
	UserID    uuid.UUID    `json:"user_id"`
	Action    ActivityKind `json:"action"`
	Field     string       `json:"field,omitempty"`
	OldValue  string       `json:"old_value,omitempty"`
	NewValue  string       `json:"new_value,omitempty"`
	Details   string       `json:"details"`
	Timestamp time.Time    `json:"timestamp"`
}

// FavoriteBoard exists iff the user has favorited the board.
type FavoriteBoard struct {
	UserID  uuid.UUID `json:"user_id"`
	BoardID uuid.UUID `json:"board_id"`
}

type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	TeamRoleLeader = "leader"
	TeamRoleMember = "member"
)

type TeamMember struct {
	TeamID   uuid.UUID `json:"team_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// BoardInvitation is single use: it is deleted on accept or reject.
type BoardInvitation struct {
	Token     string    `json:"token"`
	BoardID   uuid.UUID `json:"board_id"`
	BoardName string    `json:"board_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	InvitedBy uuid.UUID `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (i BoardInvitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

type TeamInvitation struct {
	Token     string    `json:"token"`
	TeamID    uuid.UUID `json:"team_id"`
	TeamName  string    `json:"team_name"`
	Email     string    `json:"email"`
	InvitedBy uuid.UUID `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (i TeamInvitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

type RoomType string

const (
	RoomBoard RoomType = "Board"
	RoomTeam  RoomType = "Team"
)

// ChatRoom is keyed by (Type, EntityID).
type ChatRoom struct {
	ID        uuid.UUID `json:"id"`
	Type      RoomType  `json:"type"`
	EntityID  uuid.UUID `json:"entity_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is append-only. ID is a bigserial so it doubles as send order.
type ChatMessage struct {
	ID     int64     `json:"id"`
	RoomID uuid.UUID `json:"room_id"`
	UserID uuid.UUID `json:"user_id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}
