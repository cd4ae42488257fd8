// Package realtime fans live events out to websocket connections grouped by
// the board, team or chat room they are viewing. It carries deltas only:
// a client that misses a message recovers by querying the API.
package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GroupKey names a set of connections, e.g. "board:<id>".
type GroupKey string

const (
	GroupBoard    = "board"
	GroupTeam     = "team"
	GroupChatRoom = "chatroom"
)

func BoardGroup(id uuid.UUID) GroupKey    { return GroupKey(GroupBoard + ":" + id.String()) }
func TeamGroup(id uuid.UUID) GroupKey     { return GroupKey(GroupTeam + ":" + id.String()) }
func ChatRoomGroup(id uuid.UUID) GroupKey { return GroupKey(GroupChatRoom + ":" + id.String()) }

// ParseGroup splits a key into its kind and entity id.
func ParseGroup(key GroupKey) (string, uuid.UUID, error) {
	kind, raw, ok := strings.Cut(string(key), ":")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("group %q has no kind prefix", key)
	}
	switch kind {
	case GroupBoard, GroupTeam, GroupChatRoom:
	default:
		return "", uuid.Nil, fmt.Errorf("unknown group kind %q", kind)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("group %q: %w", key, err)
	}
	return kind, id, nil
}

// kindOf labels metrics by group kind. Malformed keys count as "unknown".
func kindOf(key GroupKey) string {
	if kind, _, err := ParseGroup(key); err == nil {
		return kind
	}
	return "unknown"
}

// Event names sent to board groups.
const (
	EventItemCreated       = "ItemCreated"
	EventItemUpdated       = "ItemUpdated"
	EventItemStatusChanged = "ItemStatusChanged"
	EventItemDeleted       = "ItemDeleted"
	EventColumnCreated     = "ColumnCreated"
	EventColumnUpdated     = "ColumnUpdated"
	EventColumnDeleted     = "ColumnDeleted"
	EventBoardUpdated      = "BoardUpdated"
	EventBoardDeleted      = "BoardDeleted"
	EventMemberJoined      = "MemberJoined"
	EventMemberRoleChanged = "MemberRoleChanged"
	EventMemberRemoved     = "MemberRemoved"
	EventReceiveMessage    = "ReceiveMessage"
)

// Broadcaster delivers an event to every connection in a group. Delivery is
// best effort and never reports failure to the caller.
type Broadcaster interface {
	Broadcast(ctx context.Context, group GroupKey, event string, payload any)
}

// Envelope is the JSON frame written to clients.
type Envelope struct {
	Event   string   `json:"event"`
	Group   GroupKey `json:"group,omitempty"`
	Payload any      `json:"payload,omitempty"`
}
