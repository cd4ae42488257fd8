package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/models"
)

// Lookups return (nil, nil) when the row does not exist. Services decide
// which not-found outcome that becomes.

// ErrVersionConflict is returned by ItemRepository.Update when the stored
// version no longer matches the one the caller read.
var ErrVersionConflict = errors.New("item version conflict")

// TxManager runs fn inside one storage transaction. Repository calls made
// with the ctx handed to fn join that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, email, displayName, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// GetByEmail is case-insensitive.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error
}

type TeamRepository interface {
	Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Team, error)
	GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Team, error)
	AddMember(ctx context.Context, teamID, userID uuid.UUID, role string) error
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error)
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)
}

type BoardRepository interface {
	Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Board, error)
	GetByID(ctx context.Context, boardID uuid.UUID) (*models.Board, error)
	// ListForUser returns boards the user is a member of, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Board, error)
	Rename(ctx context.Context, boardID uuid.UUID, name string) error
	Delete(ctx context.Context, boardID uuid.UUID) error
}

// MembershipRepository is the board membership table, the single source of
// truth for permission decisions.
type MembershipRepository interface {
	Get(ctx context.Context, boardID, userID uuid.UUID) (*models.BoardMember, error)
	List(ctx context.Context, boardID uuid.UUID) ([]models.BoardMember, error)
	// ListForUpdate is List that also locks the returned rows until the
	// surrounding transaction ends. Outside a transaction it is plain List.
	ListForUpdate(ctx context.Context, boardID uuid.UUID) ([]models.BoardMember, error)
	// Add is a no-op when the member already exists.
	Add(ctx context.Context, boardID, userID uuid.UUID, role models.Role) error
	UpdateRole(ctx context.Context, boardID, userID uuid.UUID, role models.Role) error
	Remove(ctx context.Context, boardID, userID uuid.UUID) error
}

type ColumnRepository interface {
	// Create appends the column after the board's last one.
	Create(ctx context.Context, boardID uuid.UUID, name string) (*models.Column, error)
	GetByID(ctx context.Context, columnID uuid.UUID) (*models.Column, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]models.Column, error)
	Rename(ctx context.Context, columnID uuid.UUID, name string) error
	Delete(ctx context.Context, columnID uuid.UUID) error
}

type ItemRepository interface {
	// Create assigns ID, Version=1 and timestamps.
	Create(ctx context.Context, item models.Item) (*models.Item, error)
	GetByID(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]models.Item, error)
	// Update writes every mutable field if the stored version equals
	// expectedVersion and returns the row with its bumped version.
	Update(ctx context.Context, item models.Item, expectedVersion int64) (*models.Item, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
}

// ActivityRepository is the audit log. It has no update or delete methods.
type ActivityRepository interface {
	Append(ctx context.Context, entry models.ActivityLog) error
	// ListByItem returns entries in append order (timestamp ascending).
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.ActivityLog, error)
}

type FavoriteRepository interface {
	Exists(ctx context.Context, userID, boardID uuid.UUID) (bool, error)
	Add(ctx context.Context, userID, boardID uuid.UUID) error
	Remove(ctx context.Context, userID, boardID uuid.UUID) error
	ListBoards(ctx context.Context, userID uuid.UUID) ([]models.Board, error)
}

type InvitationRepository interface {
	CreateBoardInvite(ctx context.Context, inv models.BoardInvitation) error
	GetBoardInvite(ctx context.Context, token string) (*models.BoardInvitation, error)
	DeleteBoardInvite(ctx context.Context, token string) error
	// ListBoardInvites returns unexpired invitations addressed to email.
	ListBoardInvites(ctx context.Context, email string, now time.Time) ([]models.BoardInvitation, error)

	CreateTeamInvite(ctx context.Context, inv models.TeamInvitation) error
	GetTeamInvite(ctx context.Context, token string) (*models.TeamInvitation, error)
	DeleteTeamInvite(ctx context.Context, token string) error
	ListTeamInvites(ctx context.Context, email string, now time.Time) ([]models.TeamInvitation, error)
}

type ChatRepository interface {
	GetRoom(ctx context.Context, roomType models.RoomType, entityID uuid.UUID) (*models.ChatRoom, error)
	GetRoomByID(ctx context.Context, roomID uuid.UUID) (*models.ChatRoom, error)
	// CreateRoom returns the existing room when one is already keyed by
	// (roomType, entityID).
	CreateRoom(ctx context.Context, roomType models.RoomType, entityID uuid.UUID) (*models.ChatRoom, error)
	AddMessage(ctx context.Context, roomID, userID uuid.UUID, text string) (*models.ChatMessage, error)
	// ListMessages returns messages oldest first.
	ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

// Repositories bundles one backend's implementations.
type Repositories struct {
	Users       UserRepository
	Teams       TeamRepository
	Boards      BoardRepository
	Members     MembershipRepository
	Columns     ColumnRepository
	Items       ItemRepository
	Activity    ActivityRepository
	Favorites   FavoriteRepository
	Invitations InvitationRepository
	Chat        ChatRepository
	Tx          TxManager
}
