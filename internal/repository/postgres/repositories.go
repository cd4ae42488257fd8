package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/boardsync/internal/repository"
)

// New wires every store to the same pool. The pool is goroutine-safe.
func New(pool *pgxpool.Pool) *repository.Repositories {
	return &repository.Repositories{
		Users:       NewUserStore(pool),
		Teams:       NewTeamStore(pool),
		Boards:      NewBoardStore(pool),
		Members:     NewMembershipStore(pool),
		Columns:     NewColumnStore(pool),
		Items:       NewItemStore(pool),
		Activity:    NewActivityStore(pool),
		Favorites:   NewFavoriteStore(pool),
		Invitations: NewInvitationStore(pool),
		Chat:        NewChatStore(pool),
		Tx:          NewTxManager(pool),
	}
}
