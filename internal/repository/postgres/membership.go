package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/boardsync/internal/models"
)

type MembershipStore struct {
	pool *pgxpool.Pool
}

func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

func (s *MembershipStore) Get(ctx context.Context, boardID, userID uuid.UUID) (*models.BoardMember, error) {
	query := `
		SELECT board_id, user_id, role, joined_at
		FROM board_members
		WHERE board_id = $1 AND user_id = $2`

	var m models.BoardMember
	err := conn(ctx, s.pool).QueryRow(ctx, query, boardID, userID).Scan(&m.BoardID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (s *MembershipStore) List(ctx context.Context, boardID uuid.UUID) ([]models.BoardMember, error) {
	query := `
		SELECT board_id, user_id, role, joined_at
		FROM board_members
		WHERE board_id = $1
		ORDER BY joined_at`

	return s.list(ctx, query, boardID)
}

// ListForUpdate locks every member row of the board in user_id order, so
// concurrent role changes on one board queue behind each other instead of
// each counting admins from a stale snapshot.
func (s *MembershipStore) ListForUpdate(ctx context.Context, boardID uuid.UUID) ([]models.BoardMember, error) {
	query := `
		SELECT board_id, user_id, role, joined_at
		FROM board_members
		WHERE board_id = $1
		ORDER BY user_id
		FOR UPDATE`

	return s.list(ctx, query, boardID)
}

func (s *MembershipStore) list(ctx context.Context, query string, boardID uuid.UUID) ([]models.BoardMember, error) {
	rows, err := conn(ctx, s.pool).Query(ctx, query, boardID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.BoardMember, 0)
	for rows.Next() {
		var m models.BoardMember
		if err := rows.Scan(&m.BoardID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}

func (s *MembershipStore) Add(ctx context.Context, boardID, userID uuid.UUID, role models.Role) error {
	query := `
		INSERT INTO board_members (board_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (board_id, user_id) DO NOTHING`

	if _, err := conn(ctx, s.pool).Exec(ctx, query, boardID, userID, role); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *MembershipStore) UpdateRole(ctx context.Context, boardID, userID uuid.UUID, role models.Role) error {
	query := `
		UPDATE board_members SET role = $3
		WHERE board_id = $1 AND user_id = $2`

	if _, err := conn(ctx, s.pool).Exec(ctx, query, boardID, userID, role); err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

func (s *MembershipStore) Remove(ctx context.Context, boardID, userID uuid.UUID) error {
	query := `
		DELETE FROM board_members
		WHERE board_id = $1 AND user_id = $2`

	if _, err := conn(ctx, s.pool).Exec(ctx, query, boardID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}
