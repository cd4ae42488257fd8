package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/boardsync/internal/models"
)

type InvitationStore struct {
	pool *pgxpool.Pool
}

func NewInvitationStore(pool *pgxpool.Pool) *InvitationStore {
	return &InvitationStore{pool: pool}
}

func (s *InvitationStore) CreateBoardInvite(ctx context.Context, inv models.BoardInvitation) error {
	query := `
		INSERT INTO board_invitations (token, board_id, email, role, invited_by, created_at, expires_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7)`

	_, err := conn(ctx, s.pool).Exec(ctx, query,
		inv.Token, inv.BoardID, inv.Email, inv.Role, inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert board invitation: %w", err)
	}
	return nil
}

const boardInviteSelect = `
	SELECT i.token, i.board_id, b.name, i.email, i.role, i.invited_by, i.created_at, i.expires_at
	FROM board_invitations i
	JOIN boards b ON b.id = i.board_id`

func scanBoardInvite(row pgx.Row) (*models.BoardInvitation, error) {
	var inv models.BoardInvitation
	err := row.Scan(
		&inv.Token,
		&inv.BoardID,
		&inv.BoardName,
		&inv.Email,
		&inv.Role,
		&inv.InvitedBy,
		&inv.CreatedAt,
		&inv.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *InvitationStore) GetBoardInvite(ctx context.Context, token string) (*models.BoardInvitation, error) {
	inv, err := scanBoardInvite(conn(ctx, s.pool).QueryRow(ctx, boardInviteSelect+` WHERE i.token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get board invitation: %w", err)
	}
	return inv, nil
}

func (s *InvitationStore) DeleteBoardInvite(ctx context.Context, token string) error {
	if _, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM board_invitations WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete board invitation: %w", err)
	}
	return nil
}

func (s *InvitationStore) ListBoardInvites(ctx context.Context, email string, now time.Time) ([]models.BoardInvitation, error) {
	query := boardInviteSelect + `
		WHERE i.email = lower($1) AND i.expires_at > $2
		ORDER BY i.created_at DESC`

	rows, err := conn(ctx, s.pool).Query(ctx, query, email, now)
	if err != nil {
		return nil, fmt.Errorf("list board invitations: %w", err)
	}
	defer rows.Close()

	invites := make([]models.BoardInvitation, 0)
	for rows.Next() {
		inv, err := scanBoardInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board invitation: %w", err)
		}
		invites = append(invites, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board invitations: %w", err)
	}
	return invites, nil
}

func (s *InvitationStore) CreateTeamInvite(ctx context.Context, inv models.TeamInvitation) error {
	query := `
		INSERT INTO team_invitations (token, team_id, email, invited_by, created_at, expires_at)
		VALUES ($1, $2, lower($3), $4, $5, $6)`

	_, err := conn(ctx, s.pool).Exec(ctx, query,
		inv.Token, inv.TeamID, inv.Email, inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert team invitation: %w", err)
	}
	return nil
}

const teamInviteSelect = `
	SELECT i.token, i.team_id, t.name, i.email, i.invited_by, i.created_at, i.expires_at
	FROM team_invitations i
	JOIN teams t ON t.id = i.team_id`

func scanTeamInvite(row pgx.Row) (*models.TeamInvitation, error) {
	var inv models.TeamInvitation
	err := row.Scan(
		&inv.Token,
		&inv.TeamID,
		&inv.TeamName,
		&inv.Email,
		&inv.InvitedBy,
		&inv.CreatedAt,
		&inv.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *InvitationStore) GetTeamInvite(ctx context.Context, token string) (*models.TeamInvitation, error) {
	inv, err := scanTeamInvite(conn(ctx, s.pool).QueryRow(ctx, teamInviteSelect+` WHERE i.token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team invitation: %w", err)
	}
	return inv, nil
}

func (s *InvitationStore) DeleteTeamInvite(ctx context.Context, token string) error {
	if _, err := conn(ctx, s.pool).Exec(ctx, `DELETE FROM team_invitations WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete team invitation: %w", err)
	}
	return nil
}

func (s *InvitationStore) ListTeamInvites(ctx context.Context, email string, now time.Time) ([]models.TeamInvitation, error) {
	query := teamInviteSelect + `
		WHERE i.email = lower($1) AND i.expires_at > $2
		ORDER BY i.created_at DESC`

	rows, err := conn(ctx, s.pool).Query(ctx, query, email, now)
	if err != nil {
		return nil, fmt.Errorf("list team invitations: %w", err)
	}
	defer rows.Close()

	invites := make([]models.TeamInvitation, 0)
	for rows.Next() {
		inv, err := scanTeamInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team invitation: %w", err)
		}
		invites = append(invites, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team invitations: %w", err)
	}
	return invites, nil
}
