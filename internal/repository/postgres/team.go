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

type TeamStore struct {
	pool *pgxpool.Pool
}

func NewTeamStore(pool *pgxpool.Pool) *TeamStore {
	return &TeamStore{pool: pool}
}

func (s *TeamStore) Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Team, error) {
	query := `
		INSERT INTO teams (name, owner_id, created_at)
		VALUES ($1, $2, now())
		RETURNING id, name, owner_id, created_at`

	var t models.Team
	err := conn(ctx, s.pool).QueryRow(ctx, query, name, ownerID).Scan(
		&t.ID,
		&t.Name,
		&t.OwnerID,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}
	return &t, nil
}

func (s *TeamStore) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	query := `SELECT id, name, owner_id, created_at FROM teams WHERE id = $1`

	var t models.Team
	err := conn(ctx, s.pool).QueryRow(ctx, query, teamID).Scan(&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return &t, nil
}

func (s *TeamStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Team, error) {
	query := `
		SELECT t.id, t.name, t.owner_id, t.created_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at DESC`

	rows, err := conn(ctx, s.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return teams, nil
}

func (s *TeamStore) AddMember(ctx context.Context, teamID, userID uuid.UUID, role string) error {
	query := `
		INSERT INTO team_members (team_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (team_id, user_id) DO NOTHING`

	if _, err := conn(ctx, s.pool).Exec(ctx, query, teamID, userID, role); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

func (s *TeamStore) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	query := `
		SELECT team_id, user_id, role, joined_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2`

	var m models.TeamMember
	err := conn(ctx, s.pool).QueryRow(ctx, query, teamID, userID).Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team member: %w", err)
	}
	return &m, nil
}

func (s *TeamStore) ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	query := `
		SELECT team_id, user_id, role, joined_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY joined_at`

	rows, err := conn(ctx, s.pool).Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0)
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team members: %w", err)
	}
	return members, nil
}
