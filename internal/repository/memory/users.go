package memory

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/models"
)

var errDuplicateEmail = errors.New("email already registered")

type UserStore struct{ s *Store }

func (r *UserStore) Create(ctx context.Context, email, displayName, passwordHash string) (*models.User, error) {
	defer r.s.lockWrite(ctx)()

	email = strings.ToLower(email)
	for _, u := range r.s.data.users {
		if u.Email == email {
			return nil, errDuplicateEmail
		}
	}
	u := models.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		Role:         models.GlobalUser,
		PasswordHash: passwordHash,
		CreatedAt:    r.s.now(),
	}
	r.s.data.users[u.ID] = u
	return &u, nil
}

func (r *UserStore) GetByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.data.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserStore) SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error {
	defer r.s.lockWrite(ctx)()

	if u, ok := r.s.data.users[userID]; ok {
		u.Banned = banned
		r.s.data.users[userID] = u
	}
	return nil
}

// PutUser inserts or replaces a user row verbatim. Used to seed admins.
func (s *Store) PutUser(u models.User) {
	defer s.lockWrite(context.Background())()
	s.data.users[u.ID] = u
}

type TeamStore struct{ s *Store }

func (r *TeamStore) Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Team, error) {
	defer r.s.lockWrite(ctx)()

	t := models.Team{ID: uuid.New(), Name: name, OwnerID: ownerID, CreatedAt: r.s.now()}
	r.s.data.teams[t.ID] = t
	return &t, nil
}

func (r *TeamStore) GetByID(_ context.Context, teamID uuid.UUID) (*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.data.teams[teamID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *TeamStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	teams := make([]models.Team, 0)
	for k := range r.s.data.teamMembers {
		if k.userID == userID {
			if t, ok := r.s.data.teams[k.scope]; ok {
				teams = append(teams, t)
			}
		}
	}
	slices.SortFunc(teams, func(a, b models.Team) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return teams, nil
}

func (r *TeamStore) AddMember(ctx context.Context, teamID, userID uuid.UUID, role string) error {
	defer r.s.lockWrite(ctx)()

	key := memberKey{teamID, userID}
	if _, ok := r.s.data.teamMembers[key]; ok {
		return nil
	}
	r.s.data.teamMembers[key] = models.TeamMember{TeamID: teamID, UserID: userID, Role: role, JoinedAt: r.s.now()}
	return nil
}

func (r *TeamStore) GetMember(_ context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.data.teamMembers[memberKey{teamID, userID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *TeamStore) ListMembers(_ context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	members := make([]models.TeamMember, 0)
	for k, m := range r.s.data.teamMembers {
		if k.scope == teamID {
			members = append(members, m)
		}
	}
	slices.SortFunc(members, func(a, b models.TeamMember) int { return a.JoinedAt.Compare(b.JoinedAt) })
	return members, nil
}
