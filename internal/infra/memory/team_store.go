package memory

import (
	"context"
	"sync"

	"qr-hunt-service/internal/domain"
)

// TeamStore is an in-memory implementation of app.TeamRepository. Saves
// are guarded by a per-record version counter so concurrent
// read-modify-write cycles surface as domain.ErrConflict.
type TeamStore struct {
	mu    sync.RWMutex
	teams map[string]domain.Team
	order []string
}

func NewTeamStore() *TeamStore {
	return &TeamStore{teams: make(map[string]domain.Team)}
}

func (s *TeamStore) GetTeam(_ context.Context, id string) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return cloneTeam(team), nil
}

func (s *TeamStore) SaveTeam(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.teams[team.ID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	if stored.Version != team.Version {
		return domain.ErrConflict
	}
	team.Version++
	s.teams[team.ID] = cloneTeam(team)
	return nil
}

// CreateTeam registers a team; it is a no-op when the id already exists
// so startup seeding stays idempotent.
func (s *TeamStore) CreateTeam(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; ok {
		return nil
	}
	s.teams[team.ID] = cloneTeam(team)
	s.order = append(s.order, team.ID)
	return nil
}

// ListTeams returns teams in creation order, which keeps leaderboard
// tie-breaking stable across calls.
func (s *TeamStore) ListTeams(_ context.Context) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]domain.Team, 0, len(s.order))
	for _, id := range s.order {
		teams = append(teams, cloneTeam(s.teams[id]))
	}
	return teams, nil
}

// cloneTeam deep-copies pointer and map fields so callers never alias
// stored state.
func cloneTeam(team domain.Team) domain.Team {
	if team.CurrentLevelStart != nil {
		v := *team.CurrentLevelStart
		team.CurrentLevelStart = &v
	}
	if team.LockUntil != nil {
		v := *team.LockUntil
		team.LockUntil = &v
	}
	if team.LevelTimes != nil {
		times := make(map[int]int64, len(team.LevelTimes))
		for level, ms := range team.LevelTimes {
			times[level] = ms
		}
		team.LevelTimes = times
	}
	return team
}
