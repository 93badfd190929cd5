package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"qr-hunt-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TeamStore is a Redis-backed implementation of app.TeamRepository.
// Each team lives in one JSON record; optimistic locking rides on a
// version counter checked inside a WATCH transaction, so concurrent
// saves of the same team surface as domain.ErrConflict.
type TeamStore struct {
	client *redis.Client
}

func NewTeamStore(client *redis.Client) *TeamStore {
	return &TeamStore{client: client}
}

// teamRecord is the persisted shape; the version counter is stored
// alongside the team rather than inside it.
type teamRecord struct {
	Team    domain.Team `json:"team"`
	Version int64       `json:"version"`
}

func (s *TeamStore) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, fmt.Errorf("get team: %w", err)
	}
	return decodeTeam(raw)
}

func (s *TeamStore) SaveTeam(ctx context.Context, team domain.Team) error {
	key := s.key(team.ID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrTeamNotFound
		}
		if err != nil {
			return fmt.Errorf("get team: %w", err)
		}
		var stored teamRecord
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return fmt.Errorf("unmarshal team: %w", err)
		}
		if stored.Version != team.Version {
			return domain.ErrConflict
		}

		data, err := encodeTeam(team, team.Version+1)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrConflict
	}
	return err
}

// CreateTeam registers a team once; re-creating an existing id is a
// no-op so startup seeding stays idempotent.
func (s *TeamStore) CreateTeam(ctx context.Context, team domain.Team) error {
	data, err := encodeTeam(team, team.Version)
	if err != nil {
		return err
	}
	created, err := s.client.SetNX(ctx, s.key(team.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	if !created {
		return nil
	}
	// Roster list preserves creation order for stable leaderboard ties.
	if err := s.client.RPush(ctx, s.rosterKey(), team.ID).Err(); err != nil {
		return fmt.Errorf("push roster: %w", err)
	}
	return nil
}

func (s *TeamStore) ListTeams(ctx context.Context) ([]domain.Team, error) {
	ids, err := s.client.LRange(ctx, s.rosterKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	teams := make([]domain.Team, 0, len(ids))
	for _, id := range ids {
		team, err := s.GetTeam(ctx, id)
		if errors.Is(err, domain.ErrTeamNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func (s *TeamStore) key(id string) string {
	return "hunt:team:" + id
}

func (s *TeamStore) rosterKey() string {
	return "hunt:teams"
}

func encodeTeam(team domain.Team, version int64) ([]byte, error) {
	data, err := json.Marshal(teamRecord{Team: team, Version: version})
	if err != nil {
		return nil, fmt.Errorf("marshal team: %w", err)
	}
	return data, nil
}

func decodeTeam(raw string) (domain.Team, error) {
	var rec teamRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.Team{}, fmt.Errorf("unmarshal team: %w", err)
	}
	team := rec.Team
	team.Version = rec.Version
	return team, nil
}
