package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"qr-hunt-service/internal/domain"
	"qr-hunt-service/internal/token"
)

// TeamRepository abstracts how team progress records are stored
// (in-memory, Redis, etc). SaveTeam returns domain.ErrConflict when the
// record changed underneath the caller.
type TeamRepository interface {
	GetTeam(ctx context.Context, id string) (domain.Team, error)
	SaveTeam(ctx context.Context, team domain.Team) error
	CreateTeam(ctx context.Context, team domain.Team) error
	ListTeams(ctx context.Context) ([]domain.Team, error)
}

// QuestionRepository loads level questions (from cache/backing store).
type QuestionRepository interface {
	QuestionByLevel(ctx context.Context, level int) (domain.Question, error)
}

// AttemptLog records every answer submission. Records are append-only.
type AttemptLog interface {
	Append(ctx context.Context, attempt domain.Attempt) error
}

// Broadcaster delivers realtime events to connected clients. Delivery is
// best-effort: implementations must never block the caller.
type Broadcaster interface {
	ToTeam(teamID string, event Event)
	ToAll(event Event)
}

// Event kinds pushed over the realtime channel.
const (
	EventLevelStarted      = "level_started"
	EventTeamUpdate        = "team:update"
	EventLeaderboardUpdate = "leaderboard:update"
)

// Event is one realtime notification.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// LevelStartedPayload announces a successful scan to the team's room.
type LevelStartedPayload struct {
	TeamID  string `json:"teamId"`
	Level   int    `json:"level"`
	StartTs int64  `json:"startTs"`
}

// NopBroadcaster discards every event; useful for tests and for wiring
// the engine without a realtime transport.
type NopBroadcaster struct{}

func (NopBroadcaster) ToTeam(string, Event) {}
func (NopBroadcaster) ToAll(Event)          {}

// ScanResult is the response to a successful QR scan: the question for
// the unlocked level, never the answer.
type ScanResult struct {
	Level    int      `json:"level"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// AnswerResult reports the outcome of an answer submission.
type AnswerResult struct {
	Correct   bool  `json:"correct"`
	NextLevel int   `json:"nextLevel,omitempty"`
	Completed bool  `json:"completed,omitempty"`
	LockUntil int64 `json:"lockUntil,omitempty"`
}

const (
	defaultLevelCount = 10
	defaultCooldown   = 30 * time.Second

	// saveRetries bounds the read-modify-write cycle on CAS conflicts.
	saveRetries = 3
)

// Config wires the game engine's collaborators and tunables.
type Config struct {
	Teams      TeamRepository
	Questions  QuestionRepository
	Attempts   AttemptLog
	Broadcast  Broadcaster
	Codec      *token.Codec
	LevelCount int           // defaults to 10
	Cooldown   time.Duration // wrong-answer lockout, defaults to 30s
}

// GameService is the progression engine: it owns the scan → question →
// answer → advance/lock state machine for every team.
type GameService struct {
	teams      TeamRepository
	questions  QuestionRepository
	attempts   AttemptLog
	bus        Broadcaster
	codec      *token.Codec
	levelCount int
	cooldown   time.Duration
	now        func() time.Time
}

func NewGameService(cfg Config) *GameService {
	return newGameServiceWithClock(cfg, time.Now)
}

// NewGameServiceWithClock is test-only for deterministic timing.
func NewGameServiceWithClock(cfg Config, now func() time.Time) *GameService {
	return newGameServiceWithClock(cfg, now)
}

func newGameServiceWithClock(cfg Config, now func() time.Time) *GameService {
	if cfg.LevelCount == 0 {
		cfg.LevelCount = defaultLevelCount
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.Broadcast == nil {
		cfg.Broadcast = NopBroadcaster{}
	}
	return &GameService{
		teams:      cfg.Teams,
		questions:  cfg.Questions,
		attempts:   cfg.Attempts,
		bus:        cfg.Broadcast,
		codec:      cfg.Codec,
		levelCount: cfg.LevelCount,
		cooldown:   cfg.Cooldown,
		now:        now,
	}
}

// Scan handles a QR scan: it verifies the token, gates it against the
// team's state, starts the level timer and returns the level's question.
func (s *GameService) Scan(ctx context.Context, tok, teamID string) (ScanResult, error) {
	payload, ok := s.codec.Verify(tok)
	if !ok {
		return ScanResult{}, domain.ErrInvalidToken
	}

	var (
		result  ScanResult
		startTs int64
	)
	err := s.withTeam(ctx, teamID, func(team *domain.Team, nowMs int64) (bool, error) {
		if err := s.gate(team, payload.Level, nowMs); err != nil {
			return false, err
		}
		question, err := s.questions.QuestionByLevel(ctx, payload.Level)
		if err != nil {
			return false, err
		}
		startTs = nowMs
		team.CurrentLevelStart = &startTs
		result = ScanResult{Level: payload.Level, Question: question.Text, Options: question.Options}
		return true, nil
	})
	if err != nil {
		return ScanResult{}, err
	}

	s.bus.ToTeam(teamID, Event{Type: EventLevelStarted, Payload: LevelStartedPayload{
		TeamID:  teamID,
		Level:   result.Level,
		StartTs: startTs,
	}})
	return result, nil
}

// Answer scores a submission against the team's current level. Correct
// answers advance progress by exactly one and close the level timer;
// wrong answers start the cooldown lock. Every submission is recorded in
// the attempt log.
func (s *GameService) Answer(ctx context.Context, tok, teamID, answer string) (AnswerResult, error) {
	payload, ok := s.codec.Verify(tok)
	if !ok {
		return AnswerResult{}, domain.ErrInvalidToken
	}

	var (
		result   AnswerResult
		attempt  domain.Attempt
		snapshot domain.Team
	)
	err := s.withTeam(ctx, teamID, func(team *domain.Team, nowMs int64) (bool, error) {
		if err := s.gate(team, payload.Level, nowMs); err != nil {
			return false, err
		}
		question, err := s.questions.QuestionByLevel(ctx, payload.Level)
		if err != nil {
			return false, err
		}

		correct := normalizeAnswer(answer) == normalizeAnswer(question.Answer)

		// A submission without a preceding scan has no timer to close;
		// it still gets scored and logged, just with no elapsed time.
		var elapsed *int64
		if team.CurrentLevelStart != nil {
			d := nowMs - *team.CurrentLevelStart
			elapsed = &d
		}
		attempt = domain.Attempt{
			TeamID:      teamID,
			Level:       payload.Level,
			Answer:      answer,
			Correct:     correct,
			TimeTakenMs: elapsed,
			TS:          nowMs,
		}

		if correct {
			if elapsed != nil {
				team.TotalTimeMs += *elapsed
				if team.LevelTimes == nil {
					team.LevelTimes = make(map[int]int64)
				}
				team.LevelTimes[payload.Level] = *elapsed
			}
			team.CurrentLevelStart = nil
			team.LockUntil = nil
			if team.Progress <= s.levelCount {
				team.Progress++
			}
			result = AnswerResult{
				Correct:   true,
				NextLevel: team.Progress,
				Completed: team.Progress > s.levelCount,
			}
		} else {
			// The level clock keeps running through the lockout;
			// progress has not advanced, so the timer stays open.
			lock := nowMs + s.cooldown.Milliseconds()
			team.LockUntil = &lock
			result = AnswerResult{Correct: false, LockUntil: lock}
		}
		snapshot = *team
		return true, nil
	})
	if err != nil {
		return AnswerResult{}, err
	}

	// Appended after the state transition commits so a CAS retry cannot
	// double-log one submission.
	if err := s.attempts.Append(ctx, attempt); err != nil {
		log.Printf("append attempt for team %s: %v", teamID, err)
	}

	if result.Correct {
		if entries, err := s.Leaderboard(ctx); err == nil {
			s.bus.ToAll(Event{Type: EventLeaderboardUpdate, Payload: entries})
		} else {
			log.Printf("leaderboard recompute: %v", err)
		}
		s.bus.ToTeam(teamID, Event{Type: EventTeamUpdate, Payload: snapshot})
	}
	return result, nil
}

// Team returns a snapshot of one team with any expired lock normalized
// away. Clients that missed realtime events recover through this.
func (s *GameService) Team(ctx context.Context, id string) (domain.Team, error) {
	team, err := s.teams.GetTeam(ctx, id)
	if err != nil {
		return domain.Team{}, err
	}
	normalizeLock(&team, s.now().UnixMilli())
	return team, nil
}

// Leaderboard ranks all teams by progress, then total elapsed time.
func (s *GameService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Rank(teams), nil
}

// withTeam runs fn inside a read-modify-write cycle with bounded retries
// on concurrent-modification conflicts. This gives per-team
// serializability: two racing operations on one team can never both
// commit against the same starting state.
func (s *GameService) withTeam(ctx context.Context, id string, fn func(team *domain.Team, nowMs int64) (bool, error)) error {
	for i := 0; i < saveRetries; i++ {
		team, err := s.teams.GetTeam(ctx, id)
		if err != nil {
			return err
		}
		nowMs := s.now().UnixMilli()
		normalizeLock(&team, nowMs)

		save, err := fn(&team, nowMs)
		if err != nil {
			return err
		}
		if !save {
			return nil
		}

		err = s.teams.SaveTeam(ctx, team)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return domain.ErrConflict
}

// gate applies the shared lock/completion/level-match checks. Rejections
// leave team state untouched.
func (s *GameService) gate(team *domain.Team, level int, nowMs int64) error {
	if team.LockUntil != nil {
		return &domain.LockedError{RemainingMs: *team.LockUntil - nowMs}
	}
	if team.Progress > s.levelCount {
		return domain.ErrGameCompleted
	}
	if level != team.Progress {
		return &domain.LevelMismatchError{Allowed: team.Progress}
	}
	return nil
}

// normalizeLock clears an expired lock in place. Expiry is evaluated
// lazily at each gating operation; there is no background sweep.
func normalizeLock(team *domain.Team, nowMs int64) {
	if team.LockUntil != nil && *team.LockUntil <= nowMs {
		team.LockUntil = nil
	}
}

// normalizeAnswer applies the only matching rule: case-insensitive,
// whitespace-trimmed equality.
func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
