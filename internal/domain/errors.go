package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when a level token fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTeamNotFound is returned when no team exists for the given id.
	ErrTeamNotFound = errors.New("team not found")
	// ErrGameCompleted is returned once a team has cleared every level.
	ErrGameCompleted = errors.New("game completed")
	// ErrConflict signals a concurrent modification of a team record;
	// callers retry the whole read-modify-write cycle.
	ErrConflict = errors.New("team record modified concurrently")
)

// LockedError rejects scans/answers during a post-wrong-answer cooldown.
type LockedError struct {
	RemainingMs int64
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("team locked for %dms", e.RemainingMs)
}

// LevelMismatchError rejects a token whose level is not the team's
// current progress (anti-skip, anti-replay).
type LevelMismatchError struct {
	Allowed int
}

func (e *LevelMismatchError) Error() string {
	return fmt.Sprintf("level locked, allowed level is %d", e.Allowed)
}

// QuestionMissingError indicates a content defect: an in-range level has
// no question. Unlike the gating errors above this one is fatal and
// should page whoever deployed the game data.
type QuestionMissingError struct {
	Level int
}

func (e *QuestionMissingError) Error() string {
	return fmt.Sprintf("no question configured for level %d", e.Level)
}
