package memory

import (
	"context"
	"sync"

	"qr-hunt-service/internal/domain"
)

// AttemptLog is an in-memory append-only implementation of
// app.AttemptLog.
type AttemptLog struct {
	mu       sync.RWMutex
	attempts []domain.Attempt
}

func NewAttemptLog() *AttemptLog {
	return &AttemptLog{}
}

func (l *AttemptLog) Append(_ context.Context, attempt domain.Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

// Attempts returns a copy of the recorded attempts in append order.
func (l *AttemptLog) Attempts() []domain.Attempt {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Attempt, len(l.attempts))
	copy(out, l.attempts)
	return out
}
