package postgres

import (
	"context"
	"fmt"

	"qr-hunt-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptLog appends answer submissions to the attempts table. Rows are
// insert-only; nothing in the service updates or deletes them.
type AttemptLog struct {
	pool *pgxpool.Pool
}

func NewAttemptLog(pool *pgxpool.Pool) *AttemptLog {
	return &AttemptLog{pool: pool}
}

func (l *AttemptLog) Append(ctx context.Context, attempt domain.Attempt) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO attempts (team_id, level, answer, correct, time_taken_ms, ts)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		attempt.TeamID, attempt.Level, attempt.Answer, attempt.Correct, attempt.TimeTakenMs, attempt.TS,
	)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}
