package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"qr-hunt-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads question JSONB from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, level int) (domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM questions WHERE level=$1`, level).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, &domain.QuestionMissingError{Level: level}
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	var question domain.Question
	if err := json.Unmarshal(raw, &question); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	question.Level = level
	return question, nil
}
