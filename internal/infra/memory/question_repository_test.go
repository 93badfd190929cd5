package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"qr-hunt-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[int]domain.Question{
			1: sampleQuestion(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.QuestionByLevel(context.Background(), 1); err != nil {
		t.Fatalf("get question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.QuestionByLevel(context.Background(), 1); err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryPropagatesMissingLevel(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionLoader(nil), time.Minute)

	_, err := repo.QuestionByLevel(context.Background(), 7)
	var missing *domain.QuestionMissingError
	if !errors.As(err, &missing) || missing.Level != 7 {
		t.Fatalf("expected question-missing for level 7, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestion(ctx context.Context, level int) (domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestion(ctx, level)
}

func sampleQuestion() domain.Question {
	return domain.Question{
		Level:   1,
		Text:    "What year was the first QR code created?",
		Options: []string{"1994", "1999", "2004"},
		Answer:  "1994",
	}
}
