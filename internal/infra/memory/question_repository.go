package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"qr-hunt-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question content from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, level int) (domain.Question, error)
}

// QuestionRepository caches questions with TTL to avoid repeated DB hits.
// Questions are static during a run, so a short TTL is plenty.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedQuestion),
	}
}

func (r *QuestionRepository) QuestionByLevel(ctx context.Context, level int) (domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[level]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.question, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(strconv.Itoa(level), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[level]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.question, nil
		}
		r.mu.RUnlock()

		question, err := r.loader.LoadQuestion(ctx, level)
		if err != nil {
			return domain.Question{}, err
		}

		r.mu.Lock()
		r.cache[level] = cachedQuestion{
			question:  question,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by an in-memory map
// (useful for tests/demos).
type StaticQuestionLoader struct {
	questions map[int]domain.Question
}

func NewStaticQuestionLoader(questions map[int]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestion(_ context.Context, level int) (domain.Question, error) {
	if question, ok := l.questions[level]; ok {
		return question, nil
	}
	return domain.Question{}, &domain.QuestionMissingError{Level: level}
}
