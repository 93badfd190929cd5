package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"qr-hunt-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question content from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, level int) (domain.Question, error)
}

// QuestionRepository caches question JSON in Redis (one key per level)
// and falls back to a loader on cache miss. Misses for a configured
// level are a content defect and are never cached.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) QuestionByLevel(ctx context.Context, level int) (domain.Question, error) {
	key := r.key(level)

	raw, err := r.client.Get(ctx, key).Result()
	if err == nil {
		return decodeQuestion(raw)
	}
	if !errors.Is(err, redis.Nil) {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}

	result, err, _ := r.sf.Do(strconv.Itoa(level), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := r.client.Get(ctx, key).Result()
		if err == nil {
			return decodeQuestion(raw)
		}

		question, err := r.loader.LoadQuestion(ctx, level)
		if err != nil {
			return domain.Question{}, err
		}

		data, err := json.Marshal(question)
		if err != nil {
			return domain.Question{}, fmt.Errorf("marshal question: %w", err)
		}
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (r *QuestionRepository) key(level int) string {
	return "hunt:question:" + strconv.Itoa(level)
}

func decodeQuestion(raw string) (domain.Question, error) {
	var question domain.Question
	if err := json.Unmarshal([]byte(raw), &question); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return question, nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
