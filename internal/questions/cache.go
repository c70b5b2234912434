package questions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"quibluff/internal/domain"
)

const (
	cachePrefix = "quibluff:questions:"
	DefaultTTL  = 24 * time.Hour
)

// Cache хранит в redis последнюю удачную пачку по теме и режиму, чтобы при
// падении провайдера вопросы оставались по теме
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(topic string, mode domain.GameMode) string {
	return cachePrefix + string(mode) + ":" + strings.ToLower(strings.TrimSpace(topic))
}

func (c *Cache) Store(ctx context.Context, topic string, mode domain.GameMode, qs []domain.Question) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(topic, mode), data, c.ttl).Err()
}

// Load возвращает ErrNoQuestions, если по теме ничего нет
func (c *Cache) Load(ctx context.Context, topic string, mode domain.GameMode) ([]domain.Question, error) {
	data, err := c.rdb.Get(ctx, cacheKey(topic, mode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoQuestions
	}
	if err != nil {
		return nil, err
	}
	var qs []domain.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, ErrNoQuestions
	}
	return qs, nil
}
