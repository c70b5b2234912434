package questions

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"quibluff/internal/domain"
	"quibluff/internal/logger"
	"quibluff/internal/metrics"
)

// Resilient не падает: сначала основной провайдер, потом кэш по той же
// теме, потом встроенный список
type Resilient struct {
	primary Provider
	cache   *Cache
	timeout time.Duration
	log     *slog.Logger
}

// NewResilient: primary может быть nil (нет ключа), cache тоже (нет redis)
func NewResilient(primary Provider, cache *Cache, timeout time.Duration) *Resilient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Resilient{
		primary: primary,
		cache:   cache,
		timeout: timeout,
		log:     logger.With("component", "questions"),
	}
}

func (r *Resilient) Generate(ctx context.Context, topic string, count int, mode domain.GameMode) ([]domain.Question, error) {
	count = ClampCount(count)

	if r.primary != nil {
		genCtx, cancel := context.WithTimeout(ctx, r.timeout)
		qs, err := r.primary.Generate(genCtx, topic, count, mode)
		cancel()
		if err == nil && len(qs) > 0 {
			metrics.QuestionSource.WithLabelValues("provider").Inc()
			if r.cache != nil {
				if err := r.cache.Store(ctx, topic, mode, qs); err != nil {
					r.log.Warn("failed to cache questions", "topic", topic, "error", err)
				}
			}
			return qs, nil
		}
		r.log.Warn("question provider failed", "topic", topic, "mode", mode, "error", err)
	}

	if r.cache != nil {
		qs, err := r.cache.Load(ctx, topic, mode)
		if err == nil {
			if len(qs) > count {
				qs = qs[:count]
			}
			metrics.QuestionSource.WithLabelValues("cache").Inc()
			r.log.Info("serving cached questions", "topic", topic, "count", len(qs))
			return qs, nil
		}
		r.log.Debug("no cached questions", "topic", topic, "error", err)
	}

	metrics.QuestionSource.WithLabelValues("fallback").Inc()
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return Fallback(count, mode, rng), nil
}
