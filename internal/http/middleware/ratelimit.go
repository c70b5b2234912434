package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"quibluff/internal/logger"
)

// RedisRateLimiter: счётчик в фиксированном окне на IP и маршрут, общий
// для всех инстансов с одним redis
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// NewRedisRateLimiter возвращает nil без redis или при limit <= 0,
// nil-лимитер пропускает всё
func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	if rdb == nil || limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window}
}

func (l *RedisRateLimiter) key(c *gin.Context, now time.Time) string {
	bucket := now.UnixNano() / int64(l.window)
	return "quibluff:ratelimit:" + c.ClientIP() + ":" + c.FullPath() + ":" + strconv.FormatInt(bucket, 10)
}

// Allow: помещается ли ещё один запрос в окно. При ошибке redis
// запрос пропускаем
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(l.limit), nil
}

func (l *RedisRateLimiter) Middleware() gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log := logger.With("component", "ratelimit")
	return func(c *gin.Context) {
		ok, err := l.Allow(c.Request.Context(), l.key(c, time.Now()))
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", "error", err)
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
