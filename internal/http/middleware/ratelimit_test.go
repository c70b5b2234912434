package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRouter(l *RedisRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/rooms", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func hit(r http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/rooms", nil)
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	r := limitedRouter(NewRedisRateLimiter(rdb, 2, time.Minute))

	assert.Equal(t, http.StatusCreated, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusCreated, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusCreated, hit(r, "10.0.0.2"), "limits are per client")

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	assert.Positive(t, mr.TTL(keys[0]))
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	r := limitedRouter(NewRedisRateLimiter(rdb, 1, time.Minute))

	assert.Equal(t, http.StatusCreated, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusCreated, hit(r, "10.0.0.1"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	assert.Nil(t, NewRedisRateLimiter(nil, 10, time.Minute))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	assert.Nil(t, NewRedisRateLimiter(rdb, 0, time.Minute))

	r := limitedRouter(nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusCreated, hit(r, "10.0.0.1"))
	}
}
