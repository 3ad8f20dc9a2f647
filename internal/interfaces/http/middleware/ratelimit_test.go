package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"supportdesk/internal/shared/constants"
	"supportdesk/internal/shared/logger"
)

func newLimitedEngine(client *redis.Client, prefix string, limit int) *gin.Engine {
	engine := gin.New()
	engine.Use(Identity())
	engine.POST("/", NewRateLimiter(client, prefix, limit, time.Minute, logger.NewNop()).Limit(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return engine
}

func postAs(engine *gin.Engine, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(constants.HeaderUserID, userID)
	return serve(engine, req)
}

func TestRateLimiter_Limit(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	prefix := "ratelimit-test-" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	engine := newLimitedEngine(client, prefix, 2)

	assert.Equal(t, http.StatusCreated, postAs(engine, "u1").Code)
	assert.Equal(t, http.StatusCreated, postAs(engine, "u1").Code)

	w := postAs(engine, "u1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// separate budget per caller
	assert.Equal(t, http.StatusCreated, postAs(engine, "u2").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	engine := newLimitedEngine(client, "unused", 1)

	assert.Equal(t, http.StatusCreated, postAs(engine, "u1").Code)
	assert.Equal(t, http.StatusCreated, postAs(engine, "u1").Code)
}
