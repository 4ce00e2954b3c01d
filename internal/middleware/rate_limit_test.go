package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(client *redis.Client, limit int, actor *domain.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if actor != nil {
		r.Use(func(c *gin.Context) {
			c.Set(actorKey, *actor)
			c.Next()
		})
	}
	r.Use(RateLimit(client, RateLimitConfig{RequestsPerMinute: limit, KeyPrefix: "test:"}))
	r.POST("/strs", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func post(r http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/strs", nil))
	return w
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := newLimitedRouter(client, 2, nil)

	first := post(r)
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, post(r).Code)

	blocked := post(r)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_KeyedByActor(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	alice := domain.Actor{Username: "alice", Level: domain.LevelReporter}
	bob := domain.Actor{Username: "bob", Level: domain.LevelReporter}

	assert.Equal(t, http.StatusNoContent, post(newLimitedRouter(client, 1, &alice)).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(newLimitedRouter(client, 1, &alice)).Code)
	assert.Equal(t, http.StatusNoContent, post(newLimitedRouter(client, 1, &bob)).Code)
	assert.True(t, mr.Exists("test:user:alice"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := newLimitedRouter(nil, 1, nil)
	assert.Equal(t, http.StatusNoContent, post(r).Code)
	assert.Equal(t, http.StatusNoContent, post(r).Code)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	r = newLimitedRouter(client, 1, nil)
	assert.Equal(t, http.StatusNoContent, post(r).Code)
	assert.Equal(t, http.StatusNoContent, post(r).Code)
}
