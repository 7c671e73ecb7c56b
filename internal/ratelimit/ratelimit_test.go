package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dholratri-tickets/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareBlocksAfterLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	h := New(client, "login", 3, time.Minute, logger.Discard()).Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := hit(h, "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("RateLimit-Limit"))
	}
	assert.Equal(t, "2", hit(h, "10.0.0.2").Header().Get("RateLimit-Remaining"))

	rec := hit(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests, please try again later."}`, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "60", rec.Header().Get("RateLimit-Reset"))

	// other clients have their own window
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.3").Code)
}

func TestWindowResets(t *testing.T) {
	client, mr := setupTestRedis(t)
	h := New(client, "initiate", 1, time.Minute, logger.Discard()).Middleware(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1").Code)

	mr.FastForward(61 * time.Second)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}

func TestRoutesCountSeparately(t *testing.T) {
	client, _ := setupTestRedis(t)
	login := New(client, "login", 1, time.Minute, logger.Discard()).Middleware(okHandler())
	initiate := New(client, "initiate", 1, time.Minute, logger.Discard()).Middleware(okHandler())

	assert.Equal(t, http.StatusOK, hit(login, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(initiate, "10.0.0.1").Code)
}

func TestRedisDownFailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	h := New(client, "login", 1, time.Minute, logger.Discard()).Middleware(okHandler())
	mr.Close()

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}

func TestAllowCounts(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := New(client, "login", 2, time.Minute, logger.Discard())
	ctx := context.Background()

	res, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, time.Minute, res.Reset)

	_, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	res, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.EqualValues(t, 3, res.Count)
}
