package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/utils"

	"github.com/go-redis/redis/v8"
)

// Limiter is a fixed-window request counter per client IP kept in Redis.
type Limiter struct {
	Client *redis.Client
	Name   string
	Max    int
	Window time.Duration
	Logger *logger.Logger
}

func New(client *redis.Client, name string, max int, window time.Duration, log *logger.Logger) *Limiter {
	return &Limiter{Client: client, Name: name, Max: max, Window: window, Logger: log}
}

// Result is the state of one client's window after a hit.
type Result struct {
	Allowed   bool
	Count     int64
	Remaining int
	Reset     time.Duration
}

// Allow records one hit for key and reports whether it fits in the window.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.Name, key)

	count, err := l.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		return nil, err
	}
	if count == 1 {
		if err := l.Client.Expire(ctx, redisKey, l.Window).Err(); err != nil {
			return nil, err
		}
	}

	ttl, err := l.Client.TTL(ctx, redisKey).Result()
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		// key lost its expiry; start a fresh window rather than block forever
		if err := l.Client.Expire(ctx, redisKey, l.Window).Err(); err != nil {
			return nil, err
		}
		ttl = l.Window
	}

	remaining := l.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   count <= int64(l.Max),
		Count:     count,
		Remaining: remaining,
		Reset:     ttl,
	}, nil
}

// Middleware answers 429 once a client exceeds the window. Redis failures let
// the request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		res, err := l.Allow(r.Context(), ip)
		if err != nil {
			l.Logger.Warn("RATELIMIT", fmt.Sprintf("%s limiter unavailable: %v", l.Name, err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("RateLimit-Limit", strconv.Itoa(l.Max))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("RateLimit-Reset", strconv.Itoa(int(res.Reset.Round(time.Second)/time.Second)))

		if !res.Allowed {
			l.Logger.LogSecurity("RATE_LIMITED", fmt.Sprintf("%s %s from %s (%d hits)", r.Method, r.URL.Path, ip, res.Count))
			w.Header().Set("Retry-After", strconv.Itoa(int(res.Reset.Round(time.Second)/time.Second)))
			utils.WriteMessage(w, http.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
