// Package ratelimit throttles callers with counters shared through Redis so
// every API instance enforces the same quota.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 2 * time.Second

// hit bumps the counter for the current window and reports the count along
// with the milliseconds left before the window closes.
var hit = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// Quota is the outcome of one attempt against a window.
type Quota struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until the window resets.
	RetryAfter time.Duration
}

// Window counts attempts per scope and subject in fixed windows, e.g.
// scope "login" and subject a client IP.
type Window struct {
	client *redis.Client
	prefix string
	limit  int
	size   time.Duration
	now    func() time.Time
}

func NewWindow(client *redis.Client, prefix string, limit int, size time.Duration) (*Window, error) {
	switch {
	case client == nil:
		return nil, errors.New("ratelimit: redis client is required")
	case limit <= 0:
		return nil, errors.New("ratelimit: limit must be positive")
	case size < time.Millisecond:
		return nil, errors.New("ratelimit: window must be at least 1ms")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "chat:ratelimit"
	}
	return &Window{client: client, prefix: prefix, limit: limit, size: size, now: time.Now}, nil
}

// Take records one attempt for subject within scope. A Redis failure is
// returned together with a denied Quota.
func (w *Window) Take(ctx context.Context, scope, subject string) (Quota, error) {
	denied := Quota{Limit: w.limit, RetryAfter: w.size}

	key := w.key(scope, subject)
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := hit.Run(ctx, w.client, []string{key}, w.size.Milliseconds()).Int64Slice()
	if err != nil {
		return denied, fmt.Errorf("ratelimit %s: %w", scope, err)
	}
	if len(res) != 2 {
		return denied, fmt.Errorf("ratelimit %s: unexpected reply %v", scope, res)
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if ttl <= 0 {
		ttl = w.size
	}
	remaining := w.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Quota{
		Allowed:    count <= int64(w.limit),
		Limit:      w.limit,
		Remaining:  remaining,
		RetryAfter: ttl,
	}, nil
}

// key is <prefix>:<scope>:<subject>:<slot>.
func (w *Window) key(scope, subject string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "default"
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "unknown"
	}
	slot := w.now().UnixMilli() / w.size.Milliseconds()
	return fmt.Sprintf("%s:%s:%s:%d", w.prefix, scope, subject, slot)
}
