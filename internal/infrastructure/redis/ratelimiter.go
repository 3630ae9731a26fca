package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// incrWindow bumps the counter and starts the window on the first hit.
// Returns {count, pttl}.
var incrWindow = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Count      int
	RetryAfter time.Duration
	ResetAt    time.Time
}

func open(limit int) Decision {
	return Decision{Allowed: true, Limit: limit, Remaining: limit}
}

// FixedWindowLimiter counts hits per key in Redis. Keys are namespaced with
// the service prefix; callers pass route and client identity.
type FixedWindowLimiter struct {
	rdb *goredis.Client
	now func() time.Time
}

// NewFixedWindowLimiter accepts a nil client, in which case every check passes.
func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	l := &FixedWindowLimiter{now: time.Now}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || l.rdb == nil {
		return open(limit), nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}

	vals, err := incrWindow.Run(ctx, l.rdb, []string{keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %q: %w", key, err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("rate limit %q: got %d values from script", key, len(vals))
	}

	count := int(vals[0])
	ttl := time.Duration(vals[1]) * time.Millisecond
	if ttl <= 0 {
		ttl = window
	}

	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
		Count:     count,
		ResetAt:   l.now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
