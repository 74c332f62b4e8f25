package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter gates outbound sends.
//
// Allow enforces two independent caps in one atomic decision:
// - per-campaign: at most `limit` sends per window;
// - per-contact: no send within `spacing` of the previous one (callers pass
//   the campaign's smallest step delay, which stops bursts when a backlog of
//   steps becomes due at once).
//
// A rejected call consumes no budget; the caller defers the send to the next
// pass instead of retrying.
type Limiter interface {
	Allow(ctx context.Context, campaignID, contact string, spacing time.Duration) (bool, error)
}

var allowScript = redis.NewScript(`
-- KEYS[1] = per-campaign window counter
-- KEYS[2] = per-contact spacing key
-- ARGV[1] = campaign limit (int)
-- ARGV[2] = window ttl_ms (int)
-- ARGV[3] = contact spacing_ms (int, 0 disables)
--
-- Returns 1 if the send may proceed, 0 otherwise.
if tonumber(ARGV[3]) > 0 and redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end

local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
else
  if redis.call('PTTL', KEYS[1]) < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
  end
end

if n > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end

if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[2], 1, 'PX', ARGV[3])
end
return 1
`)

// RedisLimiter shares one limiter across all workers/instances. State lives in
// Redis; the Lua script makes the check-and-increment atomic so two concurrent
// evaluations cannot both believe they are under the limit.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, sendsPerWindow int, window time.Duration) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, fmt.Errorf("ratelimit: redis client is nil")
	}
	if sendsPerWindow <= 0 {
		return nil, fmt.Errorf("ratelimit: limit must be > 0, got %d", sendsPerWindow)
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{rdb: rdb, limit: sendsPerWindow, window: window, prefix: "followup:rl"}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, campaignID, contact string, spacing time.Duration) (bool, error) {
	if campaignID == "" || contact == "" {
		return false, fmt.Errorf("ratelimit: campaign and contact are required")
	}

	campaignKey := fmt.Sprintf("%s:cmp:%s", l.prefix, campaignID)
	contactKey := fmt.Sprintf("%s:ct:%s:%s", l.prefix, campaignID, contact)

	res, err := allowScript.Run(ctx, l.rdb,
		[]string{campaignKey, contactKey},
		l.limit, l.window.Milliseconds(), spacing.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
