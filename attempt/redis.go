package attempt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "att"

// Records are sorted sets scored by UnixNano. Members are "<unixnano>:<uuid>"
// so two processes recording in the same nanosecond both count. Scores are
// doubles, so the server-side cutoff is exact only to a few hundred
// nanoseconds; the tracker re-prunes exactly on the returned members.

const appendScript = `
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[3])
local keep = tonumber(ARGV[4])
if keep > 0 then
  redis.call("ZREMRANGEBYRANK", KEYS[1], 0, -keep - 1)
end
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return redis.call("ZRANGE", KEYS[1], 0, -1)
`

const reserveScript = `
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local admitted = 0
if redis.call("ZCARD", KEYS[1]) < tonumber(ARGV[4]) then
  redis.call("ZADD", KEYS[1], ARGV[2], ARGV[3])
  redis.call("PEXPIRE", KEYS[1], ARGV[5])
  admitted = 1
end
local out = redis.call("ZRANGE", KEYS[1], 0, -1)
table.insert(out, 1, admitted)
return out
`

const pruneScript = `
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
return redis.call("ZRANGE", KEYS[1], 0, -1)
`

const removeScript = `
local members = redis.call("ZRANGEBYSCORE", KEYS[1], ARGV[1], ARGV[1])
for _, m in ipairs(members) do
  if string.sub(m, 1, string.len(ARGV[2])) == ARGV[2] then
    redis.call("ZREM", KEYS[1], m)
    return 1
  end
end
return 0
`

var (
	appendLua  = redis.NewScript(appendScript)
	reserveLua = redis.NewScript(reserveScript)
	pruneLua   = redis.NewScript(pruneScript)
	removeLua  = redis.NewScript(removeScript)
)

// RedisStore keeps attempt records in Redis so every process behind a load
// balancer sees the same counters. Every mutation runs as one script, so
// replicas never overwrite each other's stamps.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store that namespaces keys under prefix ("att" when empty).
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]time.Time, error) {
	members, err := s.redis.ZRange(ctx, s.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeMembers(members)
}

func (s *RedisStore) Put(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error {
	if len(stamps) == 0 || ttl <= 0 {
		return s.Delete(ctx, key)
	}
	k := s.key(key)
	zs := make([]redis.Z, 0, len(stamps))
	for _, ts := range stamps {
		zs = append(zs, redis.Z{Score: float64(ts.UnixNano()), Member: newMember(ts)})
	}
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.ZAdd(ctx, k, zs...)
		pipe.PExpire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, key string, stamp, cutoff time.Time, keep int, ttl time.Duration) ([]time.Time, error) {
	raw, err := appendLua.Run(ctx, s.redis, []string{s.key(key)},
		cutoff.UnixNano(), stamp.UnixNano(), newMember(stamp), keep, ttl.Milliseconds()).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeMembers(raw)
}

func (s *RedisStore) Reserve(ctx context.Context, key string, stamp, cutoff time.Time, limit int, ttl time.Duration) ([]time.Time, bool, error) {
	raw, err := reserveLua.Run(ctx, s.redis, []string{s.key(key)},
		cutoff.UnixNano(), stamp.UnixNano(), newMember(stamp), limit, ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, false, errors.New("attempt record: empty reserve reply")
	}
	admitted, _ := raw[0].(int64)
	members := make([]string, 0, len(raw)-1)
	for _, v := range raw[1:] {
		m, ok := v.(string)
		if !ok {
			return nil, false, fmt.Errorf("attempt record: unexpected member %T", v)
		}
		members = append(members, m)
	}
	stamps, err := decodeMembers(members)
	if err != nil {
		return nil, false, err
	}
	return stamps, admitted == 1, nil
}

func (s *RedisStore) Prune(ctx context.Context, key string, cutoff time.Time) ([]time.Time, error) {
	raw, err := pruneLua.Run(ctx, s.redis, []string{s.key(key)}, cutoff.UnixNano()).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeMembers(raw)
}

func (s *RedisStore) Remove(ctx context.Context, key string, stamp time.Time) error {
	nanos := strconv.FormatInt(stamp.UnixNano(), 10)
	if err := removeLua.Run(ctx, s.redis, []string{s.key(key)}, nanos, nanos+":").Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.redis.PTTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// -2 missing, -1 no expiry
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func newMember(ts time.Time) string {
	return strconv.FormatInt(ts.UnixNano(), 10) + ":" + uuid.NewString()
}

func decodeMembers(members []string) ([]time.Time, error) {
	if len(members) == 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, len(members))
	for _, m := range members {
		nanos, _, ok := strings.Cut(m, ":")
		if !ok {
			return nil, fmt.Errorf("attempt record: corrupt member %q", m)
		}
		n, err := strconv.ParseInt(nanos, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("attempt record: corrupt member %q", m)
		}
		out = append(out, time.Unix(0, n))
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out, nil
}
