package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokeStatusNotFound int64 = 0
	revokeStatusAlready  int64 = 1
	revokeStatusRevoked  int64 = 2
	revokeStatusExpired  int64 = 3
)

const revokeScript = `
local fields = redis.call("HMGET", KEYS[1], "rev", "exp")
local rev = fields[1]
if not rev then
  return 0
end
if rev == "1" then
  return 1
end
if tonumber(fields[2]) <= tonumber(ARGV[1]) then
  return 3
end
redis.call("HSET", KEYS[1], "rev", "1", "revoked_at", ARGV[1])
return 2
`

const saveScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "acct", ARGV[1], "exp", ARGV[2], "rev", "0", "created", ARGV[3])
redis.call("PEXPIREAT", KEYS[1], ARGV[2])
return 1
`

var (
	revokeLua = redis.NewScript(revokeScript)
	saveLua   = redis.NewScript(saveScript)
)

// RedisStore keeps each record in a hash that expires with the token, plus a
// per-account set of token hashes used by RevokeAll.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisStore creates a store under the given key prefix ("rt" when empty).
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

func (s *RedisStore) tokenKey(hash string) string {
	return s.prefix + ":t:" + hash
}

func (s *RedisStore) accountKey(accountID string) string {
	return s.prefix + ":a:" + accountID
}

// Save creates the record and indexes it under its account. The record is
// created by a script that refuses an existing key, so a revoked token is
// never reset.
//
//	Performance: 2 round-trips (save script, then SADD + PEXPIREAT pipelined).
func (s *RedisStore) Save(ctx context.Context, token, accountID string, expiresAt time.Time) error {
	hash := HashToken(token)
	created, err := saveLua.Run(ctx, s.redis, []string{s.tokenKey(hash)},
		accountID, expiresAt.UnixMilli(), s.now().UnixMilli()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if created == 0 {
		return ErrExists
	}

	accountKey := s.accountKey(accountID)
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, accountKey, hash)
		pipe.PExpireAt(ctx, accountKey, expiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, token string) (*Record, error) {
	hash := HashToken(token)
	fields, err := s.redis.HGetAll(ctx, s.tokenKey(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeRecord(hash, fields)
}

func (s *RedisStore) FindOwner(ctx context.Context, token string) (string, bool, error) {
	rec, err := s.Lookup(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !rec.Usable(s.now()) {
		return "", false, nil
	}
	return rec.AccountID, true, nil
}

func (s *RedisStore) IsValid(ctx context.Context, token string) (bool, error) {
	_, ok, err := s.FindOwner(ctx, token)
	return ok, err
}

// Revoke flips the revoked flag inside a Lua script, so concurrent callers
// with the same token race on a single atomic check-and-set.
func (s *RedisStore) Revoke(ctx context.Context, token string) (bool, error) {
	status, err := s.revokeHash(ctx, HashToken(token))
	if err != nil {
		return false, err
	}
	return status == revokeStatusRevoked, nil
}

func (s *RedisStore) revokeHash(ctx context.Context, hash string) (int64, error) {
	status, err := revokeLua.Run(ctx, s.redis, []string{s.tokenKey(hash)}, s.now().UnixMilli()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return status, nil
}

// RevokeAll revokes every indexed token of accountID.
//
// ATOMICITY NOTE: the account set is read once; a token saved after the read
// is not revoked by this call.
func (s *RedisStore) RevokeAll(ctx context.Context, accountID string) (int, error) {
	accountKey := s.accountKey(accountID)
	hashes, err := s.redis.SMembers(ctx, accountKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	revoked := 0
	var stale []interface{}
	for _, hash := range hashes {
		status, err := s.revokeHash(ctx, hash)
		if err != nil {
			return revoked, err
		}
		switch status {
		case revokeStatusRevoked:
			revoked++
		case revokeStatusNotFound:
			stale = append(stale, hash)
		}
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, accountKey, stale...).Err(); err != nil {
			return revoked, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return revoked, nil
}

// Sweep drops revoked records older than the retention and prunes account
// indexes of hashes whose records already expired. Expired records themselves
// are removed by Redis key expiry.
func (s *RedisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.retention).UnixMilli()
	removed := 0

	iter := s.redis.Scan(ctx, 0, s.prefix+":a:*", 256).Iterator()
	for iter.Next(ctx) {
		accountKey := iter.Val()
		hashes, err := s.redis.SMembers(ctx, accountKey).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		var drop []interface{}
		for _, hash := range hashes {
			vals, err := s.redis.HMGet(ctx, s.tokenKey(hash), "rev", "revoked_at").Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			if vals[0] == nil {
				drop = append(drop, hash)
				continue
			}
			if rev, _ := vals[0].(string); rev != "1" {
				continue
			}
			revokedAt, _ := vals[1].(string)
			ms, err := strconv.ParseInt(revokedAt, 10, 64)
			if err != nil || ms > cutoff {
				continue
			}
			if err := s.redis.Del(ctx, s.tokenKey(hash)).Err(); err != nil {
				return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			drop = append(drop, hash)
			removed++
		}
		if len(drop) > 0 {
			if err := s.redis.SRem(ctx, accountKey, drop...).Err(); err != nil {
				return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return removed, nil
}

func decodeRecord(hash string, fields map[string]string) (*Record, error) {
	exp, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("refresh record %s: bad exp: %w", hash, err)
	}
	rec := &Record{
		TokenHash: hash,
		AccountID: fields["acct"],
		ExpiresAt: time.UnixMilli(exp),
		Revoked:   fields["rev"] == "1",
	}
	if v, err := strconv.ParseInt(fields["created"], 10, 64); err == nil {
		rec.CreatedAt = time.UnixMilli(v)
	}
	if v, err := strconv.ParseInt(fields["revoked_at"], 10, 64); err == nil {
		rec.RevokedAt = time.UnixMilli(v)
	}
	return rec, nil
}
