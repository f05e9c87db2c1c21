package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const (
	statusAccountNotFound int64 = -1
	statusRoleMismatch    int64 = 0
	statusApplied         int64 = 1
	statusEntryConflict   int64 = 2
)

const initOwnerScript = `
local current = redis.call("GET", KEYS[1])
if current then
  return current
end
redis.call("SET", KEYS[1], ARGV[1])
return ARGV[1]
`

var initOwnerLua = redis.NewScript(initOwnerScript)

// ownerCheck prefixes every owner-guarded script. KEYS[1] is the owner key
// and ARGV[1] the acting owner.
const ownerCheck = `
local owner = redis.call("GET", KEYS[1])
if not owner then
  return -1
end
if owner ~= ARGV[1] then
  return 0
end
`

var putSessionKeyLua = redis.NewScript(ownerCheck + `
redis.call("HSET", KEYS[2], ARGV[2], ARGV[3])
return 1
`)

var deleteSessionKeyLua = redis.NewScript(ownerCheck + `
if redis.call("HDEL", KEYS[2], ARGV[2]) == 0 then
  return 2
end
return 1
`)

var addGuardianLua = redis.NewScript(ownerCheck + `
if redis.call("SADD", KEYS[2], ARGV[2]) == 0 then
  return 2
end
redis.call("INCR", KEYS[3])
return 1
`)

var removeGuardianLua = redis.NewScript(ownerCheck + `
if redis.call("SREM", KEYS[2], ARGV[2]) == 0 then
  return 2
end
local count = tonumber(redis.call("GET", KEYS[3]) or "0")
if count > 1 then
  redis.call("DECR", KEYS[3])
else
  redis.call("DEL", KEYS[3])
end
return 1
`)

const transferOwnerScript = `
local owner = redis.call("GET", KEYS[1])
if not owner then
  return {-1}
end
if redis.call("SISMEMBER", KEYS[2], ARGV[1]) == 0 then
  return {0}
end
redis.call("SET", KEYS[1], ARGV[2])
return {1, owner}
`

var transferOwnerLua = redis.NewScript(transferOwnerScript)

// RedisStore keeps registries in Redis. Key layout per account:
//
//	<prefix>:<account>:owner      string
//	<prefix>:<account>:sk         hash   key -> expiry
//	<prefix>:<account>:guardians  set
//	<prefix>:<account>:gcount     string (absent = 0)
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore using prefix as key namespace.
// An empty prefix defaults to "aa".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "aa"
	}
	return &RedisStore{redis: rdb, prefix: prefix}
}

func (s *RedisStore) ownerKey(account common.Address) string {
	return s.prefix + ":" + account.Hex() + ":owner"
}

func (s *RedisStore) sessionKeysKey(account common.Address) string {
	return s.prefix + ":" + account.Hex() + ":sk"
}

func (s *RedisStore) guardiansKey(account common.Address) string {
	return s.prefix + ":" + account.Hex() + ":guardians"
}

func (s *RedisStore) guardianCountKey(account common.Address) string {
	return s.prefix + ":" + account.Hex() + ":gcount"
}

func (s *RedisStore) InitOwner(ctx context.Context, account, owner common.Address) (common.Address, error) {
	res, err := initOwnerLua.Run(ctx, s.redis, []string{s.ownerKey(account)}, owner.Hex()).Text()
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return parseAddress(res)
}

func (s *RedisStore) Owner(ctx context.Context, account common.Address) (common.Address, error) {
	res, err := s.redis.Get(ctx, s.ownerKey(account)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return common.Address{}, ErrAccountNotFound
		}
		return common.Address{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return parseAddress(res)
}

func (s *RedisStore) TransferOwner(ctx context.Context, account, guardian, newOwner common.Address) (common.Address, error) {
	keys := []string{s.ownerKey(account), s.guardiansKey(account)}
	res, err := transferOwnerLua.Run(ctx, s.redis, keys, guardian.Hex(), newOwner.Hex()).Slice()
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(res) == 0 {
		return common.Address{}, fmt.Errorf("%w: empty transfer reply", ErrStoreUnavailable)
	}

	status, ok := res[0].(int64)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unexpected transfer status %T", ErrStoreUnavailable, res[0])
	}
	switch status {
	case statusAccountNotFound:
		return common.Address{}, ErrAccountNotFound
	case statusRoleMismatch:
		return common.Address{}, ErrNotGuardian
	}
	if len(res) < 2 {
		return common.Address{}, fmt.Errorf("%w: missing previous owner", ErrStoreUnavailable)
	}
	prev, ok := res[1].(string)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unexpected previous owner %T", ErrStoreUnavailable, res[1])
	}
	return parseAddress(prev)
}

func (s *RedisStore) SessionKeyExpiry(ctx context.Context, account, key common.Address) (int64, error) {
	v, err := s.redis.HGet(ctx, s.sessionKeysKey(account), key.Hex()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return v, nil
}

func (s *RedisStore) SessionKeys(ctx context.Context, account common.Address) ([]SessionKey, error) {
	entries, err := s.redis.HGetAll(ctx, s.sessionKeysKey(account)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]SessionKey, 0, len(entries))
	for k, v := range entries {
		key, err := parseAddress(k)
		if err != nil {
			return nil, err
		}
		expiry, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: session key %s: %v", ErrStoreUnavailable, k, err)
		}
		out = append(out, SessionKey{Key: key, Expiry: expiry})
	}
	sortSessionKeys(out)
	return out, nil
}

func (s *RedisStore) PutSessionKey(ctx context.Context, account, actingOwner, key common.Address, expiry int64) error {
	keys := []string{s.ownerKey(account), s.sessionKeysKey(account)}
	return s.runGuarded(ctx, putSessionKeyLua, keys, actingOwner.Hex(), key.Hex(), expiry)
}

func (s *RedisStore) DeleteSessionKey(ctx context.Context, account, actingOwner, key common.Address) error {
	keys := []string{s.ownerKey(account), s.sessionKeysKey(account)}
	err := s.runGuarded(ctx, deleteSessionKeyLua, keys, actingOwner.Hex(), key.Hex())
	if errors.Is(err, errConflict) {
		return ErrEntryNotFound
	}
	return err
}

func (s *RedisStore) IsGuardian(ctx context.Context, account, guardian common.Address) (bool, error) {
	ok, err := s.redis.SIsMember(ctx, s.guardiansKey(account), guardian.Hex()).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// GuardianCount returns the tracked counter, which the scripts keep equal to
// the set cardinality.
func (s *RedisStore) GuardianCount(ctx context.Context, account common.Address) (int, error) {
	count, err := s.redis.Get(ctx, s.guardianCountKey(account)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (s *RedisStore) Guardians(ctx context.Context, account common.Address) ([]common.Address, error) {
	members, err := s.redis.SMembers(ctx, s.guardiansKey(account)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []common.Address{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]common.Address, 0, len(members))
	for _, m := range members {
		addr, err := parseAddress(m)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	sortAddresses(out)
	return out, nil
}

func (s *RedisStore) AddGuardian(ctx context.Context, account, actingOwner, guardian common.Address) error {
	keys := []string{s.ownerKey(account), s.guardiansKey(account), s.guardianCountKey(account)}
	err := s.runGuarded(ctx, addGuardianLua, keys, actingOwner.Hex(), guardian.Hex())
	if errors.Is(err, errConflict) {
		return ErrEntryExists
	}
	return err
}

func (s *RedisStore) RemoveGuardian(ctx context.Context, account, actingOwner, guardian common.Address) error {
	keys := []string{s.ownerKey(account), s.guardiansKey(account), s.guardianCountKey(account)}
	err := s.runGuarded(ctx, removeGuardianLua, keys, actingOwner.Hex(), guardian.Hex())
	if errors.Is(err, errConflict) {
		return ErrEntryNotFound
	}
	return err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

var errConflict = errors.New("entry conflict")

func (s *RedisStore) runGuarded(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) error {
	status, err := script.Run(ctx, s.redis, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch status {
	case statusApplied:
		return nil
	case statusAccountNotFound:
		return ErrAccountNotFound
	case statusRoleMismatch:
		return ErrOwnerMismatch
	case statusEntryConflict:
		return errConflict
	default:
		return fmt.Errorf("%w: unexpected script status %d", ErrStoreUnavailable, status)
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", ErrStoreUnavailable, s)
	}
	return common.HexToAddress(s), nil
}
