package explorer

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWatermarkStore is a WatermarkStore backed by Redis, for deployments
// where several instances scan the same networks. The compare-and-set runs
// as a Lua script so the read-compare-write is atomic on the server.
type RedisWatermarkStore struct {
	rdb *redis.Client
}

var watermarkCASScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == false then
  if ARGV[1] ~= '0' then
    return 0
  end
elseif current ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// NewRedisWatermarkStore wraps an existing Redis client.
func NewRedisWatermarkStore(rdb *redis.Client) *RedisWatermarkStore {
	return &RedisWatermarkStore{rdb: rdb}
}

func (s *RedisWatermarkStore) Get(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("watermark get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisWatermarkStore) CompareAndSet(ctx context.Context, key string, old, next int64, ttl time.Duration) (bool, error) {
	res, err := watermarkCASScript.Run(ctx, s.rdb, []string{key}, old, next, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("watermark cas %s: %w", key, err)
	}
	return res == 1, nil
}
