package cache

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/go-redis/redis/v8"

	"github.com/Rajchodisetti/quote-engine/internal/config"
)

// RedisAPI is the part of *redis.Client the store uses.
//
//go:generate mockgen -package=cache -destination=mock_redis_test.go -source=redis.go RedisAPI
type RedisAPI interface {
	ZAdd(ctx context.Context, key string, members ...*redis.Z) *redis.IntCmd
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Close() error
}

// Redis keeps one sorted set per symbol, scored by write time in
// microseconds. Members are JSON entries; WrittenAt keeps them unique.
type Redis struct {
	client RedisAPI
	prefix string
}

func NewRedis(client RedisAPI, keyPrefix string) *Redis {
	return &Redis{client: client, prefix: keyPrefix}
}

// DialRedis connects using the cache.redis config section.
func DialRedis(cfg config.Redis) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedis(rdb, cfg.KeyPrefix)
}

func (r *Redis) key(symbol string) string {
	return r.prefix + symbol
}

func (r *Redis) Append(ctx context.Context, e Entry) error {
	member, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return r.client.ZAdd(ctx, r.key(e.Symbol), &redis.Z{
		Score:  float64(e.WrittenAt.UnixMicro()),
		Member: string(member),
	}).Err()
}

func (r *Redis) QueryLatest(ctx context.Context, symbol string) (Entry, bool, error) {
	members, err := r.client.ZRevRange(ctx, r.key(symbol), 0, 0).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if len(members) == 0 {
		return Entry{}, false, nil
	}
	var e Entry
	if err := json.Unmarshal([]byte(members[0]), &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode entry for %s: %w", symbol, err)
	}
	return e, true, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
