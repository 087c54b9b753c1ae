package rawdb

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tachi-labs/paygate/schema"
)

const (
	RedisType = "redis"

	redisOpTimeout = 2 * time.Second
	redisKeyPrefix = "paygate:"
)

type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(ctx context.Context, addr, password string, db int) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	log.Info("Connected to redis", "addr", addr)
	return &RedisDB{Client: client}, nil
}

func redisKey(bucket, key string) string {
	return redisKeyPrefix + bucket + ":" + key
}

func (s *RedisDB) Type() string {
	return RedisType
}

func (s *RedisDB) Put(bucket, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.Client.Set(ctx, redisKey(bucket, key), value, positive(ttl)).Err()
}

func (s *RedisDB) PutNX(bucket, key string, value []byte, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.Client.SetNX(ctx, redisKey(bucket, key), value, positive(ttl)).Result()
}

func (s *RedisDB) Get(bucket, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	data, err := s.Client.Get(ctx, redisKey(bucket, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, schema.ErrNotExist
	}
	return data, err
}

func (s *RedisDB) Delete(bucket, key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.Client.Del(ctx, redisKey(bucket, key)).Err()
}

func (s *RedisDB) Exist(bucket, key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	n, err := s.Client.Exists(ctx, redisKey(bucket, key)).Result()
	return err == nil && n > 0
}

func (s *RedisDB) Close() error {
	return s.Client.Close()
}

// redis treats 0 as "no expiry"; negative values mean KEEPTTL which we never want.
func positive(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}
