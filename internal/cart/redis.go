package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cartTTL = 24 * time.Hour

// RedisStore shares carts between instances, keyed cart:<userID>.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(addr, password string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return &RedisStore{Client: rdb}, nil
}

func cartKey(userID uint) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (s *RedisStore) Get(ctx context.Context, userID uint) (map[uint]uint, error) {
	data, err := s.Client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[uint]uint{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items map[uint]uint
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *RedisStore) Set(ctx context.Context, userID uint, items map[uint]uint) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, cartKey(userID), data, cartTTL).Err()
}

func (s *RedisStore) Clear(ctx context.Context, userID uint) error {
	return s.Client.Del(ctx, cartKey(userID)).Err()
}
