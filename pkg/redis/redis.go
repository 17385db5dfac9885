package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// SetClient is called once by internal/initial after the connection is verified.
func SetClient(c *redis.Client) {
	client = c
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

func IsConnected() bool {
	return client != nil
}

func checkClient() error {
	if client == nil {
		return errors.New("redis not connected")
	}
	return nil
}

// Incr atomically increments key and returns the new value.
func Incr(ctx context.Context, key string) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.Incr(ctx, key).Result()
}

func IncrBy(ctx context.Context, key string, value int64) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.IncrBy(ctx, key, value).Result()
}

func Get(ctx context.Context, key string) (string, error) {
	if err := checkClient(); err != nil {
		return "", err
	}
	return client.Get(ctx, key).Result()
}

func Set(ctx context.Context, key string, value interface{}) error {
	if err := checkClient(); err != nil {
		return err
	}
	return client.Set(ctx, key, value, 0).Err()
}
