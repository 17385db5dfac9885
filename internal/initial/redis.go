package initial

import (
	"context"
	"fmt"
	"time"

	"ListingHub/internal/config"
	"ListingHub/pkg/redis"
	"ListingHub/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis connects the shared counter store. Redis is optional: without it
// the stats trigger and progress counters degrade to no-ops, ingestion keeps
// working.
func InitRedis() {
	conf := config.GetConfig()
	host := conf.RedisConfig.Host
	if host == "" {
		zlog.Info("redis not configured, counters disabled")
		return
	}
	port := conf.RedisConfig.Port
	if port == 0 {
		port = 6379
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     conf.RedisConfig.Password,
		DB:           conf.RedisConfig.DB,
		PoolSize:     conf.RedisConfig.PoolSize,
		MinIdleConns: conf.RedisConfig.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Error("redis connect failed, counters disabled", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return
	}

	redis.SetClient(client)
	zlog.Info("redis connected", zap.String("addr", addr))
}

func CloseRedis() {
	_ = redis.Close()
}
