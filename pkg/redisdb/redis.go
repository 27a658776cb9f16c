package redisdb

import (
	"context"
	"fmt"
	"time"

	"room-advisor/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewClient(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return client, nil
}
