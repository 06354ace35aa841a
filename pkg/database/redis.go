package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"teachtrack_backend/internal/config"

	"github.com/go-redis/redis/v8"
)

// Redis只承载学情报告缓存，连不上时调用方降级为直查数据库，
// 所以探活要快速失败，不能拖慢进程启动。
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	log.Println("Redis connection established")
	return rdb, nil
}
