package database

import (
	"context"
	"fmt"
	"time"

	"diof-search/internal/config"
	"diof-search/pkg/log"

	"github.com/go-redis/redis/v8"
)

// redisPingTimeout 限制启动时连通性检查的等待时间，Redis 不可达时尽早失败。
const redisPingTimeout = 3 * time.Second

// NewRedis 创建异步任务状态使用的 Redis 客户端，并在返回前确认服务可达。
// 调用方负责 Close。
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis %s 失败: %w", cfg.Addr, err)
	}

	log.Infof("[Redis] 已连接 %s (db=%d)", cfg.Addr, cfg.DB)
	return client, nil
}
