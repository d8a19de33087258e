package testcontainer

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"invoice-parser-api/internal/config"
)

// RedisContainer Redisコンテナのラッパー
type RedisContainer struct {
	Container *rediscontainer.RedisContainer
	Host      string
	Port      string
}

// StartRedis Redisコンテナを起動
func StartRedis(ctx context.Context, t *testing.T) (*RedisContainer, error) {
	t.Helper()

	container, err := rediscontainer.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis host: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis port: %w", err)
	}

	return &RedisContainer{
		Container: container,
		Host:      host,
		Port:      port.Port(),
	}, nil
}

// Close Redisコンテナを停止
func (r *RedisContainer) Close(ctx context.Context) error {
	if r.Container != nil {
		return r.Container.Terminate(ctx)
	}
	return nil
}

// ConnectionString Redis接続文字列を取得
func (r *RedisContainer) ConnectionString() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// RedisConfig コンテナに接続するための設定を返す
func (r *RedisContainer) RedisConfig() (*config.RedisConfig, error) {
	port, err := strconv.Atoi(r.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid redis port %q: %w", r.Port, err)
	}
	return &config.RedisConfig{Host: r.Host, Port: port}, nil
}

// NewRedisClient Redisクライアントを作成
func (r *RedisContainer) NewRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: r.ConnectionString(),
	})
}
