package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"invoice-parser-api/internal/config"
)

// ErrCacheMiss キーが存在しない
var ErrCacheMiss = errors.New("cache miss")

// keyPrefix 解析結果キーの名前空間
const keyPrefix = "invoice:result:"

// RedisRepository 解析結果キャッシュのRedis実装
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository 新しいRedisRepositoryを作成し、接続を確認する
func NewRedisRepository(cfg *config.RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

// NewRedisRepositoryWithClient 既存のクライアントからRedisRepositoryを作成
func NewRedisRepositoryWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// Set 解析結果を保存
func (r *RedisRepository) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Get 解析結果を取得。存在しない場合はErrCacheMissを返す
func (r *RedisRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}
	return val, nil
}

// Ping 接続確認
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close Redis接続を閉じる
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
