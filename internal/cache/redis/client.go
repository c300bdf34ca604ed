package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/metrics"
	"github.com/inquiry-triage/backend/internal/retrieval"
	"github.com/inquiry-triage/backend/pkg/logger"
)

// Client caches self-help recommendations keyed by the hash of the inquiry
// text. Every method is nil-receiver safe so the pipeline runs unchanged
// when Redis is not configured.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) SetSelfHelp(ctx context.Context, textHash string, result *retrieval.SelfHelpResult) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal self-help result: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("selfhelp:%s", textHash), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set self-help cache: %w", err)
	}

	logger.Debug("Self-help result cached", zap.String("text_hash", textHash), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *Client) GetSelfHelp(ctx context.Context, textHash string) (*retrieval.SelfHelpResult, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, fmt.Sprintf("selfhelp:%s", textHash)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("selfhelp").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get self-help cache: %w", err)
	}

	var result retrieval.SelfHelpResult
	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal self-help result: %w", err)
	}

	metrics.CacheHits.WithLabelValues("selfhelp").Inc()
	logger.Debug("Self-help cache hit", zap.String("text_hash", textHash))
	return &result, true, nil
}

// InvalidateSelfHelp clears every cached recommendation. Knowledge edits
// call this so stale guidance never outlives its source.
func (c *Client) InvalidateSelfHelp(ctx context.Context) error {
	if c == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, "selfhelp:*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Self-help cache invalidated")
	return nil
}
