// Package redis 提供出箱聚合状态的 Redis 读模型缓存。
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

const defaultStatusTTL = 24 * time.Hour

type statusCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStatusCache 创建出箱状态缓存，ttl <= 0 时使用默认值
func NewStatusCache(client redis.UniversalClient, ttl time.Duration) domain.OutboxStatusCache {
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &statusCache{
		client: client,
		prefix: "notification:outbox:status:",
		ttl:    ttl,
	}
}

func (c *statusCache) Set(ctx context.Context, name string, status domain.OutboxStatus) error {
	key := fmt.Sprintf("%s%s", c.prefix, name)
	return c.client.Set(ctx, key, string(status), c.ttl).Err()
}

func (c *statusCache) Get(ctx context.Context, name string) (domain.OutboxStatus, bool, error) {
	key := fmt.Sprintf("%s%s", c.prefix, name)
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.OutboxStatus(val), true, nil
}

func (c *statusCache) Delete(ctx context.Context, name string) error {
	key := fmt.Sprintf("%s%s", c.prefix, name)
	return c.client.Del(ctx, key).Err()
}
