package token

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisRevokedPrefix = "newsfeed:revoked:"

// RedisRevokedTokenCache shares revocations between backend instances.
// Entries expire with the token, so Cleanup has nothing to do.
type RedisRevokedTokenCache struct {
	client  redis.UniversalClient
	nowFunc func() time.Time
}

var _ RevokedTokenCache = (*RedisRevokedTokenCache)(nil)

func NewRedisRevokedTokenCache(client redis.UniversalClient) *RedisRevokedTokenCache {
	return &RedisRevokedTokenCache{client: client, nowFunc: time.Now}
}

// ConnectRedis parses a redis:// or rediss:// URL and verifies the connection.
func ConnectRedis(ctx context.Context, connectionURL string) (*redis.Client, error) {
	if connectionURL == "" {
		return nil, errors.New("[ConnectRedis] empty redis connection URL")
	}
	opts, err := redis.ParseURL(connectionURL)
	if err != nil {
		return nil, errors.Wrap(err, "[ConnectRedis] failed to parse redis connection string")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[ConnectRedis] ping failed")
	}
	return client, nil
}

func (c *RedisRevokedTokenCache) Add(ctx context.Context, jti string, exp time.Time) error {
	ttl := exp.Sub(c.nowFunc())
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, redisRevokedPrefix+jti, 1, ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisRevokedTokenCache.Add]")
	}
	return nil
}

func (c *RedisRevokedTokenCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, redisRevokedPrefix+jti).Result()
	if err != nil {
		return false, errors.Wrap(err, "[RedisRevokedTokenCache.IsRevoked]")
	}
	return n > 0, nil
}

func (c *RedisRevokedTokenCache) Cleanup(context.Context) {}
