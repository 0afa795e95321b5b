package identity

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations records signed-out token ids until the token would have expired.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RedisRevocations struct {
	client *redis.Client
	prefix string
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client, prefix: "lms:revoked:"}
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenID, 1, ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NoRevocations is used when no Redis is configured; sign-out then only ends the
// client's session and tokens stay valid until expiry.
type NoRevocations struct{}

func (NoRevocations) Revoke(context.Context, string, time.Time) error  { return nil }
func (NoRevocations) IsRevoked(context.Context, string) (bool, error) { return false, nil }
