package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	keyPrefix     = "idempotent-key:"
	pendingMarker = "pending"

	// a checkout that crashed mid-way frees its key after pendingTTL
	pendingTTL = 2 * time.Minute
	resultTTL  = 24 * time.Hour
)

// Client is the subset of the redis client the store needs.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type IdempotencyStore struct {
	client Client
}

func NewIdempotencyStore(client Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (uuid.UUID, bool, error) {
	reserved, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker, pendingTTL).Result()
	if err != nil {
		return uuid.Nil, false, errors.Wrap(err, "failed to reserve idempotency key")
	}
	if reserved {
		return uuid.Nil, true, nil
	}

	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		reserved, err = s.client.SetNX(ctx, keyPrefix+key, pendingMarker, pendingTTL).Result()
		if err != nil {
			return uuid.Nil, false, errors.Wrap(err, "failed to reserve idempotency key")
		}
		return uuid.Nil, reserved, nil
	}
	if err != nil {
		return uuid.Nil, false, errors.Wrap(err, "failed to read idempotency key")
	}
	if value == pendingMarker {
		return uuid.Nil, false, nil
	}
	orderID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, errors.Wrapf(err, "corrupt idempotency value %q", value)
	}
	return orderID, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, orderID uuid.UUID) error {
	return errors.Wrap(s.client.Set(ctx, keyPrefix+key, orderID.String(), resultTTL).Err(), "failed to store idempotency result")
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, keyPrefix+key).Err(), "failed to release idempotency key")
}
