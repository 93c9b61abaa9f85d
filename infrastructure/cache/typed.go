package cache

import (
	"context"
	"encoding/json"
	"time"

	"filing-backend/application/ports"
	apperrors "filing-backend/pkg/errors"
)

// SetJSON encodes v as JSON and stores it under key.
func SetJSON[T any](ctx context.Context, c ports.Cache, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewCacheError("encode", err)
	}
	return c.Set(ctx, key, data, ttl)
}

// GetJSON loads key and decodes it into a fresh T. A value that no longer
// decodes is reported as an error, not as a hit.
func GetJSON[T any](ctx context.Context, c ports.Cache, key string) (out T, found bool, err error) {
	data, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return out, false, err
	}
	if err = json.Unmarshal(data, &out); err != nil {
		return out, false, apperrors.NewCacheError("decode", err)
	}
	return out, true, nil
}
