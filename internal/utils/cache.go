package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error matching
	"strconv"       // Generation formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client behaves like an empty cache.
func GetCache(ctx context.Context, rdb redis.UniversalClient, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb redis.UniversalClient, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb redis.UniversalClient, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil // Nothing to delete
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// Generation returns the current generation stored at key, 0 when unset.
// Cache keys embed the generation so bumping it retires every older entry at once.
func Generation(ctx context.Context, rdb redis.UniversalClient, key string) (int64, error) {
	if rdb == nil {
		return 0, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Read the counter
	if errors.Is(err, redis.Nil) {
		return 0, nil // Never bumped
	} else if err != nil {
		return 0, err // Other Redis error
	}
	return strconv.ParseInt(val, 10, 64) // Counter is stored as a decimal string
}

// BumpGeneration increments the generation at key
func BumpGeneration(ctx context.Context, rdb redis.UniversalClient, key string) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	return rdb.Incr(ctx, key).Err() // Atomic increment
}
