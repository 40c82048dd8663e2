// Package kvcache is the shared cache collaborator: opaque values with a
// TTL, plus counters used as namespace generations for invalidation.
package kvcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("kvcache: miss")

// Cache is implemented by JetStream and Memory.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; a zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Increment atomically bumps a counter and returns the new value.
	Increment(ctx context.Context, key string) (uint64, error)
}

func generationKey(ns string) string {
	return "gen:" + ns
}

// Generation returns the current generation of namespace ns; zero if the
// namespace was never invalidated.
func Generation(ctx context.Context, c Cache, ns string) (uint64, error) {
	raw, err := c.Get(ctx, generationKey(ns))
	if errors.Is(err, ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt generation for %s: %w", ns, err)
	}
	return n, nil
}

// NamespacedKey scopes key to the current generation of ns. Bumping the
// generation makes every earlier key unreachable.
func NamespacedKey(ctx context.Context, c Cache, ns, key string) (string, error) {
	gen, err := Generation(ctx, c, ns)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", ns, gen, key), nil
}

// Invalidate bumps the generation of every namespace. It stops at the first
// failure.
func Invalidate(ctx context.Context, c Cache, namespaces ...string) error {
	for _, ns := range namespaces {
		if _, err := c.Increment(ctx, generationKey(ns)); err != nil {
			return fmt.Errorf("invalidate %s: %w", ns, err)
		}
	}
	return nil
}
