package kvcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
)

const maxIncrementAttempts = 16

// JetStream stores entries in a NATS JetStream KeyValue bucket. Each value
// is prefixed with an 8-byte expiry (unix nanos, 0 = never) since bucket
// TTLs are per bucket, not per key. The bucket TTL bounds how long any key,
// generation counters included, survives without a write.
type JetStream struct {
	kv  jetstream.KeyValue
	now func() time.Time
	log *slog.Logger
}

var _ Cache = (*JetStream)(nil)

// NewJetStream opens bucket, creating it on first use and applying maxAge
// to an existing bucket. A zero maxAge keeps keys until overwritten.
func NewJetStream(ctx context.Context, js jetstream.JetStream, bucket string, maxAge time.Duration, log *slog.Logger) (*JetStream, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, bucketConfig(bucket, maxAge))
	if err != nil {
		return nil, fmt.Errorf("open cache bucket %s: %w", bucket, err)
	}
	return newJetStream(kv, log), nil
}

func newJetStream(kv jetstream.KeyValue, log *slog.Logger) *JetStream {
	return &JetStream{
		kv:  kv,
		now: time.Now,
		log: log.With(logger.Scope("kvcache")),
	}
}

func bucketConfig(name string, maxAge time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "OSF derived-view cache and namespace generations",
		History:     1,
		TTL:         maxAge,
	}
}

// kvKey maps an arbitrary cache key onto the KV key alphabet. The leading
// segment stays readable for debugging.
func kvKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	prefix := key
	if i := strings.IndexByte(prefix, ':'); i >= 0 {
		prefix = prefix[:i]
	}
	prefix = sanitize(prefix)
	if prefix == "" {
		prefix = "k"
	}
	return prefix + "." + hex.EncodeToString(sum[:16])
}

func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func encode(value []byte, expires time.Time) []byte {
	out := make([]byte, 8+len(value))
	if !expires.IsZero() {
		binary.BigEndian.PutUint64(out[:8], uint64(expires.UnixNano()))
	}
	copy(out[8:], value)
	return out
}

func decode(raw []byte) (value []byte, expires time.Time, ok bool) {
	if len(raw) < 8 {
		return nil, time.Time{}, false
	}
	if n := binary.BigEndian.Uint64(raw[:8]); n != 0 {
		expires = time.Unix(0, int64(n))
	}
	return raw[8:], expires, true
}

func (j *JetStream) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := j.kv.Get(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	value, expires, ok := decode(entry.Value())
	if !ok || (!expires.IsZero() && !j.now().Before(expires)) {
		// only purge the revision we read; a concurrent Set wins
		err := j.kv.Purge(ctx, entry.Key(), jetstream.LastRevision(entry.Revision()))
		if err != nil && !errors.Is(err, jetstream.ErrKeyExists) {
			j.log.Warn("purge expired entry", slog.String("key", key), logger.Error(err))
		}
		return nil, ErrMiss
	}
	return value, nil
}

func (j *JetStream) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = j.now().Add(ttl)
	}
	if _, err := j.kv.Put(ctx, kvKey(key), encode(value, expires)); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Increment is a compare-and-swap loop. A new counter is seeded from the
// clock so a counter recreated after loss never revisits old generations.
func (j *JetStream) Increment(ctx context.Context, key string) (uint64, error) {
	k := kvKey(key)
	for attempt := 0; attempt < maxIncrementAttempts; attempt++ {
		entry, err := j.kv.Get(ctx, k)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			n := uint64(j.now().UnixNano())
			if _, err := j.kv.Create(ctx, k, encode([]byte(strconv.FormatUint(n, 10)), time.Time{})); err != nil {
				if errors.Is(err, jetstream.ErrKeyExists) {
					continue
				}
				return 0, fmt.Errorf("cache increment: %w", err)
			}
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("cache increment: %w", err)
		}

		raw, _, _ := decode(entry.Value())
		n, _ := strconv.ParseUint(string(raw), 10, 64)
		n++
		_, err = j.kv.Update(ctx, k, encode([]byte(strconv.FormatUint(n, 10)), time.Time{}), entry.Revision())
		if errors.Is(err, jetstream.ErrKeyExists) {
			j.log.Debug("increment raced, retrying", slog.String("key", key), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("cache increment: %w", err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cache increment %s: too much contention", key)
}
