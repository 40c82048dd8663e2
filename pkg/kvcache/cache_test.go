package kvcache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "forever", []byte("x"), 0))
	now = now.Add(24 * time.Hour)
	_, err = m.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestNamespacedKeyAndInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	key, err := NamespacedKey(ctx, m, "record-read", "urn:r1")
	require.NoError(t, err)
	assert.Equal(t, "record-read:0:urn:r1", key)
	require.NoError(t, m.Set(ctx, key, []byte("cached"), 0))

	require.NoError(t, Invalidate(ctx, m, "record-read", "search"))

	next, err := NamespacedKey(ctx, m, "record-read", "urn:r1")
	require.NoError(t, err)
	assert.Equal(t, "record-read:1:urn:r1", next)
	_, err = m.Get(ctx, next)
	assert.ErrorIs(t, err, ErrMiss, "entries from the old generation are unreachable")

	gen, err := Generation(ctx, m, "search")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)

	gen, err = Generation(ctx, m, "query")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gen)
}

func TestKVKey(t *testing.T) {
	k := kvKey("record-read:3:http://ex.org/d#r1 with spaces")
	assert.Regexp(t, `^record-read\.[0-9a-f]{32}$`, k)
	assert.Equal(t, k, kvKey("record-read:3:http://ex.org/d#r1 with spaces"))
	assert.NotEqual(t, k, kvKey("record-read:4:http://ex.org/d#r1 with spaces"))
	assert.Regexp(t, `^k\.`, kvKey("::"))
}

func TestEncodeDecode(t *testing.T) {
	exp := time.Unix(1700000000, 5)
	v, e, ok := decode(encode([]byte("payload"), exp))
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), v)
	assert.True(t, exp.Equal(e))

	v, e, ok = decode(encode([]byte("x"), time.Time{}))
	require.True(t, ok)
	assert.Equal(t, []byte("x"), v)
	assert.True(t, e.IsZero())

	_, _, ok = decode([]byte("short"))
	assert.False(t, ok)
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	key      string
	value    []byte
	revision uint64
}

func (e fakeEntry) Key() string      { return e.key }
func (e fakeEntry) Value() []byte    { return e.value }
func (e fakeEntry) Revision() uint64 { return e.revision }

// fakeKV keeps the latest revision of each key in memory.
type fakeKV struct {
	jetstream.KeyValue
	entries map[string]fakeEntry
	seq     uint64
	purged  []string
}

func newFakeKV() *fakeKV {
	return &fakeKV{entries: map[string]fakeEntry{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	e, ok := f.entries[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return e, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.seq++
	f.entries[key] = fakeEntry{key: key, value: value, revision: f.seq}
	return f.seq, nil
}

func (f *fakeKV) Purge(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	delete(f.entries, key)
	f.purged = append(f.purged, key)
	return nil
}

func TestJetStream_ExpiredEntryIsPurged(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv := newFakeKV()
	c := newJetStream(kv, slog.Default())
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "record-read:0:urn:r1", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "record-read:0:urn:r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.Empty(t, kv.purged)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "record-read:0:urn:r1")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, []string{kvKey("record-read:0:urn:r1")}, kv.purged)
	assert.Empty(t, kv.entries, "expired key no longer occupies the bucket")
}

func TestBucketConfig_AppliesTTL(t *testing.T) {
	cfg := bucketConfig("osf_cache", time.Hour)
	assert.Equal(t, "osf_cache", cfg.Bucket)
	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Equal(t, uint8(1), cfg.History)
}

func TestMemory_ExpiredEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Second))
	now = now.Add(time.Second)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, m.Len())
}
