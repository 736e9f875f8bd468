// Package cache stores synthesized audio in Redis keyed by the synthesis
// inputs, so repeated uploads of the same document skip the backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pdftoaudio:audio:"

// opTimeout bounds each Redis round trip so a slow cache never stalls a
// conversion.
const opTimeout = time.Second

// Key identifies one synthesis result.
type Key struct {
	Backend  string
	Language string
	Voice    string
	Rate     float64
	Text     string
}

// String hashes the key fields into a Redis key.
func (k Key) String() string {
	h := sha256.New()
	for _, part := range []string{k.Backend, k.Language, k.Voice, strconv.FormatFloat(k.Rate, 'f', 3, 64)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write([]byte(k.Text))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// AudioCache is a Redis-backed MP3 cache. It is safe for concurrent use.
type AudioCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps an existing client.
func New(rdb *redis.Client, ttl time.Duration) *AudioCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AudioCache{rdb: rdb, ttl: ttl}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string, db int, ttl time.Duration) (*AudioCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	c := New(rdb, ttl)
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

// Get returns the cached audio, or ok=false on a miss.
func (c *AudioCache) Get(ctx context.Context, key Key) (data []byte, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err = c.rdb.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("audio cache get: %w", err)
	}
	return data, true, nil
}

// Set stores audio under key with the configured TTL.
func (c *AudioCache) Set(ctx context.Context, key Key, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("audio cache set: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable; it backs the readiness check.
func (c *AudioCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *AudioCache) Close() error {
	return c.rdb.Close()
}
