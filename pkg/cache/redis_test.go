package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T, prefix string) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisConfig{
		URL:    "redis://" + srv.Addr(),
		Prefix: prefix,
	})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t, "pikchr:")

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get missing: hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, "key", []byte("<svg/>"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !srv.Exists("pikchr:key") {
		t.Error("key should be stored under the prefix")
	}
	if ttl := srv.TTL("pikchr:key"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	data, hit, err := c.Get(ctx, "key")
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Fatalf("Get: data=%q hit=%v err=%v", data, hit, err)
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("entry should be gone after Delete")
	}
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t, "")

	if err := c.Set(ctx, "key", []byte("x"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	srv.FastForward(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("expired entry should be a miss")
	}
}

func TestRedisCacheClear(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t, "pikchr:")

	for _, k := range []string{"a", "b"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := srv.Set("other:key", "keep"); err != nil {
		t.Fatal(err)
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d keys, want 2", n)
	}
	if !srv.Exists("other:key") {
		t.Error("Clear must only touch keys under its prefix")
	}
}

func TestRedisCacheClearWithoutPrefix(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t, "")

	if err := srv.Set("someone-elses:session", "keep"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "artifact:abc", []byte("<svg/>"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !srv.Exists(DefaultRedisPrefix + "artifact:abc") {
		t.Errorf("key should be stored under %q", DefaultRedisPrefix)
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 1 {
		t.Errorf("Clear removed %d keys, want 1", n)
	}
	if !srv.Exists("someone-elses:session") {
		t.Error("Clear deleted a key it did not write")
	}
}

func TestNewRedisCacheErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewRedisCache(ctx, RedisConfig{URL: "http://nope"}); err == nil {
		t.Error("expected error for invalid URL")
	}

	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()
	if _, err := NewRedisCache(ctx, RedisConfig{URL: "redis://" + addr}); err == nil {
		t.Error("expected error when the server is down")
	}
}

func TestClassifyRedis(t *testing.T) {
	if classifyRedis(nil) != nil {
		t.Error("nil should stay nil")
	}
	if err := classifyRedis(context.Canceled); IsTransient(err) {
		t.Error("context errors must not be retried")
	}
	err := classifyRedis(io.EOF)
	if !IsTransient(err) || !errors.Is(err, ErrUnreachable) {
		t.Errorf("dropped connection should be transient and unreachable: %v", err)
	}
	if err := classifyRedis(redis.Nil); IsTransient(err) {
		t.Error("server replies must not be retried")
	}
}
