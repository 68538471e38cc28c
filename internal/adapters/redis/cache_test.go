package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "reserve_catalog/internal/adapters/redis"
	"reserve_catalog/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGetDel(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	ref := "blob-1"
	in := domain.Reserve{ID: "r1", Name: "Stolby", Flora: []string{"fir"}, ImageRef: &ref,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := c.Set(ctx, "reserve:r1", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("reserves:reserve:r1") {
		t.Fatalf("expected namespaced key, have %v", mr.Keys())
	}

	var out domain.Reserve
	ok, err := c.Get(ctx, "reserve:r1", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Name != "Stolby" || out.ImageRef == nil || *out.ImageRef != "blob-1" || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	if err := c.Del(ctx, "reserve:r1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := c.Get(ctx, "reserve:r1", &out); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestCache_TTLExpires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "regions", []string{"North"}, 10); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(11 * time.Second)

	var out []string
	if ok, _ := c.Get(ctx, "regions", &out); ok {
		t.Fatalf("expected expired key, got %v", out)
	}
}

func TestCache_UndecodableIsMiss(t *testing.T) {
	c, mr := newCache(t)
	_ = mr.Set("reserves:regions", "{not json")

	var out []string
	ok, err := c.Get(context.Background(), "regions", &out)
	if ok || err == nil {
		t.Fatalf("expected miss with error, got ok=%v err=%v", ok, err)
	}
}
