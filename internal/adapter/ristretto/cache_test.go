package ristretto

import (
	"context"
	"testing"
	"time"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestSetAndGet(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "board", []byte(`[{"id":"t1"}]`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.Wait()

	val, found, err := c.Get(ctx, "board")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected hit after Set")
	}
	if string(val) != `[{"id":"t1"}]` {
		t.Fatalf("unexpected value: %s", val)
	}
}

func TestGetMiss(t *testing.T) {
	c := newCache(t)

	_, found, err := c.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestDelete(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "board", []byte("v"), time.Minute)
	c.Wait()

	if err := c.Delete(ctx, "board"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := c.Get(ctx, "board"); found {
		t.Fatal("expected miss after Delete")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("v"), 50*time.Millisecond)
	c.Wait()
	time.Sleep(150 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "short"); found {
		t.Fatal("expected entry to expire")
	}
}
