package cache

import (
	"context"
	"testing"
	"time"
)

func TestSetGetExpiry(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "code", 1, time.Minute)
	c.Set(ctx, "forever", 2, 0)

	if v, ok := c.Get(ctx, "code"); !ok || v != 1 {
		t.Fatalf("Get(code) = %v, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, "code"); ok {
		t.Fatalf("expected code to expire")
	}
	if v, ok := c.Get(ctx, "forever"); !ok || v != 2 {
		t.Fatalf("Get(forever) = %v, %v", v, ok)
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	c := New[string, string](0)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", "x", time.Second)
	c.Set(ctx, "b", "y", time.Hour)

	now = now.Add(time.Minute)
	c.purgeExpired()

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestSizeBound(t *testing.T) {
	ctx := context.Background()
	c := NewSized[int, int](2, 0)
	defer c.Close()

	c.Set(ctx, 1, 1, 0)
	c.Set(ctx, 2, 2, 0)
	c.Set(ctx, 3, 3, 0)

	if _, ok := c.Get(ctx, 1); ok {
		t.Fatalf("oldest entry should be evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New[string, int](time.Millisecond)
	c.Close()
	c.Close()
}
