package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) Cache[string] {
	t.Helper()
	c, err := NewTTL[string](context.Background(), ttl, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewTTL failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTTLBasicOperations(t *testing.T) {
	cache := newTestCache(t, time.Minute)

	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss, got value: %s", value)
	}

	isNew, err := cache.Set("key1", "value1")
	if err != nil {
		t.Fatalf("Unexpected error setting key: %v", err)
	}
	if !isNew {
		t.Error("Expected new entry creation")
	}

	if value, exists := cache.Get("key1"); !exists || value != "value1" {
		t.Errorf("Expected 'value1', got value: %s, exists: %t", value, exists)
	}

	isNew, err = cache.Set("key1", "value1_updated")
	if err != nil {
		t.Fatalf("Unexpected error updating key: %v", err)
	}
	if isNew {
		t.Error("Expected existing entry update")
	}

	deleted, err := cache.Delete("key1")
	if err != nil {
		t.Fatalf("Unexpected error deleting key: %v", err)
	}
	if !deleted {
		t.Error("Expected successful deletion")
	}

	if _, exists := cache.Get("key1"); exists {
		t.Error("Expected cache miss after deletion")
	}
}

func TestTTLEmptyKeyRejected(t *testing.T) {
	cache := newTestCache(t, time.Minute)

	if _, err := cache.Set("", "v"); err == nil {
		t.Error("Expected error for empty key")
	}
	if _, err := cache.Delete(""); err == nil {
		t.Error("Expected error for empty key delete")
	}
}

func TestTTLExpiry(t *testing.T) {
	cache := newTestCache(t, 30*time.Millisecond)

	_, _ = cache.Set("short", "lived")

	if _, exists := cache.Get("short"); !exists {
		t.Fatal("Expected entry before expiry")
	}

	time.Sleep(50 * time.Millisecond)

	if value, exists := cache.Get("short"); exists {
		t.Errorf("Expected expiry, got value: %s", value)
	}

	if cache.Stats().Evictions() == 0 {
		t.Error("Expected at least one recorded eviction")
	}
}

func TestTTLSetWithTTLOverride(t *testing.T) {
	cache := newTestCache(t, 20*time.Millisecond)

	// Override the short default with a long per-entry TTL.
	if _, err := cache.SetWithTTL("long", "lived", time.Minute); err != nil {
		t.Fatalf("SetWithTTL failed: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	if _, exists := cache.Get("long"); !exists {
		t.Error("Entry with overridden TTL should survive the default TTL")
	}
}

func TestTTLSetRefreshesExpiry(t *testing.T) {
	cache := newTestCache(t, 50*time.Millisecond)

	_, _ = cache.Set("k", "v1")
	time.Sleep(30 * time.Millisecond)
	// Overwrite refreshes the TTL window.
	_, _ = cache.Set("k", "v2")
	time.Sleep(30 * time.Millisecond)

	if value, exists := cache.Get("k"); !exists || value != "v2" {
		t.Errorf("Expected refreshed entry 'v2', got %q exists=%t", value, exists)
	}
}

func TestTTLBackgroundCleanup(t *testing.T) {
	cache := newTestCache(t, 20*time.Millisecond)

	for i := 0; i < 10; i++ {
		_, _ = cache.Set(fmt.Sprintf("key%d", i), "value")
	}

	time.Sleep(80 * time.Millisecond)

	// Background cleanup should have collected them without any Get calls.
	if size := cache.Size(); size != 0 {
		t.Errorf("Expected empty cache after cleanup, size = %d", size)
	}
}

func TestTTLEvictionCallback(t *testing.T) {
	var mu sync.Mutex
	evicted := make(map[string]string)

	c, err := NewTTL[string](context.Background(), 20*time.Millisecond, 10*time.Millisecond,
		WithEvictionCallback[string](func(key, value string) {
			mu.Lock()
			evicted[key] = value
			mu.Unlock()
		}))
	if err != nil {
		t.Fatalf("NewTTL failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	_, _ = c.Set("gone", "soon")
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if evicted["gone"] != "soon" {
		t.Errorf("Expected eviction callback for 'gone', got %v", evicted)
	}
}

func TestTTLKeysExcludesExpired(t *testing.T) {
	cache := newTestCache(t, time.Minute)

	_, _ = cache.Set("a", "1")
	_, _ = cache.SetWithTTL("b", "2", 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	keys := cache.Keys()
	if len(keys) != 1 || keys[0] != "a" {
		t.Errorf("Expected only key 'a', got %v", keys)
	}
}

func TestTTLInvalidConfig(t *testing.T) {
	if _, err := NewTTL[string](context.Background(), 0, time.Second); err == nil {
		t.Error("Expected error for zero TTL")
	}
	if _, err := NewTTL[string](context.Background(), time.Second, 0); err == nil {
		t.Error("Expected error for zero cleanup interval")
	}
}

func TestTTLConcurrentAccess(t *testing.T) {
	cache := newTestCache(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("w%d-k%d", worker, j%10)
				_, _ = cache.Set(key, "v")
				_, _ = cache.Get(key)
				if j%10 == 0 {
					_, _ = cache.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestTTLStats(t *testing.T) {
	cache := newTestCache(t, time.Minute)

	_, _ = cache.Set("k", "v")
	cache.Get("k")
	cache.Get("absent")

	summary := cache.Stats().Summary()
	if summary.Hits != 1 {
		t.Errorf("Hits = %d, want 1", summary.Hits)
	}
	if summary.Misses != 1 {
		t.Errorf("Misses = %d, want 1", summary.Misses)
	}
	if summary.Sets != 1 {
		t.Errorf("Sets = %d, want 1", summary.Sets)
	}
	if summary.HitRatio != 0.5 {
		t.Errorf("HitRatio = %f, want 0.5", summary.HitRatio)
	}
}
