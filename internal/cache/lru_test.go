package cache

import (
	"testing"
	"time"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Set("key4", "value4") // Should evict key1

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, key := range []string{"key2", "key3", "key4"} {
		if _, found := c.Get(key); !found {
			t.Errorf("%s should still be cached", key)
		}
	}
	if got := c.Size(); got != 3 {
		t.Errorf("Size() = %d, want 3", got)
	}
}

func TestLRUCache_GetPromotes(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")

	// Touch key1 so key2 becomes the eviction candidate
	if _, found := c.Get("key1"); !found {
		t.Fatal("key1 should be cached")
	}
	c.Set("key3", "value3")

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted after key1 was promoted")
	}
	if _, found := c.Get("key1"); !found {
		t.Error("key1 should still be cached")
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache[string](100, 50*time.Millisecond)

	c.Set("key1", "value1")
	if _, found := c.Get("key1"); !found {
		t.Fatal("key1 should be cached before expiry")
	}

	time.Sleep(60 * time.Millisecond)

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	if got := c.Size(); got != 0 {
		t.Errorf("Size() = %d after expired read, want 0", got)
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)

	c.Set("key1", 1)
	c.Delete("key1")
	c.Delete("missing") // No-op

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have been deleted")
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[string](10, time.Hour)

	c.Set("stats:week:2025-01-06", "a")
	c.Set("stats:month:2025-01-01", "b")
	c.Set("day:2025-01-06", "c")

	removed := c.DeletePrefix("stats:")
	if removed != 2 {
		t.Errorf("DeletePrefix() removed %d, want 2", removed)
	}
	if _, found := c.Get("stats:week:2025-01-06"); found {
		t.Error("stats entries should have been removed")
	}
	if _, found := c.Get("day:2025-01-06"); !found {
		t.Error("day entry should survive a stats invalidation")
	}
}

func TestLRUCache_Purge(t *testing.T) {
	c := NewLRUCache[string](10, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Purge()

	if got := c.Size(); got != 0 {
		t.Errorf("Size() = %d after purge, want 0", got)
	}
	if _, found := c.Get("key1"); found {
		t.Error("purged entries should be gone")
	}

	// Cache stays usable after a purge
	c.Set("key3", "value3")
	if _, found := c.Get("key3"); !found {
		t.Error("cache should accept writes after purge")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c := NewLRUCache[string](100, 50*time.Millisecond)

	c.Set("key1", "value1")
	c.Set("key2", "value2")

	time.Sleep(60 * time.Millisecond)
	c.Set("key3", "value3")

	removed := c.CleanExpired()
	if removed != 2 {
		t.Errorf("CleanExpired() removed %d, want 2", removed)
	}
	if _, found := c.Get("key3"); !found {
		t.Error("fresh entry should survive cleanup")
	}
}

func TestManager_Cleanup(t *testing.T) {
	c := NewLRUCache[string](100, 10*time.Millisecond)
	m := NewManager()
	m.Register(c)

	c.Set("key1", "value1")
	m.StartCleanup(20 * time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	m.Stop()

	if got := c.Size(); got != 0 {
		t.Errorf("Size() = %d after managed cleanup, want 0", got)
	}
}
