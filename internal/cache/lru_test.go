package cache

import (
	"testing"
	"time"
)

func TestLRUCacheBasicOperations(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v; want 1, true", v, ok)
	}

	// "a" was just touched, so adding a third entry evicts "b".
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("k", 42)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected fresh entry to be present")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("k", 1)
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected deleted entry to be gone")
	}

	// Deleting a missing key is a no-op.
	c.Delete("missing")
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("alice|2025-03-01", 1)
	c.Set("alice|2025-04-01", 2)
	c.Set("bob|2025-03-01", 3)

	if n := c.DeletePrefix("alice|"); n != 2 {
		t.Errorf("DeletePrefix removed %d entries, want 2", n)
	}
	if _, ok := c.Get("alice|2025-03-01"); ok {
		t.Error("expected alice's entries to be gone")
	}
	if _, ok := c.Get("bob|2025-03-01"); !ok {
		t.Error("expected bob's entry to survive")
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 5*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(10 * time.Millisecond)
	c.Set("c", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected fresh entry to survive cleanup")
	}
}
