package cache

import (
	"testing"
	"time"
)

func TestLRUEviction(t *testing.T) {
	c := NewLRU[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")

	// Touch key1 so key2 is the least recently used.
	if _, found := c.Get("key1"); !found {
		t.Fatal("key1 should exist")
	}

	c.Set("key4", "value4")

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, key := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(key); !found {
			t.Errorf("%s should still exist", key)
		}
	}
	if got := c.Size(); got != 3 {
		t.Errorf("Size() = %d, want 3", got)
	}
}

func TestLRUUpdateExistingKey(t *testing.T) {
	c := NewLRU[int](2, time.Hour)

	c.Set("key", 1)
	c.Set("key", 2)

	got, found := c.Get("key")
	if !found || got != 2 {
		t.Errorf("Get() = %d, %v; want 2, true", got, found)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRU[string](10, 10*time.Millisecond)

	c.Set("key", "value")
	time.Sleep(20 * time.Millisecond)

	if _, found := c.Get("key"); found {
		t.Error("expired entry should be treated as absent")
	}
	if c.Size() != 0 {
		t.Errorf("Size() after expired Get = %d, want 0", c.Size())
	}
}

func TestLRUDeletePrefix(t *testing.T) {
	c := NewLRU[int](10, time.Hour)

	c.Set("alice:balance:1", 100)
	c.Set("alice:spent:food", 200)
	c.Set("bob:balance:1", 300)

	if removed := c.DeletePrefix("alice:"); removed != 2 {
		t.Errorf("DeletePrefix() removed %d, want 2", removed)
	}

	if _, found := c.Get("alice:balance:1"); found {
		t.Error("alice's entries should be gone")
	}
	if _, found := c.Get("bob:balance:1"); !found {
		t.Error("bob's entries should survive")
	}
}

func TestLRUCleanExpired(t *testing.T) {
	c := NewLRU[string](10, 10*time.Millisecond)

	c.Set("old1", "a")
	c.Set("old2", "b")
	time.Sleep(20 * time.Millisecond)

	if cleaned := c.CleanExpired(); cleaned != 2 {
		t.Errorf("CleanExpired() = %d, want 2", cleaned)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}
