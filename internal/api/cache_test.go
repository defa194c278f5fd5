package api

import (
	"testing"

	"github.com/tierscore/tierscore/internal/runs"
)

func detail(id string) *RunDetail {
	return &RunDetail{Run: runs.Run{ID: id}}
}

func TestRunCacheEviction(t *testing.T) {
	c := NewRunCache(2)
	c.Put("a", detail("a"))
	c.Put("b", detail("b"))

	// Touch a so b becomes the oldest.
	if c.Get("a") == nil {
		t.Fatal("expected a to be cached")
	}
	c.Put("c", detail("c"))

	if c.Get("b") != nil {
		t.Error("expected b to be evicted")
	}
	if c.Get("a") == nil || c.Get("c") == nil {
		t.Error("expected a and c to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestRunCacheReplace(t *testing.T) {
	c := NewRunCache(0)
	c.Put("a", detail("a"))
	c.Put("a", &RunDetail{Run: runs.Run{ID: "a", Status: runs.StatusCompleted}})

	got := c.Get("a")
	if got == nil || got.Status != runs.StatusCompleted {
		t.Errorf("expected replaced entry, got %+v", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestRunCacheFromEnv(t *testing.T) {
	t.Setenv("RUN_CACHE_SIZE", "3")
	c := NewRunCacheFromEnv()
	if c.capacity != 3 {
		t.Errorf("capacity = %d, want 3", c.capacity)
	}

	t.Setenv("RUN_CACHE_SIZE", "nope")
	if c := NewRunCacheFromEnv(); c.capacity != 100 {
		t.Errorf("capacity = %d, want default 100", c.capacity)
	}
}
