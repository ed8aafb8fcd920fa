// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCacheBasicOperations(t *testing.T) {
	t.Parallel()
	c := New(1 * time.Minute)

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	_, exists = c.Get("key2")
	if exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	t.Parallel()
	c := New(50 * time.Millisecond)

	c.Set("key1", "value1")
	if _, exists := c.Get("key1"); !exists {
		t.Error("Expected key1 to exist immediately after set")
	}

	time.Sleep(80 * time.Millisecond)

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be expired")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry removed", c.Len())
	}
}

func TestCacheDisabled(t *testing.T) {
	t.Parallel()
	c := New(0)

	c.Set("key1", "value1")
	if _, exists := c.Get("key1"); exists {
		t.Error("zero TTL cache stored a value")
	}
	if c.Enabled() {
		t.Error("Enabled() = true for zero TTL")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	t.Parallel()
	c := New(1 * time.Minute)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")

	c.Delete("key1")
	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be deleted")
	}

	c.Clear()
	for _, key := range []string{"key2", "key3"} {
		if _, exists := c.Get(key); exists {
			t.Errorf("Expected %s to be cleared", key)
		}
	}

	stats := c.GetStats()
	if stats.Evictions != 3 || stats.TotalKeys != 0 {
		t.Errorf("stats = %+v, want 3 evictions, 0 keys", &stats)
	}
}

func TestCacheHitRate(t *testing.T) {
	t.Parallel()
	c := New(1 * time.Minute)

	if c.HitRate() != 0 {
		t.Errorf("empty HitRate() = %v", c.HitRate())
	}

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	if got := c.HitRate(); got != 75 {
		t.Errorf("HitRate() = %v, want 75", got)
	}
}

func TestCacheServeCleansUp(t *testing.T) {
	t.Parallel()
	c := New(10 * time.Millisecond)
	c.cleanupInterval = 5 * time.Millisecond
	c.Set("a", 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Error("cleanup did not remove expired entry")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := New(1 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key%d-%d", id, j%5)
				c.Set(key, j)
				c.Get(key)
				if j%20 == 0 {
					c.Clear()
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	a := GenerateKey("scenes", "page=1")
	b := GenerateKey("scenes", "page=1")
	c := GenerateKey("scenes", "page=2")

	if a != b {
		t.Error("same params produced different keys")
	}
	if a == c {
		t.Error("different params produced the same key")
	}
	if a[:7] != "scenes:" {
		t.Errorf("key %q missing prefix", a)
	}
}
