package services

import (
	"testing"
	"time"
)

func TestQueryCacheSetGet(t *testing.T) {
	cache := NewQueryCache(time.Minute)

	cache.Set("standings:abc", 42)

	got, ok := cache.Get("standings:abc")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if got.(int) != 42 {
		t.Errorf("Expected cached value 42, got %v", got)
	}
}

func TestQueryCacheMiss(t *testing.T) {
	cache := NewQueryCache(time.Minute)

	if _, ok := cache.Get("missing"); ok {
		t.Error("Expected cache miss for unknown key")
	}
}

func TestQueryCacheExpiry(t *testing.T) {
	cache := NewQueryCache(10 * time.Millisecond)

	cache.Set("key", "value")
	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get("key"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestQueryCacheDelete(t *testing.T) {
	cache := NewQueryCache(time.Minute)

	cache.Set("key", "value")
	cache.Delete("key")

	if _, ok := cache.Get("key"); ok {
		t.Error("Expected entry to be deleted")
	}
	if cache.Size() != 0 {
		t.Errorf("Expected empty cache, got size %d", cache.Size())
	}
}
