package cache

import (
	"errors"
	"testing"
)

func constEmbed(vec []float32) func(string) ([]float32, error) {
	return func(string) ([]float32, error) {
		return vec, nil
	}
}

func TestCacheHitMissAccounting(t *testing.T) {
	c := New(8)
	embed := constEmbed([]float32{1, 0})

	if c.HitRate() != 0 {
		t.Fatalf("empty cache hit rate = %v, want 0", c.HitRate())
	}

	if _, err := c.Get("query one", embed); err != nil {
		t.Fatal(err)
	}
	if c.Hits() != 0 || c.Misses() != 1 {
		t.Fatalf("after first get: hits=%d misses=%d", c.Hits(), c.Misses())
	}

	if _, err := c.Get("query one", embed); err != nil {
		t.Fatal(err)
	}
	if c.Hits() != 1 || c.Misses() != 1 {
		t.Fatalf("after repeat get: hits=%d misses=%d", c.Hits(), c.Misses())
	}
	if c.HitRate() != 0.5 {
		t.Fatalf("hit rate = %v, want 0.5", c.HitRate())
	}
}

func TestCacheKeyIsVerbatim(t *testing.T) {
	c := New(8)
	embed := constEmbed([]float32{1})

	c.Get("Query", embed)
	c.Get("query", embed)
	c.Get("query ", embed)

	// No normalization: three distinct strings are three distinct keys.
	if c.Misses() != 3 {
		t.Fatalf("misses = %d, want 3", c.Misses())
	}
}

func TestCacheEviction(t *testing.T) {
	c := New(2)
	embed := constEmbed([]float32{1})

	c.Get("a", embed)
	c.Get("b", embed)
	c.Get("a", embed) // refresh a
	c.Get("c", embed) // evicts b

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}

	c.Get("b", embed)
	if c.Misses() != 4 {
		t.Fatalf("misses = %d, want 4 (b was evicted)", c.Misses())
	}
	c.Get("a", embed)
	if c.Hits() != 2 {
		t.Fatalf("hits = %d, want 2", c.Hits())
	}
}

func TestCacheEmbedError(t *testing.T) {
	c := New(2)
	called := 0
	failing := func(string) ([]float32, error) {
		called++
		return nil, errors.New("embed failed")
	}

	if _, err := c.Get("q", failing); err == nil {
		t.Fatal("expected error")
	}
	// Failed embeds are not cached and not counted as misses.
	if c.Misses() != 0 {
		t.Fatalf("misses = %d, want 0", c.Misses())
	}
	if _, err := c.Get("q", failing); err == nil {
		t.Fatal("expected error")
	}
	if called != 2 {
		t.Fatalf("embed called %d times, want 2", called)
	}
}
