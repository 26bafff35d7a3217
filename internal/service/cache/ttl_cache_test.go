package cache

import (
	"testing"
	"time"
)

func TestTTLCacheRoundTrip(t *testing.T) {
	c := NewTTLCache()

	if _, ok, _ := c.GetBytes("missing"); ok {
		t.Fatalf("empty cache must miss")
	}

	if err := c.SetBytes("k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.GetBytes("k")
	if err != nil || !ok || string(b) != "v" {
		t.Fatalf("get = (%q, %v, %v), want (v, true, nil)", b, ok, err)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if _, ok, _ := c.GetBytes("k"); ok {
		t.Fatalf("expired entry must miss")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok, _ := c.GetBytes("k"); !ok {
		t.Fatalf("zero TTL entry must not expire")
	}
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache()
	c.SetBytes("a", []byte("1"), time.Hour)
	c.SetBytes("b", []byte("2"), time.Hour)
	c.SetBytes("c", []byte("3"), time.Hour)

	if err := c.DeleteBytes("a", "b", "ghost"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.GetBytes("a"); ok {
		t.Fatalf("a must be gone")
	}
	if _, ok, _ := c.GetBytes("c"); !ok {
		t.Fatalf("c must survive")
	}
}
