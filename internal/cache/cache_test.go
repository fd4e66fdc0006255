package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[string](time.Minute)
	defer c.Close()

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache should miss")
	}
	c.Set("a", "red")
	if v, ok := c.Get("a"); !ok || v != "red" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}
	c.Set("a", "blue")
	if v, _ := c.Get("a"); v != "blue" {
		t.Errorf("Get(a) after overwrite = %q", v)
	}
}

func TestExpiry(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", 1)

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should miss")
	}

	c.removeExpired()
	if c.Size() != 0 {
		t.Errorf("Size() = %d after sweep, want 0", c.Size())
	}
}

func TestZeroTTLDisablesStorage(t *testing.T) {
	c := New[int](0)
	defer c.Close()

	c.Set("k", 1)
	if _, ok := c.Get("k"); ok {
		t.Error("zero TTL cache should never hit")
	}
}

func TestFetch(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Fetch(context.Background(), "k", load)
		if err != nil || v != 42 {
			t.Fatalf("Fetch = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("load called %d times, want 1", calls)
	}
}

func TestFetchSharesConcurrentLoad(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.Fetch(context.Background(), "k", load); err != nil || v != 7 {
				t.Errorf("Fetch = %d, %v", v, err)
			}
		}()
	}

	// let every caller reach the miss while the first load is blocked
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("load called %d times, want 1", n)
	}
}

func TestFetchErrorNotCached(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	boom := errors.New("boom")
	if _, err := c.Fetch(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Size() != 0 {
		t.Error("failed load should not be cached")
	}
}

func TestCloseTwice(t *testing.T) {
	c := New[int](time.Minute)
	c.Close()
	c.Close()
}
