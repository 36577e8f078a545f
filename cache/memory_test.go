package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestMemory_RoundTrip verifies put-then-get returns the stored value
// and evict-then-get misses.
func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("books")

	tests := []struct {
		name  string
		key   any
		value any
	}{
		{"string value", "isbn-1", "moby dick"},
		{"int key", 42, "answer"},
		{"nil value", "absent-marker", nil},
		{"struct value", "pair", struct{ A, B int }{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Put(ctx, tt.key, tt.value)

			w, ok := m.Get(ctx, tt.key)
			if !ok {
				t.Fatalf("Get(%v) missed after Put", tt.key)
			}
			if w.Get() != tt.value {
				t.Errorf("Get(%v) = %v, want %v", tt.key, w.Get(), tt.value)
			}

			m.Evict(ctx, tt.key)
			if _, ok := m.Get(ctx, tt.key); ok {
				t.Errorf("Get(%v) hit after Evict", tt.key)
			}
		})
	}
}

// TestMemory_NilValueIsAMapping verifies a stored nil is distinguishable
// from a missing mapping.
func TestMemory_NilValueIsAMapping(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r")

	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss before Put")
	}

	m.Put(ctx, "k", nil)
	w, ok := m.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit for stored nil")
	}
	if w.Get() != nil {
		t.Errorf("expected wrapped nil, got %v", w.Get())
	}
}

// TestMemory_Clear verifies every mapping is removed.
func TestMemory_Clear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r")
	m.Put(ctx, "a", 1)
	m.Put(ctx, "b", 2)

	m.Clear(ctx)

	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("key 'a' survived Clear")
	}
	if _, ok := m.Get(ctx, "b"); ok {
		t.Error("key 'b' survived Clear")
	}
}

// TestMemory_PutIfAbsent verifies atomic first-writer-wins semantics.
func TestMemory_PutIfAbsent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r")

	prev, present := m.PutIfAbsent(ctx, "k", "first")
	if present {
		t.Fatalf("expected no previous mapping, got %v", prev.Get())
	}

	prev, present = m.PutIfAbsent(ctx, "k", "second")
	if !present {
		t.Fatal("expected existing mapping on second PutIfAbsent")
	}
	if prev.Get() != "first" {
		t.Errorf("previous = %v, want first", prev.Get())
	}

	w, _ := m.Get(ctx, "k")
	if w.Get() != "first" {
		t.Errorf("stored = %v, want first", w.Get())
	}
}

// TestMemory_TTLExpiry verifies entries expire and are cleaned up lazily.
func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r", WithTTL(10*time.Millisecond))

	m.Put(ctx, "k", "v")
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(25 * time.Millisecond)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("expected miss after expiry")
	}
}

// TestMemory_GetOrLoad_SingleFlight verifies the loader runs exactly
// once for concurrent callers of the same key.
func TestMemory_GetOrLoad_SingleFlight(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r")

	var loads atomic.Int64
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		loads.Add(1)
		<-release
		return "computed", nil
	}

	const callers = 16
	results := make([]any, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := m.GetOrLoad(ctx, "k", loader)
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
				return
			}
			results[i] = v
		}(i)
	}

	// Give all goroutines a chance to join the flight before releasing.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loader ran %d times, want 1", got)
	}
	for i, v := range results {
		if v != "computed" {
			t.Errorf("caller %d got %v, want computed", i, v)
		}
	}
}

// TestMemory_GetOrLoad_DistinguishesKeyTypes verifies keys with the
// same textual form but different types never share a flight: a load
// for "1" must not be served the value computed for int 1.
func TestMemory_GetOrLoad_DistinguishesKeyTypes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r")

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	var intGot any
	go func() {
		defer wg.Done()
		intGot, _ = m.GetOrLoad(ctx, 1, func(context.Context) (any, error) {
			close(started)
			<-release
			return "int-value", nil
		})
	}()

	// The load for int key 1 is now in flight; a load for string key
	// "1" must run independently instead of joining it.
	<-started

	strDone := make(chan struct{})
	var strGot any
	var strErr error
	go func() {
		defer close(strDone)
		strGot, strErr = m.GetOrLoad(ctx, "1", func(context.Context) (any, error) {
			return "string-value", nil
		})
	}()

	select {
	case <-strDone:
	case <-time.After(time.Second):
		t.Fatal(`load for key "1" blocked behind the flight for key 1`)
	}
	close(release)
	wg.Wait()

	if strErr != nil {
		t.Fatalf("GetOrLoad: %v", strErr)
	}
	if strGot != "string-value" {
		t.Errorf(`GetOrLoad("1") = %v, want string-value`, strGot)
	}
	if intGot != "int-value" {
		t.Errorf("GetOrLoad(1) = %v, want int-value", intGot)
	}
}

// TestMemory_EvictExpiredKeepsRefreshedEntry verifies the lazy expiry
// cleanup only removes an entry that is still expired: a Put racing in
// after a reader observed the expired entry must not lose its mapping.
func TestMemory_EvictExpiredKeepsRefreshedEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r", WithTTL(time.Hour))

	// A reader observed an expired entry; before its cleanup ran, this
	// Put refreshed the mapping.
	m.Put(ctx, "k", "fresh")
	m.evictExpired("k")

	w, ok := m.Get(ctx, "k")
	if !ok {
		t.Fatal("refreshed entry removed by stale expiry cleanup")
	}
	if w.Get() != "fresh" {
		t.Errorf("Get = %v, want fresh", w.Get())
	}

	// A genuinely expired entry is still removed.
	m.mu.Lock()
	m.entries["stale"] = memoryEntry{value: "old", expiresAt: time.Now().Add(-time.Minute)}
	m.mu.Unlock()

	m.evictExpired("stale")

	m.mu.RLock()
	_, ok = m.entries["stale"]
	m.mu.RUnlock()
	if ok {
		t.Error("expired entry survived cleanup")
	}
}

// TestMemory_GetOrLoad_Hit verifies an existing mapping skips the loader.
func TestMemory_GetOrLoad_Hit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r")
	m.Put(ctx, "k", "stored")

	v, err := m.GetOrLoad(ctx, "k", func(context.Context) (any, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if v != "stored" {
		t.Errorf("GetOrLoad = %v, want stored", v)
	}
}

// TestMemory_GetOrLoad_LoaderFailure verifies failures are wrapped with
// the key and the original cause, and nothing is stored.
func TestMemory_GetOrLoad_LoaderFailure(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("r")

	cause := errors.New("backend down")
	_, err := m.GetOrLoad(ctx, "k", func(context.Context) (any, error) {
		return nil, cause
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}

	var retrieval *ValueRetrievalError
	if !errors.As(err, &retrieval) {
		t.Fatalf("expected *ValueRetrievalError, got %T", err)
	}
	if retrieval.Key != "k" {
		t.Errorf("error key = %v, want k", retrieval.Key)
	}
	if !errors.Is(err, cause) {
		t.Error("error does not unwrap to the loader failure")
	}

	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("failed load must not store a mapping")
	}
}
