package server

import (
	"sync"
	"testing"
)

func testClient(id string) *Client {
	return &Client{id: id, send: make(chan []byte, 1)}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	alice := testClient("c1")
	bob := testClient("c2")

	if err := r.Register("alice", alice); err != nil {
		t.Fatalf("Register(alice) error = %v", err)
	}
	if err := r.Register("bob", bob); err != nil {
		t.Fatalf("Register(bob) error = %v", err)
	}

	got, ok := r.Lookup("alice")
	if !ok || got != alice {
		t.Errorf("Lookup(alice) = %v, %v", got, ok)
	}
	if _, ok := r.Lookup("ghost"); ok {
		t.Error("Lookup(ghost) = true, want false")
	}
	if n := r.Len(); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()

	first := testClient("c1")
	if err := r.Register("alice", first); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	if err := r.Register("alice", testClient("c2")); err != ErrUsernameTaken {
		t.Fatalf("second Register error = %v, want ErrUsernameTaken", err)
	}

	// The original holder is untouched.
	got, ok := r.Lookup("alice")
	if !ok || got != first {
		t.Errorf("Lookup(alice) = %v, %v, want the first session", got, ok)
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register("alice", testClient("c1"))
	r.Unregister("alice")
	r.Unregister("alice") // no-op
	r.Unregister("ghost") // never registered, also a no-op

	if _, ok := r.Lookup("alice"); ok {
		t.Error("Lookup(alice) = true after Unregister")
	}
	if n := r.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestRegistry_Snapshots(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", testClient("c1"))
	r.Register("bob", testClient("c2"))

	names := r.Usernames()
	if len(names) != 2 {
		t.Fatalf("Usernames() = %v", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Errorf("Usernames() = %v, want alice and bob", names)
	}
	if got := len(r.All()); got != 2 {
		t.Errorf("len(All()) = %d, want 2", got)
	}
}

// Concurrent registrations racing on one username must resolve to exactly
// one winner.
func TestRegistry_ConcurrentDuplicate(t *testing.T) {
	const racers = 32

	r := NewRegistry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Register("alice", testClient("c")); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("concurrent Register successes = %d, want exactly 1", successes)
	}
	if n := r.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestRegistry_ConcurrentDistinctNames(t *testing.T) {
	const n = 32

	r := NewRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- r.Register(string(rune('a'+i%26))+string(rune('0'+i/26)), testClient("c"))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Register error = %v", err)
		}
	}
	if got := r.Len(); got != n {
		t.Errorf("Len() = %d, want %d", got, n)
	}
}
