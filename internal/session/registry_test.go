package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	r := NewRegistry(10, 20, nil)
	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected generated session id")
	}
	if s.Status() != StatusInitiated {
		t.Errorf("expected initiated status, got %s", s.Status())
	}

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}

	if _, err := r.Get("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCapacityCap(t *testing.T) {
	r := NewRegistry(2, 20, nil)
	if _, err := r.Create(); err != nil {
		t.Fatal(err)
	}
	s2, err := r.Create()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create(); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("registry size changed on rejected create: %d", r.Len())
	}

	// Freeing a slot allows a new call.
	r.Remove(s2.ID)
	if _, err := r.Create(); err != nil {
		t.Errorf("create after remove failed: %v", err)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	r := NewRegistry(10, 20, nil)
	s, _ := r.Create()
	r.Remove(s.ID)
	r.Remove(s.ID) // must be a no-op
	r.Remove("never-existed")
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestConcurrentCreateAndRemove(t *testing.T) {
	r := NewRegistry(0, 20, nil)
	var wg sync.WaitGroup
	ids := make(chan string, 100)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Create()
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			ids <- s.ID
		}()
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Remove(fmt.Sprintf("absent-%d", n))
		}(i)
	}
	wg.Wait()
	close(ids)

	n := 0
	for range ids {
		n++
	}
	if n != 50 || r.Len() != 50 {
		t.Errorf("expected 50 sessions, created %d, registry has %d", n, r.Len())
	}
}

func TestHistoryFIFOEviction(t *testing.T) {
	r := NewRegistry(10, 3, nil)
	s, _ := r.Create()
	for i := 0; i < 5; i++ {
		s.AppendMessage(RoleUser, fmt.Sprintf("msg-%d", i))
	}
	h := s.History()
	if len(h) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(h))
	}
	if h[0].Content != "msg-2" || h[2].Content != "msg-4" {
		t.Errorf("expected oldest entries evicted first, got %v", h)
	}
}

func TestBusyFlag(t *testing.T) {
	r := NewRegistry(10, 20, nil)
	s, _ := r.Create()
	if !s.TryBeginTurn() {
		t.Fatal("first TryBeginTurn should succeed")
	}
	if s.TryBeginTurn() {
		t.Fatal("second TryBeginTurn should fail while a turn is in flight")
	}
	if !s.TurnInFlight() {
		t.Error("TurnInFlight should report true")
	}
	s.EndTurn()
	if !s.TryBeginTurn() {
		t.Error("TryBeginTurn should succeed after EndTurn")
	}
}

func TestEndExactlyOnce(t *testing.T) {
	r := NewRegistry(10, 20, nil)
	s, _ := r.Create()
	if !s.End(StatusEnded) {
		t.Fatal("first End should report true")
	}
	if s.End(StatusError) {
		t.Error("second End should report false")
	}
	if s.Status() != StatusEnded {
		t.Errorf("second End must not overwrite terminal status, got %s", s.Status())
	}
	if s.Duration() <= 0 {
		t.Error("ended session should report a duration")
	}
}

func TestTerminalStatusSticky(t *testing.T) {
	r := NewRegistry(10, 20, nil)
	s, _ := r.Create()
	s.End(StatusError)
	s.SetStatus(StatusListening)
	if s.Status() != StatusError {
		t.Errorf("terminal status overwritten: %s", s.Status())
	}
}

func TestAttachSingleConnection(t *testing.T) {
	r := NewRegistry(10, 20, nil)
	s, _ := r.Create()
	if !s.Attach(func() {}) {
		t.Fatal("first Attach should succeed")
	}
	if s.Attach(func() {}) {
		t.Error("second Attach should fail")
	}
	s.Detach()
	if !s.Attach(func() {}) {
		t.Error("Attach after Detach should succeed")
	}
}

func TestEndCancelsAttachedConnection(t *testing.T) {
	r := NewRegistry(10, 20, nil)
	s, _ := r.Create()
	cancelled := false
	s.Attach(func() { cancelled = true })
	s.End(StatusEnded)
	if !cancelled {
		t.Error("End should invoke the attached cancel function")
	}
}

func TestDrain(t *testing.T) {
	r := NewRegistry(0, 20, nil)
	for i := 0; i < 5; i++ {
		r.Create()
	}
	drained := r.Drain()
	if len(drained) != 5 {
		t.Errorf("expected 5 drained sessions, got %d", len(drained))
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry after drain, got %d", r.Len())
	}
}

func TestReapIdle(t *testing.T) {
	r := NewRegistry(0, 20, nil)
	stale, _ := r.Create()
	fresh, _ := r.Create()

	// Backdate the stale session's activity.
	stale.mu.Lock()
	stale.lastActivity = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	reaped := r.ReapIdle(10 * time.Minute)
	if len(reaped) != 1 || reaped[0] != stale {
		t.Fatalf("expected only the stale session reaped, got %d", len(reaped))
	}
	if _, err := r.Get(fresh.ID); err != nil {
		t.Error("fresh session should survive reaping")
	}
	if _, err := r.Get(stale.ID); !errors.Is(err, ErrNotFound) {
		t.Error("stale session should be removed")
	}
	if stale.Status() != StatusEnded {
		t.Errorf("reaped session should be ended, got %s", stale.Status())
	}
}

func TestTeardownIdempotent(t *testing.T) {
	r := NewRegistry(10, 20, nil)
	s, _ := r.Create()
	r.Teardown(s, StatusEnded)
	r.Teardown(s, StatusError) // racing second teardown is a no-op
	if s.Status() != StatusEnded {
		t.Errorf("expected first teardown status to win, got %s", s.Status())
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}
