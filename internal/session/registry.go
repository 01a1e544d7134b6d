package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/voxloop/voxd/internal/logging"
	"github.com/voxloop/voxd/internal/vad"
)

var (
	// ErrNotFound is returned when a session id is not in the registry.
	ErrNotFound = errors.New("session not found")
	// ErrCapacityExceeded is returned when the concurrent-session cap is hit.
	ErrCapacityExceeded = errors.New("maximum concurrent sessions reached")
)

// Registry is the process-wide table of active call sessions. A single mutex
// guards the table; it is held only for map operations, never during
// pipeline work.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	limit       int
	historyCap  int
	newDetector func() *vad.Detector
}

// NewRegistry creates a registry enforcing the given concurrent-session
// limit and per-session history cap. newDetector builds the VAD state owned
// by each created session; nil leaves Detector unset (tests).
func NewRegistry(limit, historyCap int, newDetector func() *vad.Detector) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		limit:       limit,
		historyCap:  historyCap,
		newDetector: newDetector,
	}
}

// Create allocates a new session with a generated id and its own VAD state.
// Returns ErrCapacityExceeded when the table is full.
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.sessions) >= r.limit {
		return nil, ErrCapacityExceeded
	}
	s := newSession(uuid.New().String(), r.historyCap)
	if r.newDetector != nil {
		s.Detector = r.newDetector()
	}
	r.sessions[s.ID] = s
	return s, nil
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove deletes a session from the table. Removing an absent id is a no-op:
// disconnect and explicit end-call can race to tear down the same session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Drain removes every session and returns them for teardown. Used at
// shutdown; the snapshot is taken under the lock so it cannot race with
// Create or Remove.
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}

// Teardown ends a session with the given status, removes it from the table,
// and logs the final call stats. Safe to call from any exit path; only the
// first caller's status wins.
func (r *Registry) Teardown(s *Session, status Status) {
	if s.End(status) {
		logging.Infof("session %s ended: status=%s duration=%.2fs messages=%d",
			s.ID, status, s.Duration().Seconds(), s.MessageCount())
	}
	r.Remove(s.ID)
}
