// Package session holds the per-call session record and the process-wide
// registry of active calls.
package session

import (
	"sync"
	"time"

	"github.com/voxloop/voxd/internal/vad"
)

// Status is the lifecycle state of a call session.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusListening  Status = "listening"
	StatusProcessing Status = "processing"
	StatusSpeaking   Status = "speaking"
	StatusEnded      Status = "ended"
	StatusError      Status = "error"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in the conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the record for one active call. All mutation goes through the
// owning connection's turn pipeline and the registry teardown path; other
// components read via the accessor methods.
type Session struct {
	ID        string
	StartTime time.Time

	// Detector is the VAD state owned exclusively by this session. Created
	// with the session, released with it.
	Detector *vad.Detector

	mu           sync.Mutex
	status       Status
	endTime      time.Time
	messageCount int
	history      []Message
	historyCap   int
	lastActivity time.Time
	cancel       func()
	attached     bool

	busyMu sync.Mutex
	busy   bool
}

func newSession(id string, historyCap int) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		StartTime:    now,
		status:       StatusInitiated,
		historyCap:   historyCap,
		lastActivity: now,
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus updates the lifecycle state. Terminal states are sticky: once a
// session is ended or errored it stays that way.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusEnded || s.status == StatusError {
		return
	}
	s.status = status
}

// AppendMessage adds a message to the conversation history, evicting the
// oldest entry when the cap is reached.
func (s *Session) AppendMessage(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Message{Role: role, Content: content, Timestamp: time.Now()})
	if s.historyCap > 0 && len(s.history) > s.historyCap {
		s.history = s.history[len(s.history)-s.historyCap:]
	}
}

// History returns a copy of the conversation history.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// IncrementMessageCount bumps the completed-turn counter.
func (s *Session) IncrementMessageCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageCount++
}

// MessageCount returns the number of completed turns.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}

// Touch records client activity for idle-timeout accounting.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// IdleFor returns how long the session has been without client activity.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// TryBeginTurn sets the pipeline busy flag. Returns false if a turn is
// already in flight; at most one turn may run per session.
func (s *Session) TryBeginTurn() bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// EndTurn clears the pipeline busy flag. Only the turn orchestrator that set
// it may call this.
func (s *Session) EndTurn() {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	s.busy = false
}

// TurnInFlight reports whether a turn pipeline is currently running.
func (s *Session) TurnInFlight() bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	return s.busy
}

// Attach registers the owning connection's cancel function so teardown paths
// (idle reaper, shutdown) can stop the session loop. Returns false if a
// connection is already attached.
func (s *Session) Attach(cancel func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return false
	}
	s.attached = true
	s.cancel = cancel
	return true
}

// Detach clears the connection binding.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	s.cancel = nil
}

// End marks the session terminal with the given status and records the end
// time. Returns true only on the first call, so teardown side effects run
// exactly once even when disconnect and explicit end-call race.
func (s *Session) End(status Status) bool {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	first := s.status != StatusEnded && s.status != StatusError
	if first {
		s.status = status
		s.endTime = time.Now()
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return first
}

// Duration returns the call length. Zero until the session has ended.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endTime.IsZero() {
		return 0
	}
	return s.endTime.Sub(s.StartTime)
}
