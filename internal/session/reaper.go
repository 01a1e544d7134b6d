package session

import (
	"time"

	"github.com/voxloop/voxd/internal/logging"
)

// ReapIdle tears down every session that has gone longer than timeout
// without client activity, freeing its slot. Returns the sessions reaped.
// Ending an attached session cancels its connection loop, which runs the
// normal teardown path; reaping here covers sessions whose client went
// silent without disconnecting cleanly.
func (r *Registry) ReapIdle(timeout time.Duration) []*Session {
	if timeout <= 0 {
		return nil
	}

	r.mu.Lock()
	var idle []*Session
	for _, s := range r.sessions {
		if s.IdleFor() > timeout {
			idle = append(idle, s)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		logging.Warnf("session %s idle for %.0fs, reaping", s.ID, s.IdleFor().Seconds())
		r.Teardown(s, StatusEnded)
	}
	return idle
}
