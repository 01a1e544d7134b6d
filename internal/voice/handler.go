package voice

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/voxloop/voxd/internal/engine"
	"github.com/voxloop/voxd/internal/logging"
	"github.com/voxloop/voxd/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Calls are accepted from any origin; the session id is the
		// capability to join.
		return true
	},
}

// Deps holds what the call WebSocket handler needs.
type Deps struct {
	Registry *session.Registry
	Engines  engine.Engines
	Opts     Options
}

// Handler upgrades /ws/call/{sessionID} to a call WebSocket. Unknown session
// ids are closed with the distinct session-not-found code so clients can
// tell a stale id from a normal close.
func Handler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Errorf("ws upgrade failed: %v", err)
			return
		}

		sess, err := deps.Registry.Get(sessionID)
		if err != nil {
			closeWithReason(conn, CloseSessionNotFound, "session not found")
			return
		}

		if sess.Detector == nil {
			closeWithReason(conn, CloseSessionNotFound, "session not found")
			return
		}

		logging.Infof("session %s: call connected from %s", sessionID, r.RemoteAddr)
		c := NewConn(newWSTransport(conn), sess, deps.Registry, sess.Detector, deps.Engines, deps.Opts)
		c.Serve(r.Context())
	}
}
