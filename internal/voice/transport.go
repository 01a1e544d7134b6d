// Package voice implements the per-call connection: frame intake, utterance
// accumulation, and the turn pipeline that sequences transcribe, respond,
// synthesize, and send for one session at a time.
package voice

import "context"

// ControlMessage is a JSON text frame sent alongside binary audio.
type ControlMessage struct {
	Type  string `json:"type"`            // "state", "greeting", "transcript", "emergency", "error"
	State string `json:"state,omitempty"` // session status as string
	Text  string `json:"text,omitempty"`  // transcript or greeting text
	Error string `json:"error,omitempty"` // error description
}

// Transport abstracts the bidirectional byte-stream channel for one call.
// The production implementation is a WebSocket; tests use an in-memory fake.
type Transport interface {
	// ReadPump reads inbound messages. Binary audio frames are pushed to
	// frames; text frames are passed to onControl. Blocks until ctx done,
	// the peer disconnects, or a read error. Calls cancel on exit.
	ReadPump(ctx context.Context, cancel context.CancelFunc, frames chan<- []byte, onControl func([]byte))

	// SendAudio sends one complete audio payload as a binary frame.
	// An empty payload is valid and must still be delivered.
	SendAudio(audio []byte) error

	// SendControl sends a JSON control message as a text frame.
	// Safe for concurrent use.
	SendControl(msg ControlMessage) error

	// KeepAlive runs the transport's liveness protocol until ctx is done.
	KeepAlive(ctx context.Context)

	// Close releases the underlying connection.
	Close() error
}
