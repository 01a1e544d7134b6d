package voice

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/voxloop/voxd/internal/engine"
	"github.com/voxloop/voxd/internal/logging"
	"github.com/voxloop/voxd/internal/session"
	"github.com/voxloop/voxd/internal/vad"
)

// Options configures a call connection.
type Options struct {
	FrameBytes        int           // expected inbound frame size; smaller frames are discarded
	Language          string        // language hint passed to synthesis
	Greeting          string        // spoken when the call connects; empty disables
	EmergencyKeywords []string      // transcripts containing any of these raise an emergency control frame
	TurnTimeout       time.Duration // bound on one transcribe/respond/synthesize cycle
}

// Conn drives one call: it owns the session's VAD state and utterance
// buffer and runs the turn pipeline. All frame processing happens on the
// Serve goroutine, so frames are handled strictly in arrival order and no
// two turns of the same session can overlap.
type Conn struct {
	transport Transport
	sess      *session.Session
	registry  *session.Registry
	detector  *vad.Detector
	engines   engine.Engines
	opts      Options

	acc Accumulator
}

// NewConn creates a connection for the given session. The detector comes
// from the registry entry created at call start.
func NewConn(transport Transport, sess *session.Session, registry *session.Registry, detector *vad.Detector, engines engine.Engines, opts Options) *Conn {
	if opts.TurnTimeout == 0 {
		opts.TurnTimeout = 30 * time.Second
	}
	if opts.FrameBytes == 0 {
		opts.FrameBytes = detector.FrameBytes()
	}
	return &Conn{
		transport: transport,
		sess:      sess,
		registry:  registry,
		detector:  detector,
		engines:   engines,
		opts:      opts,
	}
}

// Serve runs the call loop until disconnect, end-call, or an unrecoverable
// pipeline error. Teardown is unconditional: whatever path exits the loop,
// the session is ended, removed from the registry, and its resources
// released exactly once.
func (c *Conn) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Bind to the session so end-call, idle reaping, and shutdown can stop
	// this loop. A session carries at most one connection.
	if !c.sess.Attach(cancel) {
		logging.Warnf("session %s: already has an active connection", c.sess.ID)
		c.transport.SendControl(ControlMessage{Type: "error", Error: "session already connected"})
		c.transport.Close()
		return
	}

	exitStatus := session.StatusEnded
	defer func() {
		c.sess.Detach()
		c.registry.Teardown(c.sess, exitStatus)
		c.transport.Close()
	}()

	frames := make(chan []byte, 100)
	go c.transport.ReadPump(ctx, cancel, frames, c.handleControl)
	go c.transport.KeepAlive(ctx)

	c.greet(ctx)
	c.setStatus(session.StatusListening)

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			c.sess.Touch()

			// Partial or garbage network chunk: skip, not fatal.
			if len(frame) < c.opts.FrameBytes {
				continue
			}

			c.detector.ProcessFrame(frame)
			c.acc.Append(frame)

			if !c.detector.HasSpeechEnded() {
				continue
			}

			// Atomically move the utterance out and re-arm the VAD.
			audio := c.acc.Take()
			c.detector.Reset()
			if len(audio) == 0 {
				continue
			}

			if err := c.runTurn(ctx, audio); err != nil {
				logging.Errorf("session %s: turn pipeline failed: %v", c.sess.ID, err)
				c.transport.SendControl(ControlMessage{Type: "error", Error: err.Error()})
				exitStatus = session.StatusError
				return
			}
		}
	}
}

// greet synthesizes and sends the configured greeting as the first outbound
// payload, so the caller hears the agent before speaking.
func (c *Conn) greet(ctx context.Context) {
	if c.opts.Greeting == "" {
		return
	}
	c.transport.SendControl(ControlMessage{Type: "greeting", Text: c.opts.Greeting})

	tctx, cancel := context.WithTimeout(ctx, c.opts.TurnTimeout)
	defer cancel()
	audio, err := c.engines.Synthesizer.Synthesize(tctx, c.opts.Greeting, c.opts.Language)
	if err != nil {
		logging.Warnf("session %s: greeting synthesis failed: %v", c.sess.ID, err)
		return
	}
	if err := c.transport.SendAudio(audio); err != nil {
		logging.Warnf("session %s: greeting send failed: %v", c.sess.ID, err)
	}
}

// runTurn executes one transcribe → respond → synthesize → send cycle for a
// finalized utterance. Returns an error only for session-fatal failures;
// empty transcriptions and synthesis failures keep the session alive.
func (c *Conn) runTurn(ctx context.Context, audio []byte) error {
	if !c.sess.TryBeginTurn() {
		// The serve loop is the only turn initiator, so this indicates a
		// teardown race; drop the utterance rather than interleave turns.
		logging.Warnf("session %s: turn already in flight, dropping utterance", c.sess.ID)
		return nil
	}
	defer c.sess.EndTurn()

	c.setStatus(session.StatusProcessing)

	tctx, cancel := context.WithTimeout(ctx, c.opts.TurnTimeout)
	defer cancel()

	result, err := c.engines.Transcriber.Transcribe(tctx, audio)
	if err != nil {
		// Transcription failures yield an empty-text result by contract.
		logging.Warnf("session %s: transcription failed: %v", c.sess.ID, err)
		result.Text = ""
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		// False-positive end-of-speech; no reply, no history entry.
		logging.Debugf("session %s: empty transcription, skipping turn", c.sess.ID)
		c.setStatus(session.StatusListening)
		return nil
	}

	logging.Infof("session %s user: %s", c.sess.ID, text)
	c.transport.SendControl(ControlMessage{Type: "transcript", Text: text})
	c.checkEmergency(text)

	c.sess.AppendMessage(session.RoleUser, text)
	c.sess.IncrementMessageCount()

	reply, err := c.engines.Responder.Respond(tctx, c.sess.History())
	if err != nil {
		return err
	}

	c.setStatus(session.StatusSpeaking)

	replyAudio, err := c.engines.Synthesizer.Synthesize(tctx, reply, c.opts.Language)
	if err != nil {
		// Synthesis failures degrade to an empty payload; the turn completes.
		logging.Warnf("session %s: synthesis failed: %v", c.sess.ID, err)
		replyAudio = nil
	}

	c.sess.AppendMessage(session.RoleAssistant, reply)
	logging.Infof("session %s assistant: %s", c.sess.ID, reply)

	if err := c.transport.SendAudio(replyAudio); err != nil {
		return err
	}

	c.setStatus(session.StatusListening)
	return nil
}

// checkEmergency scans the transcript for configured emergency keywords and
// raises a control frame so the client can escalate.
func (c *Conn) checkEmergency(text string) {
	lower := strings.ToLower(text)
	for _, kw := range c.opts.EmergencyKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			logging.Warnf("session %s: emergency keyword %q detected", c.sess.ID, kw)
			c.transport.SendControl(ControlMessage{Type: "emergency", Text: kw})
			return
		}
	}
}

// setStatus updates the session state and notifies the client.
func (c *Conn) setStatus(status session.Status) {
	c.sess.SetStatus(status)
	c.transport.SendControl(ControlMessage{Type: "state", State: string(status)})
}

// handleControl processes inbound JSON control frames. Unknown or malformed
// frames are ignored.
func (c *Conn) handleControl(data []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	switch msg.Type {
	case "end":
		// Explicit in-band end-call; the read pump's cancel tears us down.
		logging.Infof("session %s: client requested end", c.sess.ID)
		c.sess.End(session.StatusEnded)
	}
}
