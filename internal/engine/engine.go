// Package engine defines the external collaborator contracts consumed by the
// call pipeline (speech-to-text, text-to-speech, reply generation) and their
// concrete implementations. Providers are selected once at startup; the
// pipeline never branches on provider identity per call.
package engine

import (
	"context"

	"github.com/voxloop/voxd/internal/session"
)

// Transcription is the result of a speech-to-text call.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Duration   float64 `json:"duration"` // seconds of audio
}

// Transcriber converts utterance audio (raw 16-bit mono PCM) to text.
// Implementations return an error for diagnostics; the caller treats any
// error as an empty-text result and keeps the session alive.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (Transcription, error)
}

// Synthesizer converts reply text to audio bytes. Empty input text yields
// empty bytes without invoking the backend. Errors are diagnostic only; the
// caller sends an empty payload on failure rather than failing the turn.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Responder produces the assistant reply from the conversation history.
// Pure with respect to the history input; deterministic output not required.
type Responder interface {
	Respond(ctx context.Context, history []session.Message) (string, error)
}

// Engines bundles the collaborators handed to the call pipeline.
type Engines struct {
	Transcriber Transcriber
	Synthesizer Synthesizer
	Responder   Responder
}
