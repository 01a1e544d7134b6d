package engine

import (
	"context"
	"fmt"

	"github.com/voxloop/voxd/internal/session"
)

// EchoResponder replies by echoing the caller's last utterance. Placeholder
// until a real conversational backend is wired in.
type EchoResponder struct{}

// Respond returns an echo of the most recent user message in the history.
func (EchoResponder) Respond(ctx context.Context, history []session.Message) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			return fmt.Sprintf("You said: %s. How can I help further?", history[i].Content), nil
		}
	}
	return "How can I help you today?", nil
}

// NullTranscriber returns an empty transcription for any input. Used when no
// transcription backend is available so the server can still run.
type NullTranscriber struct {
	Language string
}

// Transcribe returns an empty-text result.
func (t NullTranscriber) Transcribe(ctx context.Context, audio []byte) (Transcription, error) {
	return Transcription{Language: t.Language}, nil
}

// NullSynthesizer yields empty audio for any text. Clients must handle empty
// reply payloads gracefully.
type NullSynthesizer struct{}

// Synthesize returns empty bytes.
func (NullSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	return nil, nil
}
