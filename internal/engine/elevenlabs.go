package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Known ElevenLabs voice ids by friendly name.
var elevenLabsVoices = map[string]string{
	"rachel": "21m00Tcm4TlvDq8ikWAM",
	"domi":   "AZnzlk1XvdvUeBnXmlld",
	"bella":  "EXAVITQu4vr4xnSDxMaL",
	"antoni": "ErXwobaYiN019PkySvjV",
	"josh":   "TxGEqnHWrfWFTfGW9XjX",
	"adam":   "pNInz6obpgDQGcFmaJgB",
	"sam":    "yoZ06aMxZJJ28mfd3POQ",
}

// ElevenLabsSynthesizer produces reply audio through the ElevenLabs API.
// Returned audio is MP3; clients decode it on their side.
type ElevenLabsSynthesizer struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
}

// NewElevenLabsSynthesizer creates a synthesizer for the given voice, which
// may be a friendly name from the known set or a raw voice id.
func NewElevenLabsSynthesizer(apiKey, voice string) *ElevenLabsSynthesizer {
	voiceID := elevenLabsVoices["rachel"]
	if voice != "" {
		if id, ok := elevenLabsVoices[strings.ToLower(voice)]; ok {
			voiceID = id
		} else {
			voiceID = voice
		}
	}
	return &ElevenLabsSynthesizer{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: "https://api.elevenlabs.io",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Synthesize returns MP3 audio for the text. Empty text yields empty bytes
// without calling the backend.
func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	body, _ := json.Marshal(map[string]any{
		"text":     text,
		"model_id": "eleven_turbo_v2_5",
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/text-to-speech/"+s.voiceID, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs: HTTP %d: %s", resp.StatusCode, msg)
	}

	return io.ReadAll(resp.Body)
}
