package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxloop/voxd/internal/session"
)

// OpenAITranscriber transcribes utterance audio through the Whisper API.
type OpenAITranscriber struct {
	client     openai.Client
	sampleRate int
	language   string
}

// NewOpenAITranscriber creates a Whisper-API transcriber for 16-bit mono PCM
// at the given sample rate.
func NewOpenAITranscriber(apiKey string, sampleRate int, language string) *OpenAITranscriber {
	return &OpenAITranscriber{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		sampleRate: sampleRate,
		language:   language,
	}
}

// Transcribe sends the PCM audio as a WAV upload and returns the result.
// Whisper does not report per-call confidence; it is 1 for non-empty text.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte) (Transcription, error) {
	if len(audio) == 0 {
		return Transcription{Language: t.language}, nil
	}

	wav := encodeWAV(audio, t.sampleRate)
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: openai.AudioModelWhisper1,
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Transcription{Language: t.language}, fmt.Errorf("whisper transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	result := Transcription{
		Text:     text,
		Language: t.language,
		Duration: pcmDuration(audio, t.sampleRate),
	}
	if text != "" {
		result.Confidence = 1
	}
	return result, nil
}

// OpenAISynthesizer produces reply audio through the OpenAI speech API.
type OpenAISynthesizer struct {
	client openai.Client
	voice  string
}

// NewOpenAISynthesizer creates a speech synthesizer using the given voice
// (alloy, echo, fable, onyx, nova, shimmer).
func NewOpenAISynthesizer(apiKey, voice string) *OpenAISynthesizer {
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAISynthesizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		voice:  voice,
	}
}

// Synthesize returns raw PCM audio for the text. Empty text yields empty
// bytes without calling the backend.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return audio, nil
}

// OpenAIResponder generates replies with a chat model over the conversation
// history.
type OpenAIResponder struct {
	client openai.Client
	model  string
	system string
}

// NewOpenAIResponder creates a chat-based responder. The system prompt frames
// the assistant as a clinic receptionist.
func NewOpenAIResponder(apiKey, model, systemPrompt string) *OpenAIResponder {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIResponder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		system: systemPrompt,
	}
}

// Respond maps the conversation history onto chat messages and returns the
// model's reply text.
func (r *OpenAIResponder) Respond(ctx context.Context, history []session.Message) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if r.system != "" {
		messages = append(messages, openai.SystemMessage(r.system))
	}
	for _, m := range history {
		switch m.Role {
		case session.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case session.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case session.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		}
	}

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
