package engine

import (
	"os"
	"path/filepath"

	"github.com/voxloop/voxd/internal/config"
	"github.com/voxloop/voxd/internal/logging"
)

const receptionistPrompt = "You are a friendly medical clinic receptionist on a phone call. " +
	"Answer briefly and clearly; the reply will be spoken aloud."

// Build selects the collaborator implementations from configuration and
// available credentials. The fallback chain is walked once here, at startup;
// callers never see a provider change mid-call.
func Build(cfg config.Config) Engines {
	return Engines{
		Transcriber: buildTranscriber(cfg),
		Synthesizer: buildSynthesizer(cfg),
		Responder:   buildResponder(cfg),
	}
}

func buildTranscriber(cfg config.Config) Transcriber {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	sampleRate := cfg.Audio.SampleRate
	lang := cfg.Engines.Language

	switch cfg.Engines.Transcriber {
	case "openai":
		if openaiKey != "" {
			logging.Infof("transcriber: openai whisper API")
			return NewOpenAITranscriber(openaiKey, sampleRate, lang)
		}
		logging.Warn("transcriber: OPENAI_API_KEY not set, trying whisper-cli")
		fallthrough
	case "whisper-cli":
		t := NewWhisperCLITranscriber(whisperModelPath(), sampleRate, lang)
		if t.Available() {
			logging.Infof("transcriber: local whisper-cli")
			return t
		}
		logging.Warn("transcriber: whisper-cli or model not found, transcription disabled")
	}
	return NullTranscriber{Language: lang}
}

func buildSynthesizer(cfg config.Config) Synthesizer {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	elevenKey := os.Getenv("ELEVENLABS_API_KEY")

	switch cfg.Engines.Synthesizer {
	case "openai":
		if openaiKey != "" {
			logging.Infof("synthesizer: openai tts (voice %s)", cfg.Engines.Voice)
			return NewOpenAISynthesizer(openaiKey, cfg.Engines.Voice)
		}
		logging.Warn("synthesizer: OPENAI_API_KEY not set, trying elevenlabs")
		fallthrough
	case "elevenlabs":
		if elevenKey != "" {
			logging.Infof("synthesizer: elevenlabs (voice %s)", cfg.Engines.Voice)
			return NewElevenLabsSynthesizer(elevenKey, cfg.Engines.Voice)
		}
		logging.Warn("synthesizer: ELEVENLABS_API_KEY not set, synthesis disabled")
	}
	return NullSynthesizer{}
}

func buildResponder(cfg config.Config) Responder {
	openaiKey := os.Getenv("OPENAI_API_KEY")

	if cfg.Engines.Responder == "openai" {
		if openaiKey != "" {
			logging.Infof("responder: openai chat (%s)", cfg.Engines.Model)
			return NewOpenAIResponder(openaiKey, cfg.Engines.Model, receptionistPrompt)
		}
		logging.Warn("responder: OPENAI_API_KEY not set, using echo responder")
	}
	return EchoResponder{}
}

// whisperModelPath returns the expected location of the local ggml model.
func whisperModelPath() string {
	if p := os.Getenv("WHISPER_MODEL_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voxd", "models", "ggml-base.en.bin")
}
