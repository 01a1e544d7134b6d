package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// WhisperCLITranscriber shells out to a local whisper-cli binary. Used when
// no API credentials are configured but a local model is installed.
type WhisperCLITranscriber struct {
	binary     string
	modelPath  string
	sampleRate int
	language   string
}

// NewWhisperCLITranscriber creates a transcriber using the whisper-cli
// binary on PATH and the given ggml model file.
func NewWhisperCLITranscriber(modelPath string, sampleRate int, language string) *WhisperCLITranscriber {
	return &WhisperCLITranscriber{
		binary:     "whisper-cli",
		modelPath:  modelPath,
		sampleRate: sampleRate,
		language:   language,
	}
}

// Available reports whether the binary and model file are both present.
func (t *WhisperCLITranscriber) Available() bool {
	if _, err := exec.LookPath(t.binary); err != nil {
		return false
	}
	if t.modelPath == "" {
		return false
	}
	_, err := os.Stat(t.modelPath)
	return err == nil
}

// Transcribe writes the PCM audio to a temp WAV file and runs whisper-cli
// over it.
func (t *WhisperCLITranscriber) Transcribe(ctx context.Context, audio []byte) (Transcription, error) {
	if len(audio) == 0 {
		return Transcription{Language: t.language}, nil
	}

	tmp, err := os.CreateTemp("", "voxd-asr-*.wav")
	if err != nil {
		return Transcription{}, fmt.Errorf("create temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(encodeWAV(audio, t.sampleRate)); err != nil {
		tmp.Close()
		return Transcription{}, fmt.Errorf("write temp wav: %w", err)
	}
	tmp.Close()

	args := []string{"-m", t.modelPath, "-f", tmpPath, "-nt", "-np"}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}
	out, err := exec.CommandContext(ctx, t.binary, args...).Output()
	if err != nil {
		return Transcription{Language: t.language}, fmt.Errorf("whisper-cli: %w", err)
	}

	text := strings.TrimSpace(string(out))
	// whisper emits these markers for non-speech input
	if text == "[BLANK_AUDIO]" || text == "(silence)" {
		text = ""
	}

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
