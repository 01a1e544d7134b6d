// Package config loads the voxd server configuration from a YAML file with
// environment variable expansion, plus an optional .env file for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Audio struct {
		SampleRate int `yaml:"sampleRate"` // Hz, default 16000
		FrameMs    int `yaml:"frameMs"`    // frame duration, default 20
	} `yaml:"audio"`

	VAD struct {
		SilenceThresholdSec float64 `yaml:"silenceThresholdSec"` // silence before end-of-speech
		MinSpeechSec        float64 `yaml:"minSpeechSec"`        // minimum valid utterance length
		Aggressiveness      int     `yaml:"aggressiveness"`      // 0-3, higher trips less often
	} `yaml:"vad"`

	Session struct {
		MaxConcurrent  int `yaml:"maxConcurrent"`  // reject call starts past this
		HistorySize    int `yaml:"historySize"`    // conversation history cap (FIFO)
		IdleTimeoutSec int `yaml:"idleTimeoutSec"` // reap sessions silent this long
	} `yaml:"session"`

	Engines struct {
		Transcriber string `yaml:"transcriber"` // openai | whisper-cli | none
		Synthesizer string `yaml:"synthesizer"` // openai | elevenlabs | none
		Responder   string `yaml:"responder"`   // openai | echo
		Model       string `yaml:"model"`       // responder chat model
		Voice       string `yaml:"voice"`       // synthesizer voice name
		Language    string `yaml:"language"`    // transcription language hint
	} `yaml:"engines"`

	Catalog struct {
		DBPath string `yaml:"dbPath"`
	} `yaml:"catalog"`

	Greeting          string   `yaml:"greeting"`
	EmergencyKeywords []string `yaml:"emergencyKeywords"`
}

// Load reads the config file at path, expanding ${VAR} references from the
// environment. A missing file yields the defaults.
func Load(path string) (Config, error) {
	// Secrets like OPENAI_API_KEY live in .env during development.
	godotenv.Load()

	c := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("read config: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML config bytes with environment variable expansion.
func LoadFromBytes(data []byte) (Config, error) {
	c := Defaults()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Defaults returns the configuration used when no file or key is present.
func Defaults() Config {
	var c Config
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Audio.SampleRate = 16000
	c.Audio.FrameMs = 20
	c.VAD.SilenceThresholdSec = 1.5
	c.VAD.MinSpeechSec = 0.5
	c.VAD.Aggressiveness = 2
	c.Session.MaxConcurrent = 10
	c.Session.HistorySize = 20
	c.Session.IdleTimeoutSec = 600
	c.Engines.Transcriber = "openai"
	c.Engines.Synthesizer = "openai"
	c.Engines.Responder = "echo"
	c.Engines.Model = "gpt-4o-mini"
	c.Engines.Voice = "alloy"
	c.Engines.Language = "en"
	c.Catalog.DBPath = "./data/voxd.db"
	c.Greeting = "Good afternoon, welcome to Central Medical Clinic. How can I help you today?"
	c.EmergencyKeywords = []string{
		"chest pain",
		"difficulty breathing",
		"severe bleeding",
		"loss of consciousness",
		"allergic reaction",
		"emergency",
		"911",
		"ambulance",
	}
	return c
}

// Validate rejects configurations the audio pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Audio.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("config: unsupported sample rate %d", c.Audio.SampleRate)
	}
	switch c.Audio.FrameMs {
	case 10, 20, 30:
	default:
		return fmt.Errorf("config: unsupported frame duration %dms", c.Audio.FrameMs)
	}
	if c.VAD.Aggressiveness < 0 || c.VAD.Aggressiveness > 3 {
		return fmt.Errorf("config: vad aggressiveness must be 0-3, got %d", c.VAD.Aggressiveness)
	}
	if c.Session.MaxConcurrent < 1 {
		return fmt.Errorf("config: maxConcurrent must be at least 1")
	}
	if c.Session.HistorySize < 1 {
		return fmt.Errorf("config: historySize must be at least 1")
	}
	return nil
}

// FrameBytes returns the expected size of one inbound PCM frame:
// frameMs * sampleRate / 1000 samples, two bytes each (16-bit mono).
func (c Config) FrameBytes() int {
	return c.Audio.FrameMs * c.Audio.SampleRate / 1000 * 2
}

// IdleTimeout returns the session idle timeout as a duration.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutSec) * time.Second
}
