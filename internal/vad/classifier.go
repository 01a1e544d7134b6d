package vad

import (
	"encoding/binary"
	"math"
)

// Classifier decides whether a single fixed-size PCM frame contains speech.
// Implementations are per-session and need not be safe for concurrent use.
type Classifier interface {
	// IsSpeech returns true if the given Int16LE PCM frame contains speech.
	IsSpeech(frame []byte) bool
	// Reset clears internal state (call between utterances).
	Reset()
}

// EnergyClassifier is a pure-Go speech classifier based on RMS energy with a
// self-calibrating noise floor. Aggressiveness 0-3 scales the trip level:
// higher values require louder audio to count as speech.
type EnergyClassifier struct {
	threshold   float64
	calibrated  bool
	calibFrames int
	calibSum    float64
}

// thresholds by aggressiveness; index 2 matches typical indoor speech at 16kHz.
var energyThresholds = [4]float64{0.008, 0.012, 0.015, 0.022}

// NewEnergyClassifier creates a classifier with the given aggressiveness (0-3).
// Out-of-range values are clamped.
func NewEnergyClassifier(aggressiveness int) *EnergyClassifier {
	if aggressiveness < 0 {
		aggressiveness = 0
	}
	if aggressiveness > 3 {
		aggressiveness = 3
	}
	return &EnergyClassifier{threshold: energyThresholds[aggressiveness]}
}

// IsSpeech returns true if the frame's energy exceeds the calibrated floor.
// The first 20 frames calibrate the ambient noise level (assumes the caller
// starts in silence) and always classify as non-speech.
func (c *EnergyClassifier) IsSpeech(frame []byte) bool {
	level := rms(decodePCM(frame))

	if !c.calibrated {
		c.calibFrames++
		c.calibSum += level
		if c.calibFrames >= 20 {
			floor := c.calibSum / float64(c.calibFrames) * 2.5
			if floor > c.threshold {
				c.threshold = floor
			}
			c.calibrated = true
		}
		return false
	}

	return level >= c.threshold
}

// Reset keeps the calibrated floor; only utterance-scoped state would clear
// here, and the energy classifier carries none.
func (c *EnergyClassifier) Reset() {}

// rms computes the root-mean-square of 16-bit PCM samples, normalized to [0, 1].
func rms(pcm []int16) float64 {
	if len(pcm) == 0 {
		return 0
	}
	var sum float64
	for _, s := range pcm {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(pcm)))
}

// decodePCM converts raw Int16LE bytes to an int16 slice.
func decodePCM(raw []byte) []int16 {
	n := len(raw) / 2
	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return pcm
}
