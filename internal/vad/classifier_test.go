package vad

import (
	"encoding/binary"
	"math"
	"testing"
)

// sineFrame builds a 640-byte frame of a sine wave at the given amplitude.
func sineFrame(amplitude float64) []byte {
	const samples = 320
	frame := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*float64(i)/32))
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(v))
	}
	return frame
}

func calibrate(c *EnergyClassifier) {
	quiet := sineFrame(0.001)
	for i := 0; i < 20; i++ {
		c.IsSpeech(quiet)
	}
}

func TestEnergyClassifierCalibration(t *testing.T) {
	c := NewEnergyClassifier(2)
	quiet := sineFrame(0.001)
	// All calibration frames classify as non-speech, even loud ones.
	for i := 0; i < 19; i++ {
		if c.IsSpeech(quiet) {
			t.Fatalf("frame %d during calibration classified as speech", i)
		}
	}
	if c.IsSpeech(sineFrame(0.5)) {
		t.Error("final calibration frame should still classify as non-speech")
	}
}

func TestEnergyClassifierSpeechVsSilence(t *testing.T) {
	c := NewEnergyClassifier(2)
	calibrate(c)

	if c.IsSpeech(sineFrame(0.001)) {
		t.Error("near-silent frame classified as speech")
	}
	if !c.IsSpeech(sineFrame(0.5)) {
		t.Error("loud frame classified as silence")
	}
}

func TestEnergyClassifierAggressiveness(t *testing.T) {
	// A frame just above the lenient threshold but below the strict one.
	frame := sineFrame(0.014)

	lenient := NewEnergyClassifier(0)
	calibrate(lenient)
	strict := NewEnergyClassifier(3)
	calibrate(strict)

	if !lenient.IsSpeech(frame) {
		t.Error("aggressiveness 0 should accept a moderate frame")
	}
	if strict.IsSpeech(frame) {
		t.Error("aggressiveness 3 should reject a moderate frame")
	}
}

func TestEnergyClassifierClampsAggressiveness(t *testing.T) {
	low := NewEnergyClassifier(-1)
	high := NewEnergyClassifier(7)
	if low.threshold != energyThresholds[0] {
		t.Errorf("negative aggressiveness not clamped: %v", low.threshold)
	}
	if high.threshold != energyThresholds[3] {
		t.Errorf("excess aggressiveness not clamped: %v", high.threshold)
	}
}

func TestRMSEmptyFrame(t *testing.T) {
	if rms(nil) != 0 {
		t.Error("rms of empty frame should be 0")
	}
}
