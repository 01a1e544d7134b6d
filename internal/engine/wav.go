package engine

import (
	"bytes"
	"encoding/binary"
)

// encodeWAV wraps raw 16-bit mono PCM bytes in a RIFF/WAVE header so they
// can be handed to transcription backends that expect a file format.
func encodeWAV(pcm []byte, sampleRate int) []byte {
	var buf bytes.Buffer
	dataSize := uint32(len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))           // chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // PCM format
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}

// pcmDuration returns the length in seconds of raw 16-bit mono PCM audio.
func pcmDuration(pcm []byte, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(pcm)/2) / float64(sampleRate)
}
