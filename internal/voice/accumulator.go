package voice

// Accumulator buffers the frames of the in-progress utterance. Append-only
// until the utterance is finalized, then the contents are moved out in one
// Take call and the buffer starts fresh.
type Accumulator struct {
	frames [][]byte
	size   int
}

// Append adds one frame to the current utterance.
func (a *Accumulator) Append(frame []byte) {
	a.frames = append(a.frames, frame)
	a.size += len(frame)
}

// Take concatenates the buffered frames into a single audio blob and clears
// the buffer. Returns nil if nothing was buffered.
func (a *Accumulator) Take() []byte {
	if a.size == 0 {
		a.frames = nil
		return nil
	}
	out := make([]byte, 0, a.size)
	for _, f := range a.frames {
		out = append(out, f...)
	}
	a.frames = nil
	a.size = 0
	return out
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return a.size
}
