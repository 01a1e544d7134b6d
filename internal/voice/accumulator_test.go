package voice

import (
	"bytes"
	"testing"
)

func TestAccumulatorTakeConcatenates(t *testing.T) {
	var a Accumulator
	a.Append([]byte{1, 2})
	a.Append([]byte{3})
	a.Append([]byte{4, 5, 6})

	if a.Len() != 6 {
		t.Fatalf("Len = %d, want 6", a.Len())
	}
	got := a.Take()
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("Take = %v", got)
	}
	if a.Len() != 0 {
		t.Fatalf("Len after Take = %d, want 0", a.Len())
	}
}

func TestAccumulatorTakeEmpty(t *testing.T) {
	var a Accumulator
	if got := a.Take(); got != nil {
		t.Fatalf("Take on empty = %v, want nil", got)
	}
}

func TestAccumulatorReusableAfterTake(t *testing.T) {
	var a Accumulator
	a.Append([]byte{9})
	a.Take()
	a.Append([]byte{1, 1})
	if got := a.Take(); !bytes.Equal(got, []byte{1, 1}) {
		t.Fatalf("Take after reuse = %v", got)
	}
}
