// Package vad implements per-frame voice activity detection and the
// utterance-boundary state machine used by the call pipeline.
package vad

// debounceFrames is how many consecutive speech frames are required before
// the detector commits to being in speech. Suppresses transient noise.
const debounceFrames = 3

// Detector tracks speech/silence runs across a frame stream and decides when
// an utterance has ended. It is owned by exactly one session and is not safe
// for concurrent use.
type Detector struct {
	classifier Classifier

	sampleRate int
	frameMs    int

	silenceThresholdFrames int
	minSpeechFrames        int

	consecutiveSilence int
	consecutiveSpeech  int
	inSpeech           bool
	speechStarted      bool
}

// Options configures a Detector.
type Options struct {
	SampleRate          int     // Hz (8000, 16000, 32000, 48000)
	FrameMs             int     // frame duration in milliseconds
	SilenceThresholdSec float64 // silence run that ends an utterance
	MinSpeechSec        float64 // minimum utterance length
}

// NewDetector creates a Detector with derived frame thresholds:
// frames = seconds * sampleRate / samplesPerFrame.
func NewDetector(classifier Classifier, opts Options) *Detector {
	if opts.SampleRate == 0 {
		opts.SampleRate = 16000
	}
	if opts.FrameMs == 0 {
		opts.FrameMs = 20
	}
	d := &Detector{
		classifier: classifier,
		sampleRate: opts.SampleRate,
		frameMs:    opts.FrameMs,
	}
	d.silenceThresholdFrames = d.FramesForDuration(opts.SilenceThresholdSec)
	d.minSpeechFrames = d.FramesForDuration(opts.MinSpeechSec)
	return d
}

// FramesForDuration returns the number of frames that span the given duration.
func (d *Detector) FramesForDuration(seconds float64) int {
	samplesPerFrame := d.sampleRate * d.frameMs / 1000
	return int(seconds * float64(d.sampleRate) / float64(samplesPerFrame))
}

// FrameBytes returns the expected frame size in bytes (16-bit mono PCM).
func (d *Detector) FrameBytes() int {
	return d.sampleRate * d.frameMs / 1000 * 2
}

// ProcessFrame classifies one frame and updates the speech/silence counters.
// Returns the per-frame classification. The caller is responsible for
// rejecting frames of the wrong length before calling.
func (d *Detector) ProcessFrame(frame []byte) bool {
	speech := d.classifier.IsSpeech(frame)
	d.Update(speech)
	return speech
}

// Update advances the counters for one classified frame. Exactly one of the
// two counters is reset to zero and the other incremented, so they are never
// simultaneously nonzero.
func (d *Detector) Update(speech bool) {
	if speech {
		d.consecutiveSilence = 0
		d.consecutiveSpeech++
		if !d.inSpeech && d.consecutiveSpeech > debounceFrames {
			d.inSpeech = true
			d.speechStarted = true
		}
	} else {
		d.consecutiveSilence++
		d.consecutiveSpeech = 0
	}
}

// HasSpeechEnded reports whether the current utterance is over: speech was
// confirmed and the silence run has exceeded the threshold. Once
// speechStarted latches, the minimum-speech check no longer gates the result,
// so short confirmed utterances still end validly.
func (d *Detector) HasSpeechEnded() bool {
	if d.inSpeech && d.consecutiveSilence > d.silenceThresholdFrames {
		if d.consecutiveSpeech > d.minSpeechFrames || d.speechStarted {
			return true
		}
	}
	return false
}

// InSpeech reports whether speech has been confirmed for the current utterance.
func (d *Detector) InSpeech() bool {
	return d.inSpeech
}

// Reset zeroes all counters and flags for the next utterance. Call exactly
// once per completed turn, after the utterance buffer has been taken.
func (d *Detector) Reset() {
	d.consecutiveSilence = 0
	d.consecutiveSpeech = 0
	d.inSpeech = false
	d.speechStarted = false
	d.classifier.Reset()
}

// SilenceThresholdFrames returns the derived end-of-speech silence run length.
func (d *Detector) SilenceThresholdFrames() int {
	return d.silenceThresholdFrames
}

// counters returns the raw counter values, for tests.
func (d *Detector) counters() (speech, silence int) {
	return d.consecutiveSpeech, d.consecutiveSilence
}
