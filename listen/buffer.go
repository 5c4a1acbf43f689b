package listen

import "time"

// AudioBuffer accumulates one utterance. While no speech has been detected
// it only retains a short pre-roll so the first syllable is not clipped.
type AudioBuffer struct {
	samples    []float32
	preroll    int // samples kept by Trim
	sampleRate int
}

// NewAudioBuffer creates a new audio buffer.
func NewAudioBuffer(sampleRate int, preroll time.Duration) *AudioBuffer {
	return &AudioBuffer{
		samples:    make([]float32, 0, sampleRate*5),
		preroll:    int(preroll.Seconds() * float64(sampleRate)),
		sampleRate: sampleRate,
	}
}

// Append adds new audio samples to the buffer.
func (b *AudioBuffer) Append(samples []float32) {
	b.samples = append(b.samples, samples...)
}

// Trim drops everything but the pre-roll.
func (b *AudioBuffer) Trim() {
	if len(b.samples) <= b.preroll {
		return
	}
	n := copy(b.samples, b.samples[len(b.samples)-b.preroll:])
	b.samples = b.samples[:n]
}

// Extract returns a copy of all buffered samples and clears the buffer.
func (b *AudioBuffer) Extract() []float32 {
	if len(b.samples) == 0 {
		return nil
	}

	result := make([]float32, len(b.samples))
	copy(result, b.samples)
	b.samples = b.samples[:0]
	return result
}

// Clear empties the buffer completely.
func (b *AudioBuffer) Clear() {
	b.samples = b.samples[:0]
}

// Len returns the number of samples currently in the buffer.
func (b *AudioBuffer) Len() int {
	return len(b.samples)
}

// Duration returns the duration of buffered audio.
func (b *AudioBuffer) Duration() time.Duration {
	if len(b.samples) == 0 || b.sampleRate == 0 {
		return 0
	}
	return time.Duration(len(b.samples)) * time.Second / time.Duration(b.sampleRate)
}
