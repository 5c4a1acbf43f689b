package listen

import (
	"math"
	"time"
)

// VADConfig holds the voice activity thresholds.
type VADConfig struct {
	Threshold float32       // RMS threshold for speech detection
	MinSpeech time.Duration // Minimum speech duration for an utterance
	MaxSpeech time.Duration // Utterance is cut at this length
	Silence   time.Duration // Trailing silence that ends an utterance
}

// DefaultVADConfig returns thresholds tuned for short spoken commands.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		Threshold: 0.02,
		MinSpeech: 300 * time.Millisecond,
		MaxSpeech: 10 * time.Second,
		Silence:   700 * time.Millisecond,
	}
}

// VAD (Voice Activity Detector) detects speech in an audio stream. Time is
// measured in samples, so results do not depend on how fast audio arrives.
type VAD struct {
	cfg        VADConfig
	sampleRate int

	// State, in samples since Reset
	pos         int
	inSpeech    bool
	speechStart int
	lastSpeech  int
}

// NewVAD creates a new voice activity detector.
func NewVAD(cfg VADConfig, sampleRate int) *VAD {
	return &VAD{cfg: cfg, sampleRate: sampleRate}
}

// SpeechEvent represents the type of speech event.
type SpeechEvent int

const (
	SpeechNone        SpeechEvent = iota // No event
	SpeechStart                          // Speech began in this chunk
	SpeechContinue                       // Speech still going
	SpeechEnd                            // Trailing silence ended the utterance
	SpeechMaxDuration                    // Utterance exceeded MaxSpeech
)

// VADResult contains the result of processing audio samples.
type VADResult struct {
	Event    SpeechEvent
	Complete bool          // The utterance is ready for transcription
	Duration time.Duration // Utterance length, set when Complete
}

// Process processes one chunk of audio samples.
func (v *VAD) Process(samples []float32) VADResult {
	v.pos += len(samples)

	var result VADResult
	if calculateRMS(samples) > v.cfg.Threshold {
		if !v.inSpeech {
			v.inSpeech = true
			v.speechStart = v.pos - len(samples)
			result.Event = SpeechStart
		} else {
			result.Event = SpeechContinue
		}
		v.lastSpeech = v.pos
	}

	if !v.inSpeech {
		return result
	}

	voiced := v.duration(v.lastSpeech - v.speechStart)
	total := v.duration(v.pos - v.speechStart)
	silence := v.duration(v.pos - v.lastSpeech)

	switch {
	case silence >= v.cfg.Silence && voiced >= v.cfg.MinSpeech:
		result.Event = SpeechEnd
	case total >= v.cfg.MaxSpeech:
		result.Event = SpeechMaxDuration
	case silence >= v.cfg.Silence:
		// Too short to be a command; treat it as a click or cough.
		v.inSpeech = false
		result.Event = SpeechNone
		return result
	default:
		return result
	}

	v.inSpeech = false
	result.Complete = true
	result.Duration = total
	return result
}

// Reset resets the VAD state.
func (v *VAD) Reset() {
	v.pos = 0
	v.inSpeech = false
	v.speechStart = 0
	v.lastSpeech = 0
}

// InSpeech returns true if currently in a speech segment.
func (v *VAD) InSpeech() bool {
	return v.inSpeech
}

// Elapsed returns how much audio has been processed since Reset.
func (v *VAD) Elapsed() time.Duration {
	return v.duration(v.pos)
}

func (v *VAD) duration(samples int) time.Duration {
	if v.sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(v.sampleRate)
}

// calculateRMS calculates the root mean square of audio samples.
func calculateRMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
