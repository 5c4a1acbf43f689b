// Package stt provides the speech-to-text provider interface and its
// implementations.
package stt

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnauthorized means the provider rejected our credentials.
	ErrUnauthorized = errors.New("stt: unauthorized")

	// ErrNetwork means the provider could not be reached.
	ErrNetwork = errors.New("stt: network failure")

	// ErrNotReady means the provider is missing configuration.
	ErrNotReady = errors.New("stt: provider not ready")
)

// TranscribeResult represents the result of a transcription.
type TranscribeResult struct {
	Text     string    `json:"text"`
	Language string    `json:"language"` // Detected language code
	Segments []Segment `json:"segments"` // Time-stamped segments, when available
}

// Segment represents a time-stamped audio segment.
type Segment struct {
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Provider defines the interface for speech-to-text providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// IsReady returns true if the provider can transcribe.
	IsReady() bool

	// Transcribe converts audio samples to text.
	// audio: PCM float32 samples at SampleRate
	// language: ISO-639-1 code, empty for auto-detect
	Transcribe(ctx context.Context, audio []float32, language string) (*TranscribeResult, error)

	// Close releases resources held by the provider.
	Close() error
}

// SampleRate is the PCM rate every provider expects.
const SampleRate = 16000
