package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultWhisperModel is used when no model is configured.
const DefaultWhisperModel = "whisper-1"

// WhisperAPI implements Provider with the OpenAI audio transcription API.
type WhisperAPI struct {
	client openai.Client
	model  string
	ready  bool
}

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey     string
	BaseURL    string // Optional, for OpenAI-compatible servers
	Model      string // Optional, defaults to DefaultWhisperModel
	HTTPClient *http.Client
}

// NewWhisperAPI creates a new WhisperAPI provider.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultWhisperModel
	}

	return &WhisperAPI{
		client: openai.NewClient(opts...),
		model:  model,
		ready:  cfg.APIKey != "",
	}
}

func (w *WhisperAPI) Name() string  { return "whisper-api" }
func (w *WhisperAPI) IsReady() bool { return w.ready }
func (w *WhisperAPI) Close() error  { return nil }

// Transcribe uploads audio as a WAV file and returns the recognized text.
func (w *WhisperAPI) Transcribe(ctx context.Context, audio []float32, language string) (*TranscribeResult, error) {
	if !w.ready {
		return nil, fmt.Errorf("whisper api: %w: API key required", ErrNotReady)
	}

	wav := encodeWAV(audio, SampleRate)
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model: openai.AudioModel(w.model),
	}
	// The API rejects "auto"; leaving the field out means auto-detect.
	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	return &TranscribeResult{
		Text:     strings.TrimSpace(resp.Text),
		Language: language,
	}, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("transcribe: %w: %v", ErrUnauthorized, err)
		}
		return fmt.Errorf("transcribe: %w", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("transcribe: %w: %v", ErrNetwork, err)
	}
	return fmt.Errorf("transcribe: %w", err)
}

// encodeWAV wraps float32 samples in [-1, 1] as a 16-bit mono PCM WAV file.
func encodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	header := struct {
		Riff          [4]byte
		ChunkSize     uint32
		Wave          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		Riff:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + dataSize),
		Wave:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		Channels:      1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(dataSize),
	}
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, header)

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = int16(max(-1, min(1, s)) * 32767)
	}
	_ = binary.Write(buf, binary.LittleEndian, pcm)

	return buf.Bytes()
}
