// Package listen implements the speech-capture engine: a recorder process
// feeds a voice activity detector, and each completed utterance is sent to a
// speech-to-text provider.
package listen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"go.aimuz.me/labvoz/audiocapture"
	"go.aimuz.me/labvoz/internal/types"
	"go.aimuz.me/labvoz/recognition"
	"go.aimuz.me/labvoz/stt"
)

// ErrBusy is returned by Start while a run is still active.
var ErrBusy = errors.New("listen: engine already running")

// errNoAudio means the recorder exited without producing any samples.
var errNoAudio = errors.New("recorder produced no audio")

// Capturer is the audio source of a run.
type Capturer interface {
	Start(handler audiocapture.AudioHandler) error
	Stop() error
	Done() <-chan struct{}
	Err() error
}

// Config configures an Engine.
type Config struct {
	Capturer   Capturer
	Provider   stt.Provider
	Locale     string // BCP 47 tag attached to every transcript
	SampleRate int    // Default stt.SampleRate
	VAD        VADConfig

	// NoSpeechTimeout ends a run with a no-speech error when nothing was
	// heard. Default 8s.
	NoSpeechTimeout time.Duration

	// Preroll is the audio kept from before speech was detected. Default 300ms.
	Preroll time.Duration
}

// Engine implements recognition.Engine. Each run captures a single utterance,
// emits its final transcript and then ends.
type Engine struct {
	capturer Capturer
	provider stt.Provider
	locale   string
	lang     string
	rate     int
	vad      VADConfig
	timeout  time.Duration
	preroll  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Capturer == nil || cfg.Provider == nil {
		return nil, errors.New("listen: capturer and provider are required")
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("listen: locale %q: %w", cfg.Locale, err)
	}
	base, _ := tag.Base()

	e := &Engine{
		capturer: cfg.Capturer,
		provider: cfg.Provider,
		locale:   tag.String(),
		lang:     base.String(),
		rate:     cfg.SampleRate,
		vad:      cfg.VAD,
		timeout:  cfg.NoSpeechTimeout,
		preroll:  cfg.Preroll,
	}
	if e.rate <= 0 {
		e.rate = stt.SampleRate
	}
	if e.vad == (VADConfig{}) {
		e.vad = DefaultVADConfig()
	}
	if e.timeout <= 0 {
		e.timeout = 8 * time.Second
	}
	if e.preroll <= 0 {
		e.preroll = 300 * time.Millisecond
	}
	return e, nil
}

// Start begins a run. The outcome is reported through emit from another
// goroutine.
func (e *Engine) Start(emit func(recognition.Event)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrBusy
	}
	// A run that already emitted its final event may still be unwinding.
	if e.done != nil {
		<-e.done
	}

	frames := make(chan []float32, 64)
	ctx, cancel := context.WithCancel(context.Background())
	feedCtx, stopFeed := context.WithCancel(ctx)

	err := e.capturer.Start(func(samples []float32) {
		frame := make([]float32, len(samples))
		copy(frame, samples)
		select {
		case frames <- frame:
		case <-feedCtx.Done():
		}
	})
	if err != nil {
		stopFeed()
		cancel()
		return fmt.Errorf("start capture: %w", err)
	}

	e.cancel = cancel
	e.running = true
	e.done = make(chan struct{})
	go e.run(ctx, &utterance{frames: frames, stopFeed: stopFeed}, emit, e.done)
	return nil
}

// Stop cancels the current run without emitting anything and waits for it
// to wind down. It is safe to call when not running.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	err := e.capturer.Stop()
	<-done
	return err
}

// utterance is the per-run plumbing between the recorder and the detector.
type utterance struct {
	frames   chan []float32
	stopFeed context.CancelFunc
}

// stop ends the recorder. Frames still in flight are dropped.
func (u *utterance) stop(c Capturer) {
	u.stopFeed()
	if err := c.Stop(); err != nil {
		slog.Debug("stop capture", "error", err)
	}
}

func (e *Engine) run(ctx context.Context, u *utterance, emit func(recognition.Event), done chan struct{}) {
	defer close(done)
	defer u.stopFeed()

	events, ok := e.capture(ctx, u)
	if !ok {
		return
	}

	e.mu.Lock()
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	// Stop may have raced with the end of the run.
	if ctx.Err() != nil {
		return
	}
	for _, ev := range events {
		emit(ev)
	}
}

// capture drives one utterance and returns the events that close the run.
// ok is false when the run was cancelled.
func (e *Engine) capture(ctx context.Context, u *utterance) (events []recognition.Event, ok bool) {
	vad := NewVAD(e.vad, e.rate)
	buf := NewAudioBuffer(e.rate, e.preroll)
	heard := false
	total := 0

	noSpeech := time.NewTimer(e.timeout)
	defer noSpeech.Stop()

	feed := func(samples []float32) bool {
		total += len(samples)
		res := vad.Process(samples)
		buf.Append(samples)
		if res.Event == SpeechStart {
			heard = true
			noSpeech.Stop()
		}
		if !vad.InSpeech() && !res.Complete {
			buf.Trim()
		}
		return res.Complete
	}

	for {
		select {
		case <-ctx.Done():
			return nil, false

		case samples := <-u.frames:
			if feed(samples) {
				u.stop(e.capturer)
				return e.transcribe(ctx, buf.Extract())
			}

		case <-e.capturer.Done():
			// Drain what the recorder produced before it exited.
			for drained := false; !drained; {
				select {
				case samples := <-u.frames:
					if feed(samples) {
						return e.transcribe(ctx, buf.Extract())
					}
				default:
					drained = true
				}
			}
			if err := e.capturer.Err(); err != nil {
				return []recognition.Event{recognition.Error(captureClass(err), err)}, true
			}
			if total == 0 {
				return []recognition.Event{recognition.Error(recognition.ErrAudioCapture, errNoAudio)}, true
			}
			if heard {
				return e.transcribe(ctx, buf.Extract())
			}
			return []recognition.Event{recognition.End()}, true

		case <-noSpeech.C:
			u.stop(e.capturer)
			return []recognition.Event{recognition.Error(recognition.ErrNoSpeech, nil)}, true
		}
	}
}

func (e *Engine) transcribe(ctx context.Context, audio []float32) ([]recognition.Event, bool) {
	res, err := e.provider.Transcribe(ctx, audio, e.lang)
	if ctx.Err() != nil {
		return nil, false
	}
	if err != nil {
		return []recognition.Event{recognition.Error(transcribeClass(err), err)}, true
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		slog.Debug("utterance transcribed to nothing")
		return []recognition.Event{recognition.End()}, true
	}

	t := types.Transcript{Text: text, Locale: e.locale}
	return []recognition.Event{recognition.Result(t, true), recognition.End()}, true
}

func captureClass(err error) recognition.ErrorClass {
	if errors.Is(err, audiocapture.ErrPermissionDenied) {
		return recognition.ErrPermissionDenied
	}
	return recognition.ErrAudioCapture
}

func transcribeClass(err error) recognition.ErrorClass {
	switch {
	case errors.Is(err, stt.ErrUnauthorized), errors.Is(err, stt.ErrNotReady):
		return recognition.ErrServiceDenied
	default:
		return recognition.ErrNetwork
	}
}
