package recognition

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.aimuz.me/labvoz/internal/types"
)

var (
	// ErrUnsupported is returned when the host offers no speech capture.
	ErrUnsupported = errors.New("recognition: speech capture not supported")

	// ErrNotRunning is returned when the controller loop has exited.
	ErrNotRunning = errors.New("recognition: controller not running")
)

// State is the listening state of the controller.
type State int32

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Handler receives finalized transcripts. Dispatch runs on the controller
// loop and must not block on I/O.
type Handler interface {
	Dispatch(ctx context.Context, t types.Transcript)
}

// Notifier is the subset of notify.Notifier used by the controller.
type Notifier interface {
	Notify(msg string, sev types.Severity, ttl time.Duration) string
}

// Config configures a Controller.
type Config struct {
	// Available is the one-time capability check. When false the engine is
	// never created and the controller stays disabled.
	Available bool
	NewEngine func() (Engine, error)
	Notifier  Notifier
	Handler   Handler
	OnState   func(State) // Optional, called on the loop after each transition
}

// Controller owns the capture engine. All state lives on the goroutine
// running Run; Toggle and engine events reach it through channels.
type Controller struct {
	engine   Engine
	enabled  bool
	notifier Notifier
	handler  Handler
	onState  func(State)

	events  chan Event
	toggles chan chan State
	done    chan struct{}

	state atomic.Int32
	epoch uint64 // loop-owned
}

// New creates a Controller. The capability gate is evaluated here, once.
func New(cfg Config) *Controller {
	c := &Controller{
		notifier: cfg.Notifier,
		handler:  cfg.Handler,
		onState:  cfg.OnState,
		events:   make(chan Event, 32),
		toggles:  make(chan chan State),
		done:     make(chan struct{}),
	}

	if !cfg.Available || cfg.NewEngine == nil {
		slog.Warn("speech capture not available, voice commands disabled")
		return c
	}

	engine, err := cfg.NewEngine()
	if err != nil {
		slog.Error("create recognition engine", "error", err)
		return c
	}
	c.engine = engine
	c.enabled = true
	return c
}

// Enabled reports whether the toggle affordance is usable.
func (c *Controller) Enabled() bool {
	return c.enabled
}

// State returns the current listening state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run processes toggles and engine events until ctx is cancelled. Any live
// capture is stopped before it returns.
func (c *Controller) Run(ctx context.Context) error {
	if !c.enabled {
		close(c.done)
		return ErrUnsupported
	}
	defer close(c.done)
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reply := <-c.toggles:
			reply <- c.toggle()
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// Toggle flips between Idle and Listening and returns the resulting state.
func (c *Controller) Toggle(ctx context.Context) (State, error) {
	if !c.enabled {
		return Idle, ErrUnsupported
	}

	reply := make(chan State, 1)
	select {
	case c.toggles <- reply:
	case <-c.done:
		return c.State(), ErrNotRunning
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

func (c *Controller) toggle() State {
	if c.State() == Idle {
		if err := c.start(); err != nil {
			slog.Warn("start recognition", "error", err)
			c.notify("No se pudo iniciar reconocimiento de voz", types.SeverityWarning, types.DefaultTTL)
			return Idle
		}
		c.setState(Listening)
		c.notify("🎤 Escuchando...", types.SeverityInfo, 1500*time.Millisecond)
		return Listening
	}

	c.stop()
	c.setState(Idle)
	c.notify("🔇 Voz desactivada", types.SeveritySecondary, 1500*time.Millisecond)
	return Idle
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	if ev.epoch != c.epoch || c.State() != Listening {
		slog.Debug("drop stale recognition event", "type", ev.Type)
		return
	}

	switch ev.Type {
	case EventEnd:
		// Continuous listening: the engine ends after each utterance.
		if err := c.start(); err != nil {
			slog.Debug("restart recognition", "error", err)
		}

	case EventError:
		slog.Error("speech recognition error", "class", ev.Class, "error", ev.Err)
		c.epoch++
		c.setState(Idle)
		n := noticeFor(ev.Class)
		c.notify(n.Message, n.Severity, n.TTL)

	case EventResult:
		if !ev.Final {
			return
		}
		if strings.TrimSpace(ev.Transcript.Text) == "" {
			return
		}
		slog.Info("voice command", "text", ev.Transcript.Text, "locale", ev.Transcript.Locale)
		if c.handler != nil {
			c.handler.Dispatch(ctx, ev.Transcript)
		}
	}
}

// start begins a new engine run under a fresh epoch.
func (c *Controller) start() error {
	c.epoch++
	return c.engine.Start(c.emitter(c.epoch))
}

// stop ends the current run; its late events become stale.
func (c *Controller) stop() {
	c.epoch++
	if err := c.engine.Stop(); err != nil {
		slog.Warn("stop recognition", "error", err)
	}
}

func (c *Controller) shutdown() {
	if c.State() == Listening {
		c.stop()
		c.setState(Idle)
	}
}

func (c *Controller) emitter(epoch uint64) func(Event) {
	return func(ev Event) {
		ev.epoch = epoch
		select {
		case c.events <- ev:
		case <-c.done:
		}
	}
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Controller) notify(msg string, sev types.Severity, ttl time.Duration) {
	if c.notifier != nil {
		c.notifier.Notify(msg, sev, ttl)
	}
}
