// Package dispatch turns recognized transcripts into remote authorized
// commands or, without a session, into local keyword navigation.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"go.aimuz.me/labvoz/internal/types"
)

// DefaultNavigateDelay keeps a reply message visible before navigating.
const DefaultNavigateDelay = time.Second

const sendFailedMessage = "Error enviando comando"

var tips = map[string]string{
	types.ActionCodeCreateEquipment: `💡 Tip: Use el botón "Nuevo" en la página de equipos para crear equipos`,
	types.ActionCodeCreateBooking:   `💡 Tip: Use el botón "Reservar" junto a cada equipo`,
	types.ActionCodeAdjustStock:     "💡 Tip: Vaya a inventario para ajustar cantidades",
}

// Sessions is the read side of session.Store plus its expiry recovery path.
type Sessions interface {
	Get() types.Session
	OnUnauthorized(status int) bool
}

// Interpreter sends a command to the remote interpretation endpoint.
type Interpreter interface {
	Interpret(ctx context.Context, token, command string) (types.CommandResult, error)
}

// Navigator performs a full-page navigation to path.
type Navigator interface {
	Navigate(path string) error
}

// Notifier is the subset of notify.Notifier used by the dispatcher.
type Notifier interface {
	Notify(msg string, sev types.Severity, ttl time.Duration) string
}

// Config configures a Dispatcher.
type Config struct {
	Sessions      Sessions
	Interpreter   Interpreter
	Navigator     Navigator
	Notifier      Notifier
	Rules         []Rule        // Defaults to DefaultRules
	NavigateDelay time.Duration // Defaults to DefaultNavigateDelay
	Locale        string        // Used for case folding; defaults to es-ES
}

// Dispatcher routes transcripts. Remote calls run in the background; only
// the reply to the most recent dispatch is applied.
type Dispatcher struct {
	sessions    Sessions
	interpreter Interpreter
	navigator   Navigator
	notifier    Notifier
	rules       []Rule
	delay       time.Duration
	locale      language.Tag

	gen atomic.Uint64
	wg  sync.WaitGroup
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules
	}
	delay := cfg.NavigateDelay
	if delay <= 0 {
		delay = DefaultNavigateDelay
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		tag = language.Spanish
	}

	return &Dispatcher{
		sessions:    cfg.Sessions,
		interpreter: cfg.Interpreter,
		navigator:   cfg.Navigator,
		notifier:    cfg.Notifier,
		rules:       rules,
		delay:       delay,
		locale:      tag,
	}
}

// Dispatch routes one transcript. It never blocks on the network.
func (d *Dispatcher) Dispatch(ctx context.Context, t types.Transcript) {
	// Casers are stateful and must not be shared across goroutines.
	text := strings.TrimSpace(cases.Lower(d.locale).String(t.Text))
	if text == "" {
		return
	}

	// Any newer dispatch supersedes replies still in flight.
	gen := d.gen.Add(1)

	sess := d.sessions.Get()
	if !sess.Present() {
		d.local(text)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.remote(ctx, gen, sess.Token, text)
	}()
}

// Wait blocks until in-flight requests and pending navigations finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) remote(ctx context.Context, gen uint64, token, text string) {
	result, err := d.interpreter.Interpret(ctx, token, text)
	if d.stale(gen) {
		slog.Debug("discard stale command reply", "generation", gen)
		return
	}

	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && d.sessions.OnUnauthorized(se.StatusCode) {
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("send voice command", "error", err)
		d.notify(sendFailedMessage, types.SeverityDanger, types.DefaultTTL)
		return
	}

	if result.Message != nil && *result.Message != "" {
		sev := types.SeverityWarning
		if result.Succeeded() {
			sev = types.SeveritySuccess
		}
		d.notify(*result.Message, sev, 4*time.Second)
	}

	switch kind, topic := result.Kind(); kind {
	case types.ActionNavigate:
		if result.URL != "" {
			d.navigateLater(gen, result.URL)
		}
	case types.ActionInform:
		d.notify(tips[topic], types.SeverityInfo, 3*time.Second)
	}
}

func (d *Dispatcher) navigateLater(gen uint64, url string) {
	d.wg.Add(1)
	time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		if d.stale(gen) {
			return
		}
		d.navigate(url)
	})
}

func (d *Dispatcher) local(text string) {
	if path, ok := match(d.rules, text); ok {
		d.navigate(path)
		return
	}
	if strings.Contains(text, helpKeyword) {
		d.notify(helpMessage, types.SeverityInfo, 4*time.Second)
		return
	}
	d.notify(unrecognizedMessage, types.SeverityWarning, types.DefaultTTL)
}

func (d *Dispatcher) navigate(path string) {
	slog.Info("navigate", "path", path)
	if d.navigator == nil {
		return
	}
	if err := d.navigator.Navigate(path); err != nil {
		slog.Error("navigate", "path", path, "error", err)
	}
}

func (d *Dispatcher) stale(gen uint64) bool {
	return d.gen.Load() != gen
}

func (d *Dispatcher) notify(msg string, sev types.Severity, ttl time.Duration) {
	if d.notifier != nil {
		d.notifier.Notify(msg, sev, ttl)
	}
}
