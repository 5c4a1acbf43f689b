// Package auth acquires the session credential through the login
// affordance and re-acquires it after expiry.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.aimuz.me/labvoz/internal/types"
)

var (
	// ErrEmptyIdentifier is returned by Submit for a blank identifier.
	ErrEmptyIdentifier = errors.New("auth: identifier required")

	// ErrSuperseded is returned when a newer Submit started before this
	// one's reply arrived; the older reply is discarded.
	ErrSuperseded = errors.New("auth: superseded by a newer login")
)

// Human-readable session status.
const (
	StatusConnected = "API: conectado"
	StatusNoSession = "API: sin sesión"
)

// Prompt is the credential-entry affordance rendered by the host.
type Prompt interface {
	Show()
	Hide()
	Focus()
}

// Exchanger trades an identifier for a credential.
type Exchanger interface {
	Exchange(ctx context.Context, identifier string) (types.AuthResponse, error)
}

// Store is the subset of session.Store the gate coordinates.
type Store interface {
	Get() types.Session
	Set(token string) error
	Clear() error
	Subscribe(fn func(types.Session))
}

// Notifier is the subset of notify.Notifier used by the gate.
type Notifier interface {
	Notify(msg string, sev types.Severity, ttl time.Duration) string
}

// Config configures a Gate.
type Config struct {
	Store     Store
	Exchanger Exchanger
	Notifier  Notifier
	Prompt    Prompt
}

// Gate orchestrates session acquisition.
type Gate struct {
	store     Store
	exchanger Exchanger
	notifier  Notifier
	prompt    Prompt

	mu        sync.Mutex
	open      bool
	status    string
	listeners []func(string)

	gen atomic.Uint64
}

// New creates a Gate and starts tracking session changes.
func New(cfg Config) *Gate {
	g := &Gate{
		store:     cfg.Store,
		exchanger: cfg.Exchanger,
		notifier:  cfg.Notifier,
		prompt:    cfg.Prompt,
		status:    statusOf(cfg.Store.Get()),
	}
	cfg.Store.Subscribe(g.sessionChanged)
	return g
}

// Open presents the login affordance. Calling it while open does nothing.
func (g *Gate) Open() {
	g.mu.Lock()
	if g.open {
		g.mu.Unlock()
		return
	}
	g.open = true
	g.mu.Unlock()

	if g.prompt != nil {
		g.prompt.Show()
	}
}

// Close hides the login affordance.
func (g *Gate) Close() {
	g.mu.Lock()
	if !g.open {
		g.mu.Unlock()
		return
	}
	g.open = false
	g.mu.Unlock()

	if g.prompt != nil {
		g.prompt.Hide()
	}
}

// IsOpen reports whether the login affordance is showing.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Submit exchanges identifier for a credential.
func (g *Gate) Submit(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		if g.prompt != nil {
			g.prompt.Focus()
		}
		return ErrEmptyIdentifier
	}

	gen := g.gen.Add(1)
	resp, err := g.exchanger.Exchange(ctx, identifier)
	if g.gen.Load() != gen {
		slog.Debug("discard stale login reply", "generation", gen)
		return ErrSuperseded
	}

	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			slog.Warn("api login rejected", "status", se.StatusCode)
			g.notify("No se pudo iniciar sesión API", types.SeverityWarning, types.DefaultTTL)
		} else {
			slog.Error("api login", "error", err)
			g.notify("Error en autenticación API", types.SeverityDanger, types.DefaultTTL)
		}
		return fmt.Errorf("exchange credential: %w", err)
	}

	if resp.AccessToken == "" {
		slog.Warn("api login succeeded without a token")
		return nil
	}

	if err := g.store.Set(resp.AccessToken); err != nil {
		g.notify("Error en autenticación API", types.SeverityDanger, types.DefaultTTL)
		return fmt.Errorf("store credential: %w", err)
	}
	g.notify("Sesión API iniciada", types.SeveritySuccess, 2*time.Second)
	g.Close()
	return nil
}

// Logout destroys the session.
func (g *Gate) Logout() error {
	// Invalidate any login still in flight.
	g.gen.Add(1)
	return g.store.Clear()
}

// Status returns the human-readable session status.
func (g *Gate) Status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// OnStatus registers fn to receive every recomputed status.
func (g *Gate) OnStatus(fn func(string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *Gate) sessionChanged(s types.Session) {
	status := statusOf(s)

	g.mu.Lock()
	g.status = status
	listeners := g.listeners
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}

func (g *Gate) notify(msg string, sev types.Severity, ttl time.Duration) {
	if g.notifier != nil {
		g.notifier.Notify(msg, sev, ttl)
	}
}

func statusOf(s types.Session) string {
	if s.Present() {
		return StatusConnected
	}
	return StatusNoSession
}
