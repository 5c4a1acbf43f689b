// Package app wires the voice command layer together and exposes it to a
// host (the terminal console or a test harness).
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.aimuz.me/labvoz/audiocapture"
	"go.aimuz.me/labvoz/auth"
	"go.aimuz.me/labvoz/config"
	"go.aimuz.me/labvoz/dispatch"
	"go.aimuz.me/labvoz/hotkey"
	"go.aimuz.me/labvoz/internal/types"
	"go.aimuz.me/labvoz/listen"
	"go.aimuz.me/labvoz/notify"
	"go.aimuz.me/labvoz/recognition"
	"go.aimuz.me/labvoz/session"
	"go.aimuz.me/labvoz/stt"
)

// Host renders what the service produces.
type Host interface {
	notify.Sink
	dispatch.Navigator
	Emit(name string, data any)
}

// Options customise Init. Zero values select the production components.
type Options struct {
	Host   Host
	Prompt auth.Prompt

	// InMemorySession keeps the session in memory instead of on disk.
	InMemorySession bool

	// NewEngine and Available override the microphone engine and its
	// capability check.
	NewEngine func() (recognition.Engine, error)
	Available func() bool

	// Hotkey installs the global key chord from the config.
	Hotkey bool
}

// Service owns every component of the voice command layer. Each one is
// built once in Init and shared by reference.
type Service struct {
	cfg    *config.Config
	host   Host
	hotkey *hotkey.HotkeyManager

	notifier   *notify.Notifier
	store      *session.Store
	gate       *auth.Gate
	dispatcher *dispatch.Dispatcher
	controller *recognition.Controller
	voice      VoiceAdapter

	// Version info (set by caller)
	version string
}

// New creates a new Service. Call Init before use.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init builds and wires the components.
func (s *Service) Init(cfg *config.Config, opts Options) error {
	if opts.Host == nil {
		return errors.New("app: host required")
	}
	s.cfg = cfg
	s.host = opts.Host
	s.notifier = notify.New(opts.Host)

	store, err := s.openStore(opts.InMemorySession)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	s.store = store

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}

	s.gate = auth.New(auth.Config{
		Store:     s.store,
		Exchanger: auth.NewClient(cfg.AuthURL(), httpClient),
		Notifier:  s.notifier,
		Prompt:    opts.Prompt,
	})
	s.store.SetLoginPrompt(s.gate.Open)
	s.gate.OnStatus(func(status string) { s.host.Emit(EventSessionStatus, status) })

	s.dispatcher = dispatch.New(dispatch.Config{
		Sessions:      s.store,
		Interpreter:   dispatch.NewClient(cfg.CommandURL(), httpClient),
		Navigator:     opts.Host,
		Notifier:      s.notifier,
		NavigateDelay: cfg.NavigateDelay(),
		Locale:        cfg.Locale,
	})

	available := opts.Available
	if available == nil {
		available = func() bool { return audiocapture.Available(cfg.Recorder) }
	}
	newEngine := opts.NewEngine
	if newEngine == nil {
		newEngine = s.newEngine
	}
	s.controller = recognition.New(recognition.Config{
		Available: available(),
		NewEngine: newEngine,
		Notifier:  s.notifier,
		Handler:   s.dispatcher,
		OnState: func(st recognition.State) {
			s.host.Emit(EventListening, st == recognition.Listening)
		},
	})

	if opts.Hotkey {
		s.setupHotkey()
	}
	return nil
}

func (s *Service) openStore(inMemory bool) (*session.Store, error) {
	if inMemory {
		return session.OpenInMemory(s.notifier)
	}
	dir, err := s.cfg.SessionPath()
	if err != nil {
		return nil, err
	}
	slog.Info("opening session store", "path", dir)
	return session.Open(dir, s.notifier)
}

func (s *Service) newEngine() (recognition.Engine, error) {
	capturer, err := audiocapture.New(audiocapture.Config{
		Command:    s.cfg.Recorder,
		SampleRate: stt.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	provider := stt.NewWhisperAPI(stt.WhisperAPIConfig{
		APIKey:  s.cfg.OpenAIAPIKey,
		BaseURL: s.cfg.OpenAIBaseURL,
		Model:   s.cfg.STTModel,
	})
	if !provider.IsReady() {
		return nil, fmt.Errorf("speech-to-text: %w: set OPENAI_API_KEY", stt.ErrNotReady)
	}

	return listen.New(listen.Config{
		Capturer: capturer,
		Provider: provider,
		Locale:   s.cfg.Locale,
	})
}

func (s *Service) setupHotkey() {
	hk, err := hotkey.NewHotkeyManager(s.cfg.Hotkey, func() {
		if _, err := s.ToggleVoice(context.Background()); err != nil {
			slog.Warn("toggle voice from hotkey", "error", err)
		}
	})
	if err != nil {
		slog.Error("parse hotkey", "error", err)
		s.host.Emit(EventHotkey, false)
		return
	}
	s.hotkey = hk
}

// Start runs the recognition loop and the hotkey listener until Shutdown.
func (s *Service) Start(ctx context.Context) {
	s.voice.Start(ctx, s.controller)

	if s.hotkey != nil {
		if err := s.hotkey.Start(); err != nil {
			slog.Error("start hotkey", "error", err)
			s.host.Emit(EventHotkey, false)
			return
		}
		s.host.Emit(EventHotkey, true)
	}
}

// Shutdown stops capture and releases resources.
func (s *Service) Shutdown() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	s.voice.Stop()
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}
	if s.notifier != nil {
		s.notifier.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Error("close session store", "error", err)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Voice
// ─────────────────────────────────────────────────────────────────────────────

// VoiceEnabled reports whether the listening toggle is usable.
func (s *Service) VoiceEnabled() bool {
	return s.controller.Enabled()
}

// ToggleVoice flips between idle and listening.
func (s *Service) ToggleVoice(ctx context.Context) (recognition.State, error) {
	return s.voice.Toggle(ctx)
}

// Say dispatches a typed command as if it had been spoken, and waits for
// any remote reply to be applied.
func (s *Service) Say(ctx context.Context, text string) {
	s.dispatcher.Dispatch(ctx, types.Transcript{Text: text, Locale: s.cfg.Locale})
	s.dispatcher.Wait()
}

// ─────────────────────────────────────────────────────────────────────────────
// Session
// ─────────────────────────────────────────────────────────────────────────────

// OpenLogin shows the login prompt.
func (s *Service) OpenLogin() {
	s.gate.Open()
}

// LoginOpen reports whether the login prompt is showing.
func (s *Service) LoginOpen() bool {
	return s.gate.IsOpen()
}

// Login exchanges identifier for a session credential.
func (s *Service) Login(ctx context.Context, identifier string) error {
	return s.gate.Submit(ctx, identifier)
}

// Logout destroys the session.
func (s *Service) Logout() error {
	return s.gate.Logout()
}

// Status returns the human-readable session status.
func (s *Service) Status() string {
	return s.gate.Status()
}

// Session returns the current session.
func (s *Service) Session() types.Session {
	return s.store.Get()
}

// ─────────────────────────────────────────────────────────────────────────────
// Interactive console
// ─────────────────────────────────────────────────────────────────────────────

// Console commands.
const (
	cmdToggle = "/voz"
	cmdLogin  = "/login"
	cmdLogout = "/logout"
	cmdStatus = "/estado"
	cmdCancel = "/cancelar"
	cmdQuit   = "/salir"
)

// Interact reads lines from r until EOF, /salir or ctx is done. While the
// login prompt is open a line is a user identifier; otherwise an empty line
// toggles listening and any other text is dispatched as a command.
func (s *Service) Interact(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())

		if s.gate.IsOpen() && line != cmdCancel && line != cmdQuit {
			if err := s.Login(ctx, line); err != nil && !errors.Is(err, auth.ErrEmptyIdentifier) {
				slog.Debug("login", "error", err)
			}
			continue
		}

		switch line {
		case "", cmdToggle:
			if _, err := s.ToggleVoice(ctx); err != nil {
				s.notifier.Notify("Reconocimiento de voz no disponible", types.SeverityWarning, types.DefaultTTL)
				slog.Debug("toggle voice", "error", err)
			}
		case cmdLogin:
			s.OpenLogin()
		case cmdLogout:
			if err := s.Logout(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
		case cmdStatus:
			s.host.Emit(EventSessionStatus, s.Status())
		case cmdCancel:
			s.gate.Close()
		case cmdQuit:
			return nil
		default:
			s.Say(ctx, line)
		}
	}
	return sc.Err()
}
