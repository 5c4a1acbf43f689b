// Package hotkey listens for a global key chord and toggles voice capture.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// ErrRunning is returned when Start is called twice.
var ErrRunning = errors.New("hotkey: already running")

// debounce swallows key repeat while the chord is held.
const debounce = 400 * time.Millisecond

var modifiers = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"cmd":     "cmd",
	"super":   "cmd",
	"meta":    "cmd",
}

// ParseChord splits a chord like "ctrl+shift+v" into key names understood by
// the hook library. A chord needs at least one modifier and exactly one key.
func ParseChord(chord string) ([]string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")

	var keys []string
	var mods, plain int
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("hotkey %q: empty key", chord)
		}
		if m, ok := modifiers[p]; ok {
			keys = append(keys, m)
			mods++
			continue
		}
		if _, ok := hook.Keycode[p]; !ok {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", chord, p)
		}
		keys = append(keys, p)
		plain++
	}
	if mods == 0 || plain != 1 {
		return nil, fmt.Errorf("hotkey %q: need modifiers plus one key", chord)
	}
	return keys, nil
}

// HotkeyManager owns the global keyboard hook.
type HotkeyManager struct {
	chord    string
	keys     []string
	onToggle func()

	mu      sync.Mutex
	running bool
	done    chan struct{}
	last    time.Time
}

// NewHotkeyManager creates a manager that calls onToggle for every press of
// chord.
func NewHotkeyManager(chord string, onToggle func()) (*HotkeyManager, error) {
	keys, err := ParseChord(chord)
	if err != nil {
		return nil, err
	}
	return &HotkeyManager{chord: chord, keys: keys, onToggle: onToggle}, nil
}

// Chord returns the configured chord.
func (m *HotkeyManager) Chord() string {
	return m.chord
}

// Start installs the keyboard hook and processes events in the background.
func (m *HotkeyManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrRunning
	}

	hook.Register(hook.KeyDown, m.keys, func(hook.Event) {
		if m.fire(time.Now()) {
			// Run in goroutine to not block the hotkey listener
			go m.onToggle()
		}
	})

	evChan := hook.Start()
	m.done = make(chan struct{})
	m.running = true

	go func(done chan struct{}) {
		defer close(done)
		<-hook.Process(evChan)
	}(m.done)

	slog.Info("hotkey registered", "chord", m.chord)
	return nil
}

// Stop removes the keyboard hook.
func (m *HotkeyManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.done
	m.mu.Unlock()

	hook.End()
	<-done
}

// fire reports whether a press at now should toggle.
func (m *HotkeyManager) fire(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.last) < debounce {
		return false
	}
	m.last = now
	return true
}
