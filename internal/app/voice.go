package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.aimuz.me/labvoz/recognition"
)

// VoiceAdapter runs the recognition controller loop in the background.
type VoiceAdapter struct {
	mu         sync.Mutex
	controller *recognition.Controller
	cancel     context.CancelFunc
}

// Start launches the controller loop. Calling it twice does nothing.
func (va *VoiceAdapter) Start(ctx context.Context, c *recognition.Controller) {
	va.mu.Lock()
	defer va.mu.Unlock()

	if va.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	va.controller = c
	va.cancel = cancel

	go func() {
		err := c.Run(ctx)
		switch {
		case errors.Is(err, recognition.ErrUnsupported):
			slog.Warn("voice commands unavailable")
		case err != nil && !errors.Is(err, context.Canceled):
			slog.Error("recognition loop", "error", err)
		}
	}()
}

// Toggle flips listening on the running controller.
func (va *VoiceAdapter) Toggle(ctx context.Context) (recognition.State, error) {
	va.mu.Lock()
	c := va.controller
	va.mu.Unlock()

	if c == nil {
		return recognition.Idle, recognition.ErrNotRunning
	}
	return c.Toggle(ctx)
}

// Stop ends the loop, stopping any live capture, and waits for it.
func (va *VoiceAdapter) Stop() {
	va.mu.Lock()
	cancel, c := va.cancel, va.controller
	va.cancel = nil
	va.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-c.Done()
}
