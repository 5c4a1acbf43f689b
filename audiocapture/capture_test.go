package audiocapture

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func shell(script string) Config {
	return Config{Command: "sh", Args: []string{"-c", script}, SampleRate: 16000}
}

func waitDone(t *testing.T, c *Capturer) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not exit")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr error
	}{
		{"shell", "sh", nil},
		{"missing", "labvoz-no-such-recorder", ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{Command: tt.command})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && c == nil {
				t.Fatal("expected non-nil Capturer")
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	if !Available("sh") {
		t.Error("Available(sh) = false")
	}
	if Available("labvoz-no-such-recorder") {
		t.Error("Available(missing) = true")
	}
}

func TestDefaultArgs(t *testing.T) {
	cfg := Config{SampleRate: 48000}.withDefaults()
	if cfg.Command != DefaultRecorder {
		t.Errorf("Command = %q, want %q", cfg.Command, DefaultRecorder)
	}
	want := []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", "48000"}
	if len(cfg.Args) != len(want) {
		t.Fatalf("Args = %v, want %v", cfg.Args, want)
	}
	for i := range want {
		if cfg.Args[i] != want[i] {
			t.Fatalf("Args = %v, want %v", cfg.Args, want)
		}
	}
}

func TestStartWithNilHandler(t *testing.T) {
	c, err := New(shell("true"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestStreamsSamples(t *testing.T) {
	// 6400 bytes of silence is 3200 samples, two full frames.
	c, err := New(shell("head -c 6400 /dev/zero"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var total, calls atomic.Int64
	err = c.Start(func(samples []float32) {
		calls.Add(1)
		total.Add(int64(len(samples)))
		for _, s := range samples {
			if s != 0 {
				t.Errorf("sample = %v, want 0", s)
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitDone(t, c)
	if err := c.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if total.Load() != 3200 {
		t.Errorf("samples = %d, want 3200", total.Load())
	}
	if calls.Load() != 2 {
		t.Errorf("handler calls = %d, want 2", calls.Load())
	}
}

func TestRecorderFailure(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		permission bool
	}{
		{"permission", `echo "audio open error: Permission denied" >&2; exit 1`, true},
		{"device", `echo "audio open error: No such device" >&2; exit 1`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(shell(tt.script))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := c.Start(func([]float32) {}); err != nil {
				t.Fatalf("Start: %v", err)
			}
			waitDone(t, c)

			err = c.Err()
			if err == nil {
				t.Fatal("expected recorder error")
			}
			if got := errors.Is(err, ErrPermissionDenied); got != tt.permission {
				t.Errorf("errors.Is(ErrPermissionDenied) = %v, want %v (%v)", got, tt.permission, err)
			}
		})
	}
}

func TestDoubleStart(t *testing.T) {
	c, err := New(shell("exec cat /dev/zero"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Stop()

	if err := c.Start(func([]float32) {}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := c.Start(func([]float32) {}); !errors.Is(err, ErrRunning) {
		t.Fatalf("expected ErrRunning, got %v", err)
	}
}

func TestStop(t *testing.T) {
	c, err := New(shell("exec cat /dev/zero"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Start(func([]float32) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitDone(t, c)

	if err := c.Err(); err != nil {
		t.Errorf("Err() after Stop = %v, want nil", err)
	}

	// The capturer can be started again after Stop.
	if err := c.Start(func([]float32) {}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStopIdempotent(t *testing.T) {
	c, err := New(shell("true"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop without Start: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("double Stop: %v", err)
	}
}
