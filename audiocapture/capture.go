// Package audiocapture captures microphone audio by running an external
// recorder that writes raw 16-bit mono PCM to stdout.
package audiocapture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// ErrRunning is returned when Start is called while capture is active.
	ErrRunning = errors.New("audiocapture: already running")

	// ErrUnavailable is returned when the recorder cannot be found.
	ErrUnavailable = errors.New("audiocapture: recorder not available")

	// ErrPermissionDenied is returned when the host refused microphone access.
	ErrPermissionDenied = errors.New("audiocapture: microphone permission denied")
)

// AudioHandler receives audio samples as float32 in the range [-1, 1].
// Samples are only valid for the duration of the call.
type AudioHandler func(samples []float32)

// DefaultRecorder is the recorder looked up when none is configured.
const DefaultRecorder = "arecord"

// frameSamples is the chunk size handed to AudioHandler, 100ms at 16kHz.
const frameSamples = 1600

// Config configures the recorder process.
type Config struct {
	Command    string   // Recorder binary, default DefaultRecorder
	Args       []string // Optional, defaults to raw S16_LE mono at SampleRate
	SampleRate int      // Default 16000
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() Config {
	return Config{
		Command:    DefaultRecorder,
		SampleRate: 16000,
	}
}

func (c Config) withDefaults() Config {
	if c.Command == "" {
		c.Command = DefaultRecorder
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Args == nil {
		c.Args = []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(c.SampleRate)}
	}
	return c
}

// Available reports whether the recorder binary can be found on PATH.
func Available(command string) bool {
	if command == "" {
		command = DefaultRecorder
	}
	_, err := exec.LookPath(command)
	return err == nil
}

// Capturer runs one recorder process at a time.
type Capturer struct {
	cfg Config

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	err     error
	stopped bool
}

// New creates a Capturer. It fails with ErrUnavailable when the recorder is
// missing.
func New(cfg Config) (*Capturer, error) {
	cfg = cfg.withDefaults()
	if !Available(cfg.Command) {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, cfg.Command)
	}
	done := make(chan struct{})
	close(done)
	return &Capturer{cfg: cfg, done: done}, nil
}

// Start launches the recorder and streams its audio to handler.
func (c *Capturer) Start(handler AudioHandler) error {
	if handler == nil {
		return errors.New("audiocapture: nil handler")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return ErrRunning
	}

	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("recorder stdout: %w", err)
	}
	stderr := &limitedBuffer{max: 4096}
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("start recorder: %w", err)
	}

	c.cmd = cmd
	c.done = make(chan struct{})
	c.err = nil
	c.stopped = false

	go c.pump(cmd, stdout, stderr, handler, c.done)
	return nil
}

func (c *Capturer) pump(cmd *exec.Cmd, stdout io.Reader, stderr *limitedBuffer, handler AudioHandler, done chan struct{}) {
	raw := make([]byte, frameSamples*2)
	samples := make([]float32, frameSamples)

	for {
		n, readErr := io.ReadFull(stdout, raw)
		if n >= 2 {
			count := n / 2
			for i := range count {
				s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
				samples[i] = float32(s) / 32768
			}
			handler(samples[:count])
		}
		if readErr != nil {
			break
		}
	}

	waitErr := cmd.Wait()

	c.mu.Lock()
	if !c.stopped && waitErr != nil {
		c.err = classify(waitErr, stderr.String())
	}
	c.cmd = nil
	c.mu.Unlock()
	close(done)
}

// Stop terminates the recorder and waits for its output to drain. It is safe
// to call when not running.
func (c *Capturer) Stop() error {
	c.mu.Lock()
	cmd := c.cmd
	done := c.done
	if cmd == nil {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop recorder: %w", err)
	}
	<-done
	return nil
}

// Done is closed when the current recorder process exits.
func (c *Capturer) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns why the last recorder process failed. It is nil after a
// clean exit or an explicit Stop.
func (c *Capturer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func classify(waitErr error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "not allowed") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	}
	if msg == "" {
		return fmt.Errorf("recorder exited: %w", waitErr)
	}
	return fmt.Errorf("recorder exited: %w: %s", waitErr, msg)
}

// limitedBuffer keeps the first max bytes of recorder diagnostics.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
