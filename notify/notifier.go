// Package notify shows transient, dismissible status messages.
package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.aimuz.me/labvoz/internal/types"
)

// Sink renders notifications. Implementations must not call back into the
// Notifier synchronously.
type Sink interface {
	Show(n types.Notification)
	Hide(id string)
}

// Notifier owns every live notification and removes it when its TTL elapses
// or the user dismisses it.
type Notifier struct {
	mu     sync.Mutex
	sink   Sink
	active map[string]*entry
	order  []string
	now    func() time.Time
}

type entry struct {
	n     types.Notification
	timer *time.Timer
}

// New creates a Notifier rendering to sink. A nil sink only logs.
func New(sink Sink) *Notifier {
	return &Notifier{
		sink:   sink,
		active: make(map[string]*entry),
		now:    time.Now,
	}
}

// Notify shows a message and returns its ID. A zero ttl keeps it until
// dismissed; a negative ttl uses types.DefaultTTL.
func (n *Notifier) Notify(msg string, sev types.Severity, ttl time.Duration) string {
	if ttl < 0 {
		ttl = types.DefaultTTL
	}

	note := types.Notification{
		ID:        uuid.NewString(),
		Message:   msg,
		Severity:  sev,
		TTL:       ttl,
		CreatedAt: n.now(),
	}

	n.mu.Lock()
	e := &entry{n: note}
	n.active[note.ID] = e
	n.order = append(n.order, note.ID)
	if ttl > 0 {
		id := note.ID
		e.timer = time.AfterFunc(ttl, func() { n.expire(id) })
	}
	n.mu.Unlock()

	slog.Debug("notify", "severity", sev, "message", msg, "ttl", ttl)
	if n.sink != nil {
		n.sink.Show(note)
	}
	return note.ID
}

// Dismiss removes a notification before its TTL and cancels its timer.
// It reports whether the notification was still live.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	e, ok := n.remove(id)
	n.mu.Unlock()
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	if n.sink != nil {
		n.sink.Hide(id)
	}
	return true
}

// Active returns the live notifications, oldest first.
func (n *Notifier) Active() []types.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	result := make([]types.Notification, 0, len(n.order))
	for _, id := range n.order {
		result = append(result, n.active[id].n)
	}
	return result
}

// Close cancels every pending timer and hides all notifications.
func (n *Notifier) Close() {
	n.mu.Lock()
	ids := slices.Clone(n.order)
	n.mu.Unlock()

	for _, id := range ids {
		n.Dismiss(id)
	}
}

func (n *Notifier) expire(id string) {
	n.mu.Lock()
	_, ok := n.remove(id)
	n.mu.Unlock()
	if ok && n.sink != nil {
		n.sink.Hide(id)
	}
}

// remove must be called with mu held.
func (n *Notifier) remove(id string) (*entry, bool) {
	e, ok := n.active[id]
	if !ok {
		return nil, false
	}
	delete(n.active, id)
	n.order = slices.DeleteFunc(n.order, func(x string) bool { return x == id })
	return e, true
}
