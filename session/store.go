// Package session persists the single bearer credential that authorizes
// privileged voice commands.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.aimuz.me/labvoz/internal/types"
)

// tokenKey is the only key the store ever writes.
var tokenKey = []byte("jwt")

// Message shown when a privileged call reports an expired credential.
const expiredMessage = "Sesión API expirada. Inicia de nuevo."

// Notifier is the subset of notify.Notifier used by the store.
type Notifier interface {
	Notify(msg string, sev types.Severity, ttl time.Duration) string
}

// Store owns the session credential. No other component mutates it.
type Store struct {
	db       *badger.DB
	notifier Notifier

	mu        sync.Mutex
	observers []func(types.Session)
	prompt    func()
}

// Open opens (or creates) the store under dir.
func Open(dir string, notifier Notifier) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	return open(opts, notifier)
}

// OpenInMemory opens a store that forgets everything on Close.
func OpenInMemory(notifier Notifier) (*Store, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	return open(opts, notifier)
}

func open(opts badger.Options, notifier Notifier) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return &Store{db: db, notifier: notifier}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the current session. Storage failures read as no session.
func (s *Store) Get() types.Session {
	var token string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		token = string(val)
		return nil
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Error("read session", "error", err)
		}
		return types.Session{}
	}
	return types.Session{Token: token, ExpiresAt: tokenExpiry(token)}
}

// Set persists token; later reads observe it.
func (s *Store) Set(token string) error {
	if token == "" {
		return s.Clear()
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tokenKey, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	sess := types.Session{Token: token, ExpiresAt: tokenExpiry(token)}
	if !sess.ExpiresAt.IsZero() {
		slog.Info("session stored", "expires", sess.ExpiresAt)
	} else {
		slog.Info("session stored")
	}
	s.publish(sess)
	return nil
}

// Clear removes the credential; later reads return no session.
func (s *Store) Clear() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(tokenKey)
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	slog.Info("session cleared")
	s.publish(types.Session{})
	return nil
}

// OnUnauthorized is the recovery path for credential expiry. For a 401 it
// clears the session, warns the user and opens the login affordance, then
// reports true. Any other status is left alone.
func (s *Store) OnUnauthorized(status int) bool {
	if status != http.StatusUnauthorized {
		return false
	}

	if err := s.Clear(); err != nil {
		slog.Error("clear expired session", "error", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(expiredMessage, types.SeverityWarning, 3*time.Second)
	}

	s.mu.Lock()
	prompt := s.prompt
	s.mu.Unlock()
	if prompt != nil {
		prompt()
	}
	return true
}

// Subscribe registers fn to run after every session change.
func (s *Store) Subscribe(fn func(types.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// SetLoginPrompt sets the function that opens the login affordance.
func (s *Store) SetLoginPrompt(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = fn
}

func (s *Store) publish(sess types.Session) {
	s.mu.Lock()
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(sess)
	}
}
