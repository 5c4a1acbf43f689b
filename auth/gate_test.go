package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.aimuz.me/labvoz/internal/types"
	"go.aimuz.me/labvoz/session"
)

type fakePrompt struct {
	shown, hidden, focused int
}

func (p *fakePrompt) Show()  { p.shown++ }
func (p *fakePrompt) Hide()  { p.hidden++ }
func (p *fakePrompt) Focus() { p.focused++ }

type fakeNotifier struct {
	sevs []types.Severity
}

func (f *fakeNotifier) Notify(_ string, sev types.Severity, _ time.Duration) string {
	f.sevs = append(f.sevs, sev)
	return ""
}

type authServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newAuthServer(t *testing.T, status int, body string) *authServer {
	t.Helper()
	s := &authServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u-42", req["user_id"])
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

type fixture struct {
	gate     *Gate
	store    *session.Store
	prompt   *fakePrompt
	notifier *fakeNotifier
}

func newFixture(t *testing.T, url string) *fixture {
	t.Helper()
	store, err := session.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{store: store, prompt: &fakePrompt{}, notifier: &fakeNotifier{}}
	f.gate = New(Config{
		Store:     store,
		Exchanger: NewClient(url, nil),
		Notifier:  f.notifier,
		Prompt:    f.prompt,
	})
	return f
}

func TestGate_OpenIdempotent(t *testing.T) {
	f := newFixture(t, "http://unused")

	f.gate.Open()
	f.gate.Open()
	assert.True(t, f.gate.IsOpen())
	assert.Equal(t, 1, f.prompt.shown)

	f.gate.Close()
	f.gate.Close()
	assert.False(t, f.gate.IsOpen())
	assert.Equal(t, 1, f.prompt.hidden)
}

func TestGate_EmptyIdentifier(t *testing.T) {
	srv := newAuthServer(t, http.StatusOK, `{"access_token":"abc"}`)
	f := newFixture(t, srv.URL)
	f.gate.Open()

	for _, id := range []string{"", "   ", "\t\n"} {
		err := f.gate.Submit(context.Background(), id)
		assert.ErrorIs(t, err, ErrEmptyIdentifier)
	}

	assert.Zero(t, srv.calls.Load())
	assert.Equal(t, 3, f.prompt.focused)
	assert.True(t, f.gate.IsOpen())
}

func TestGate_Success(t *testing.T) {
	srv := newAuthServer(t, http.StatusOK, `{"access_token":"abc"}`)
	f := newFixture(t, srv.URL)
	var statuses []string
	f.gate.OnStatus(func(s string) { statuses = append(statuses, s) })

	assert.Equal(t, StatusNoSession, f.gate.Status())
	f.gate.Open()

	require.NoError(t, f.gate.Submit(context.Background(), "  u-42 "))

	assert.Equal(t, "abc", f.store.Get().Token)
	assert.Equal(t, StatusConnected, f.gate.Status())
	assert.Equal(t, []string{StatusConnected}, statuses)
	assert.False(t, f.gate.IsOpen())
	assert.Equal(t, []types.Severity{types.SeveritySuccess}, f.notifier.sevs)
}

func TestGate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantSev types.Severity
	}{
		{"unknown user", http.StatusUnauthorized, `{"message":"Usuario no encontrado o inactivo"}`, types.SeverityWarning},
		{"server error", http.StatusInternalServerError, `oops`, types.SeverityWarning},
		{"malformed reply", http.StatusOK, `{"access_token":`, types.SeverityDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAuthServer(t, tt.status, tt.body)
			f := newFixture(t, srv.URL)
			f.gate.Open()

			err := f.gate.Submit(context.Background(), "u-42")
			require.Error(t, err)

			assert.False(t, f.store.Get().Present())
			assert.True(t, f.gate.IsOpen(), "affordance stays open")
			assert.Equal(t, []types.Severity{tt.wantSev}, f.notifier.sevs)
		})
	}
}

func TestGate_TransportFailure(t *testing.T) {
	srv := newAuthServer(t, http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()

	f := newFixture(t, url)
	f.gate.Open()

	require.Error(t, f.gate.Submit(context.Background(), "u-42"))
	assert.Equal(t, []types.Severity{types.SeverityDanger}, f.notifier.sevs)
	assert.True(t, f.gate.IsOpen())
}

func TestGate_SuccessWithoutToken(t *testing.T) {
	srv := newAuthServer(t, http.StatusOK, `{"user":{"id":"u-42"}}`)
	f := newFixture(t, srv.URL)
	f.gate.Open()

	require.NoError(t, f.gate.Submit(context.Background(), "u-42"))

	assert.False(t, f.store.Get().Present())
	assert.Equal(t, StatusNoSession, f.gate.Status())
	assert.True(t, f.gate.IsOpen())
	assert.Empty(t, f.notifier.sevs)
}

func TestGate_StatusFollowsStore(t *testing.T) {
	f := newFixture(t, "http://unused")

	require.NoError(t, f.store.Set("abc"))
	assert.Equal(t, StatusConnected, f.gate.Status())

	f.store.OnUnauthorized(http.StatusUnauthorized)
	assert.Equal(t, StatusNoSession, f.gate.Status())

	require.NoError(t, f.store.Set("abc"))
	require.NoError(t, f.gate.Logout())
	assert.Equal(t, StatusNoSession, f.gate.Status())
}

type staleExchanger struct {
	gate *Gate
}

// Exchange simulates a second login finishing first.
func (s *staleExchanger) Exchange(context.Context, string) (types.AuthResponse, error) {
	s.gate.gen.Add(1)
	return types.AuthResponse{AccessToken: "old"}, nil
}

func TestGate_StaleReplyDiscarded(t *testing.T) {
	store, err := session.OpenInMemory(nil)
	require.NoError(t, err)
	defer store.Close()

	ex := &staleExchanger{}
	g := New(Config{Store: store, Exchanger: ex})
	ex.gate = g

	assert.ErrorIs(t, g.Submit(context.Background(), "u-42"), ErrSuperseded)
	assert.False(t, store.Get().Present())
}
