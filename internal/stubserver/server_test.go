package stubserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.aimuz.me/labvoz/internal/types"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		command string
		url     string
		success bool
	}{
		{"ir al inicio", "/dashboard", true},
		{"Abrir LABORATORIOS", "/laboratorios", true},
		{"mostrar equipos", "/equipos", true},
		{"ver el stock", "/inventario", true},
		{"nueva reservación", "/reservas", true},
		{"lista de estudiantes", "/usuarios", true},
		{"estadísticas", "/reportes", true},
		{"ajustes", "/configuracion", true},
		{"ayuda general", "/ayuda", true},
		{"módulos", "/modulos", true},
		{"cerrar sesión", "/logout", true},
		{"ayuda", "", true},
		{"qué puedo decir", "", true},
		{"xyz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			res := Interpret(tt.command)
			require.NotNil(t, res.Message)
			assert.Equal(t, tt.success, res.Succeeded())
			assert.Equal(t, tt.url, res.URL)

			kind, _ := res.Kind()
			if tt.url != "" {
				assert.Equal(t, types.ActionNavigate, kind)
			} else {
				assert.Equal(t, types.ActionNone, kind)
			}
		})
	}

	assert.Contains(t, *Interpret("  XYZ ").Message, `"xyz" no reconocido`)
}

func newServer(t *testing.T, now func() time.Time) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(Config{Secret: []byte("test-secret"), Now: now})
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAuth(t *testing.T) {
	_, ts := newServer(t, nil)

	tests := []struct {
		name   string
		userID string
		status int
	}{
		{"active user", "admin", http.StatusOK},
		{"inactive user", "baja01", http.StatusUnauthorized},
		{"unknown user", "nadie", http.StatusUnauthorized},
		{"blank", "  ", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/api/auth", "", types.AuthRequest{Identifier: tt.userID})
			assert.Equal(t, tt.status, resp.StatusCode)

			var body types.AuthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.status == http.StatusOK {
				assert.NotEmpty(t, body.AccessToken)
				require.NotNil(t, body.User)
				assert.Equal(t, "Administrador", body.User.Name)
			} else {
				assert.Empty(t, body.AccessToken)
				assert.NotEmpty(t, body.Message)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	s, ts := newServer(t, nil)
	token, err := s.IssueToken("docente01")
	require.NoError(t, err)

	resp := post(t, ts.URL+"/api/voz/comando", token, types.CommandRequest{Command: "Ir a Inventario"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res types.CommandResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Succeeded())
	assert.Equal(t, types.ActionCodeNavigate, res.Action)
	assert.Equal(t, "/inventario", res.URL)

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, "docente01", history[0].UserID)
	assert.Equal(t, "Ir a Inventario", history[0].Command)
	assert.True(t, history[0].Success)
}

func TestCommand_Unauthorized(t *testing.T) {
	now := time.Date(2025, 10, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s, ts := newServer(t, clock)

	expired, err := s.IssueToken("admin")
	require.NoError(t, err)
	now = now.Add(9 * time.Hour)

	other, err := New(Config{Secret: []byte("other-secret")})
	require.NoError(t, err)
	forged, err := other.IssueToken("admin")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong key", forged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/api/voz/comando", tt.token, types.CommandRequest{Command: "inventario"})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Empty(t, s.History())
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/voz/comando")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
