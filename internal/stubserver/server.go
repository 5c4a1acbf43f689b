// Package stubserver is an in-process stand-in for the laboratory backend. It
// serves the credential exchange and command interpretation endpoints.
package stubserver

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"go.aimuz.me/labvoz/internal/types"
)

// User is an account known to the stub.
type User struct {
	ID          string
	Name        string
	Kind        string
	AccessLevel int
	Active      bool
}

// DefaultUsers returns the demo accounts.
func DefaultUsers() []User {
	return []User{
		{ID: "admin", Name: "Administrador", Kind: "administrador", AccessLevel: 3, Active: true},
		{ID: "docente01", Name: "Docente de turno", Kind: "docente", AccessLevel: 2, Active: true},
		{ID: "est001", Name: "Estudiante", Kind: "estudiante", AccessLevel: 1, Active: true},
		{ID: "baja01", Name: "Cuenta inactiva", Kind: "estudiante", AccessLevel: 1, Active: false},
	}
}

// Entry records one interpreted command.
type Entry struct {
	UserID  string
	Command string
	Reply   string
	Success bool
	At      time.Time
}

// Config configures a Server.
type Config struct {
	Secret   []byte        // HS256 signing key, random when empty
	Users    []User        // Default DefaultUsers()
	TokenTTL time.Duration // Default 8h
	Now      func() time.Time
}

// Server implements the backend endpoints.
type Server struct {
	router *mux.Router
	secret []byte
	users  map[string]User
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	history []Entry
}

type claims struct {
	jwt.RegisteredClaims
	Name  string `json:"nombre"`
	Kind  string `json:"tipo"`
	Level int    `json:"nivel"`
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	s := &Server{
		secret: cfg.Secret,
		users:  make(map[string]User),
		ttl:    cfg.TokenTTL,
		now:    cfg.Now,
	}
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}
	if s.ttl <= 0 {
		s.ttl = 8 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	users := cfg.Users
	if users == nil {
		users = DefaultUsers()
	}
	for _, u := range users {
		s.users[u.ID] = u
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/api/auth", s.handleAuth).Methods(http.MethodPost)
	s.router.HandleFunc("/api/voz/comando", s.handleCommand).Methods(http.MethodPost)
	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// History returns the interpreted commands, oldest first.
func (s *Server) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// IssueToken signs a token for userID. Exposed for tests and demos.
func (s *Server) IssueToken(userID string) (string, error) {
	u, ok := s.users[userID]
	if !ok || !u.Active {
		return "", fmt.Errorf("unknown user %q", userID)
	}
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:  u.Name,
		Kind:  u.Kind,
		Level: u.AccessLevel,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req types.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Identifier) == "" {
		writeJSON(w, http.StatusBadRequest, types.AuthResponse{Message: "ID de usuario requerido"})
		return
	}

	u, ok := s.users[strings.TrimSpace(req.Identifier)]
	if !ok || !u.Active {
		slog.Debug("stub login rejected", "user_id", req.Identifier)
		writeJSON(w, http.StatusUnauthorized, types.AuthResponse{Message: "Usuario no encontrado o inactivo"})
		return
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, types.AuthResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, types.AuthResponse{
		AccessToken: token,
		User:        &types.AuthUser{ID: u.ID, Name: u.Name, Kind: u.Kind, AccessLevel: u.AccessLevel},
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authorize(r)
	if err != nil {
		slog.Debug("stub command unauthorized", "error", err)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": err.Error()})
		return
	}

	var req types.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "comando requerido"})
		return
	}

	res := Interpret(req.Command)

	s.mu.Lock()
	s.history = append(s.history, Entry{
		UserID:  userID,
		Command: req.Command,
		Reply:   *res.Message,
		Success: res.Succeeded(),
		At:      s.now(),
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, res)
}

var errMissingToken = errors.New("missing authorization header")

func (s *Server) authorize(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", errMissingToken
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return c.Subject, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}
