// Package types provides shared type definitions for the application.
package types

import (
	"strings"
	"time"
)

// Session holds the optional bearer credential used for privileged commands.
type Session struct {
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"` // From the JWT exp claim, zero when unknown
}

// Present reports whether a credential exists.
func (s Session) Present() bool {
	return s.Token != ""
}

// Transcript is a finalized recognition result for one utterance.
type Transcript struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Notifications
// ─────────────────────────────────────────────────────────────────────────────

// Severity is the visual weight of a notification.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeveritySuccess   Severity = "success"
	SeverityWarning   Severity = "warning"
	SeverityDanger    Severity = "danger"
	SeveritySecondary Severity = "secondary"
)

// DefaultTTL is the lifetime of a notification when the caller has no opinion.
const DefaultTTL = 3 * time.Second

// Notification is a transient status message shown to the user.
// A zero TTL keeps it until dismissed.
type Notification struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	TTL       time.Duration `json:"ttl"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Remote command interpretation
// ─────────────────────────────────────────────────────────────────────────────

// CommandRequest is the body sent to the command-interpretation endpoint.
type CommandRequest struct {
	Command string `json:"comando"`
}

// CommandResult is the structured reply of the command-interpretation endpoint.
type CommandResult struct {
	Message *string `json:"mensaje,omitempty"`
	Success *bool   `json:"exito,omitempty"`
	Action  string  `json:"accion,omitempty"`
	URL     string  `json:"url,omitempty"`
}

// ActionKind classifies a CommandResult action code.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionNavigate
	ActionInform
)

// Action codes understood by the client.
const (
	ActionCodeNavigate        = "navegar"
	ActionCodeCreateEquipment = "crear_equipo"
	ActionCodeCreateBooking   = "crear_reserva"
	ActionCodeAdjustStock     = "ajustar_stock"
)

// Kind returns the kind of action and, for ActionInform, its topic.
func (r CommandResult) Kind() (ActionKind, string) {
	switch code := strings.TrimSpace(r.Action); code {
	case ActionCodeNavigate:
		return ActionNavigate, ""
	case ActionCodeCreateEquipment, ActionCodeCreateBooking, ActionCodeAdjustStock:
		return ActionInform, code
	default:
		return ActionNone, ""
	}
}

// Succeeded reports the exito flag, false when absent.
func (r CommandResult) Succeeded() bool {
	return r.Success != nil && *r.Success
}

// ─────────────────────────────────────────────────────────────────────────────
// Authorization
// ─────────────────────────────────────────────────────────────────────────────

// AuthRequest is the credential exchange body. The backend names the
// identifier field user_id.
type AuthRequest struct {
	Identifier string `json:"user_id"`
}

// AuthResponse is the credential exchange reply.
type AuthResponse struct {
	AccessToken string    `json:"access_token,omitempty"`
	User        *AuthUser `json:"user,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// AuthUser describes the account behind an issued token.
type AuthUser struct {
	ID          string `json:"id"`
	Name        string `json:"nombre"`
	Kind        string `json:"tipo"`
	AccessLevel int    `json:"nivel_acceso"`
}
