package recognition

import (
	"fmt"
	"time"

	"go.aimuz.me/labvoz/internal/types"
)

// errorNotice is what the user sees for a recognition error class.
type errorNotice struct {
	Message  string
	Severity types.Severity
	TTL      time.Duration
}

func noticeFor(class ErrorClass) errorNotice {
	switch class {
	case ErrPermissionDenied, ErrServiceDenied:
		return errorNotice{
			Message:  "❌ Permiso de micrófono denegado. Por favor, habilita el acceso al micrófono.",
			Severity: types.SeverityDanger,
			TTL:      6 * time.Second,
		}
	case ErrNoSpeech:
		return errorNotice{
			Message:  "⚠️ No se detectó voz. Intenta hablar más cerca del micrófono.",
			Severity: types.SeverityWarning,
			TTL:      4 * time.Second,
		}
	case ErrAudioCapture:
		return errorNotice{
			Message:  "❌ No se pudo acceder al micrófono. Verifica que esté conectado.",
			Severity: types.SeverityDanger,
			TTL:      5 * time.Second,
		}
	case ErrNetwork:
		return errorNotice{
			Message:  "❌ Error de red. Verifica tu conexión a internet.",
			Severity: types.SeverityDanger,
			TTL:      5 * time.Second,
		}
	default:
		return errorNotice{
			Message:  fmt.Sprintf("⚠️ Error en reconocimiento de voz: %s", class),
			Severity: types.SeverityWarning,
			TTL:      4 * time.Second,
		}
	}
}
