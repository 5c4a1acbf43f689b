// Package recognition turns a continuous speech-capture engine into an
// explicit on/off state machine with auto-restart and typed error recovery.
package recognition

import (
	"fmt"

	"go.aimuz.me/labvoz/internal/types"
)

// Engine is the speech-capture engine. A run begins with Start and ends with
// exactly one EventEnd or EventError emitted through emit, or with Stop.
// Only the Controller may call Start and Stop, and emit must not be called
// from inside Start.
type Engine interface {
	Start(emit func(Event)) error
	Stop() error
}

// EventType identifies what the engine reports.
type EventType int

const (
	EventEnd    EventType = iota + 1 // Natural end of utterance
	EventError                       // Recognition failed; the run is over
	EventResult                      // A transcript, interim or final
)

func (t EventType) String() string {
	switch t {
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	case EventResult:
		return "result"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// ErrorClass classifies recognition errors.
type ErrorClass string

const (
	ErrPermissionDenied ErrorClass = "not-allowed"
	ErrServiceDenied    ErrorClass = "service-not-allowed"
	ErrNoSpeech         ErrorClass = "no-speech"
	ErrAudioCapture     ErrorClass = "audio-capture"
	ErrNetwork          ErrorClass = "network"
	ErrAborted          ErrorClass = "aborted"
)

// Event is a single engine notification.
type Event struct {
	Type       EventType
	Class      ErrorClass       // EventError only
	Err        error            // EventError only, optional detail
	Transcript types.Transcript // EventResult only
	Final      bool             // EventResult only

	epoch uint64
}

// End builds an end-of-utterance event.
func End() Event { return Event{Type: EventEnd} }

// Error builds an error event of the given class.
func Error(class ErrorClass, err error) Event {
	return Event{Type: EventError, Class: class, Err: err}
}

// Result builds a transcript event.
func Result(t types.Transcript, final bool) Event {
	return Event{Type: EventResult, Transcript: t, Final: final}
}
