package app

// Event names emitted to the host.
const (
	EventListening     = "voice-listening"  // data: bool
	EventSessionStatus = "session-status"   // data: string
	EventHotkey        = "hotkey-available" // data: bool
)
