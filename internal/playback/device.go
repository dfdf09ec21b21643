package playback

import (
	"context"

	"github.com/desertthunder/spx/internal/models"
)

// EventKind names a device event.
type EventKind string

const (
	EventReady               EventKind = "ready"
	EventNotReady            EventKind = "not_ready"
	EventStateChanged        EventKind = "state_changed"
	EventInitializationError EventKind = "initialization_error"
	EventAuthenticationError EventKind = "authentication_error"
	EventAccountError        EventKind = "account_error"
)

// Fatal reports whether the event ends the device connection.
func (k EventKind) Fatal() bool {
	switch k {
	case EventNotReady, EventInitializationError, EventAuthenticationError, EventAccountError:
		return true
	}
	return false
}

// Event is emitted by a [Device]. DeviceID is set on ready, State on
// state_changed and Err on the error kinds.
type Event struct {
	Kind     EventKind
	DeviceID string
	State    *DeviceState
	Err      error
}

// DeviceState is an authoritative playback report. Volume is nil when the
// device does not report it.
type DeviceState struct {
	Track    *models.Track
	Paused   bool
	Position int
	Duration int
	Repeat   RepeatMode
	Volume   *int
}

// Device is a playback endpoint the controller binds to.
type Device interface {
	Connect(ctx context.Context) error
	On(kind EventKind, fn func(Event))
	Disconnect() error
}

// Transport is implemented by devices with native transport commands. Volume is a percentage.
type Transport interface {
	TogglePlay(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	Seek(ctx context.Context, positionMS int) error
	SetVolume(ctx context.Context, percent int) error
}
