package playback

import (
	"time"

	"github.com/desertthunder/spx/internal/models"
)

// RepeatMode is one of off, track or context.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatTrack   RepeatMode = "track"
	RepeatContext RepeatMode = "context"
)

// Next cycles off → track → context → off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatTrack
	case RepeatTrack:
		return RepeatContext
	default:
		return RepeatOff
	}
}

// ParseRepeatMode accepts the names and the numeric form 0, 1, 2.
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch s {
	case "off", "0":
		return RepeatOff, true
	case "track", "1":
		return RepeatTrack, true
	case "context", "2":
		return RepeatContext, true
	}
	return "", false
}

// Status is the connection phase of a [Controller].
type Status int

const (
	StatusUninitialized Status = iota
	StatusConnecting
	StatusReady
	StatusDisconnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return "uninitialized"
	}
}

// State is the local playback mirror. Position and Duration are milliseconds.
type State struct {
	Status   Status
	DeviceID string
	Track    *models.Track
	Paused   bool
	Position int
	Duration int
	Volume   int
	Repeat   RepeatMode
	Queue    Queue
	Err      error
}

// IsReady reports whether commands can be addressed at the device.
func (s State) IsReady() bool {
	return s.Status == StatusReady && s.DeviceID != ""
}

func initialState() State {
	return State{Paused: true, Volume: 50, Repeat: RepeatOff}
}

// suppression holds the windows during which device reports for a field are ignored.
type suppression struct {
	repeatInFlight int
	repeatUntil    time.Time
	positionUntil  time.Time
}

func (s suppression) repeat(now time.Time) bool {
	return s.repeatInFlight > 0 || now.Before(s.repeatUntil)
}

func (s suppression) position(now time.Time) bool {
	return now.Before(s.positionUntil)
}

// reduce merges a device report into the local state. Track, paused and
// duration always follow the device. Position and repeat mode follow it unless
// suppressed.
func reduce(st State, ds *DeviceState, sup suppression, now time.Time) State {
	if ds == nil {
		return st
	}

	st.Track = ds.Track
	st.Paused = ds.Paused
	st.Duration = ds.Duration
	if !sup.position(now) {
		st.Position = ds.Position
	}
	if ds.Repeat != "" && !sup.repeat(now) {
		st.Repeat = ds.Repeat
	}
	if ds.Volume != nil {
		st.Volume = *ds.Volume
	}
	return st
}

// advance moves the position one step toward the duration while playing.
func advance(st State, step time.Duration) State {
	if st.Paused || st.Track == nil {
		return st
	}
	st.Position = min(st.Position+int(step.Milliseconds()), st.Duration)
	return st
}
