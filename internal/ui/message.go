package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/playback"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgTracksFetched
	MsgStateChanged
	MsgPlayerClosed
	MsgCommandDone
)

type playlistsPayload struct {
	playlists []models.Playlist
	err       error
}

type tracksPayload struct {
	title  string
	view   ViewState
	tracks []models.Track
	err    error
}

type commandPayload struct {
	action string
	err    error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsPayload{playlists, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]. view is the
// view the tracks belong to.
func tracksFetchedMsg(title string, view ViewState, tracks []models.Track, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksPayload{title, view, tracks, err}}
}

// stateChangedMsg is the constructor for [MsgStateChanged]
func stateChangedMsg(st playback.State) Msg {
	return Msg{kind: MsgStateChanged, data: st}
}

// playerClosedMsg is the constructor for [MsgPlayerClosed]
func playerClosedMsg() Msg {
	return Msg{kind: MsgPlayerClosed}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(action string, err error) Msg {
	return Msg{kind: MsgCommandDone, data: commandPayload{action, err}}
}
