// Package playback binds a single Spotify Connect device and mirrors its
// state locally.
//
// A [Controller] moves through Uninitialized, Connecting, Ready and then
// Disconnected or Error. Local commands update the mirror immediately and
// device events overwrite it, except for fields held by a suppression window
// (repeat mode after a toggle, position after a seek). Device level failures
// are fatal and log the session out.
package playback
