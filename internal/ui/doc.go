// Package ui implements the interactive player using bubbletea's Elm architecture.
//
// The TUI has three views sharing a now-playing bar:
//  1. [PlaylistsView] : Browse the user's playlists
//  2. [TracksView] : Tracks of the selected playlist; enter plays from that row
//  3. [SearchView] : Track search with a text input
//
// The [Model] receives player state through a [Player] subscription, so the
// bar follows device reports, optimistic updates and the position tick alike.
// Transport commands run as [tea.Cmd]s and report back with a command message.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
