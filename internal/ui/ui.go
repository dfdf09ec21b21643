package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/playback"
	"github.com/desertthunder/spx/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistsView ViewState = iota
	TracksView
	SearchView
)

// Library is the read side of the session used by the TUI.
type Library interface {
	UserPlaylists(ctx context.Context) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string, forceRefresh bool) ([]models.Track, error)
	Search(ctx context.Context, query, kind string) (models.SearchResults, error)
}

// Player is the playback surface driven by the TUI. [*playback.Controller]
// implements it.
type Player interface {
	Snapshot() playback.State
	Subscribe() (<-chan playback.State, func())
	Play(ctx context.Context, uri string, uris []string, offset int) error
	TogglePlay(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	ChangeVolume(ctx context.Context, percent int) error
	Seek(ctx context.Context, positionMS int) error
	ToggleRepeat(ctx context.Context) (playback.RepeatMode, error)
}

// chromeHeight is the number of rows reserved for the now-playing bar, the
// status line and help.
const chromeHeight = 8

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	library     Library
	player      Player
	width       int
	height      int
	playlists   list.Model
	tracks      list.Model
	results     list.Model
	input       textinput.Model
	typing      bool
	selected    *models.Playlist
	state       playback.State
	states      <-chan playback.State
	unsubscribe func()
	bar         progress.Model
	status      string
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model. player may be nil for a browse-only session.
func NewModel(ctx context.Context, library Library, player Player) *Model {
	input := textinput.New()
	input.Placeholder = "Search tracks"
	input.Prompt = "/ "
	input.CharLimit = 200

	m := &Model{
		ctx:       ctx,
		view:      PlaylistsView,
		library:   library,
		player:    player,
		playlists: newList("Playlists"),
		tracks:    newList("Tracks"),
		results:   newList("Search"),
		input:     input,
		bar:       progress.New(progress.WithSolidFill(styles.accent), progress.WithoutPercentage()),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	if player != nil {
		m.state = player.Snapshot()
		m.states, m.unsubscribe = player.Subscribe()
	}
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Init fetches playlists and starts listening for player state.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchPlaylists(), m.waitForState())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case Msg:
		return m.handleMsg(msg)
	}
	return m.updateActive(msg)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	h := max(height-chromeHeight, 4)
	m.playlists.SetSize(width-4, h)
	m.tracks.SetSize(width-4, h)
	m.results.SetSize(width-4, h-2)
	m.input.Width = max(width-8, 10)
	m.bar.Width = max(width-20, 10)
	m.help.Width = width
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		p := msg.data.(playlistsPayload)
		if p.err != nil {
			m.err = p.err
			return m, nil
		}
		return m, m.playlists.SetItems(playlistItems(p.playlists))

	case MsgTracksFetched:
		p := msg.data.(tracksPayload)
		if p.err != nil {
			m.status = p.err.Error()
			return m, nil
		}
		m.status = ""
		target := &m.tracks
		if p.view == SearchView {
			target = &m.results
		}
		target.Title = p.title
		cmd := target.SetItems(trackItems(p.tracks))
		target.Select(0)
		m.view = p.view
		return m, cmd

	case MsgStateChanged:
		m.state = msg.data.(playback.State)
		return m, m.waitForState()

	case MsgPlayerClosed:
		m.states = nil
		return m, nil

	case MsgCommandDone:
		p := msg.data.(commandPayload)
		if p.err != nil {
			m.status = fmt.Sprintf("%s: %v", p.action, p.err)
		} else {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) activeList() *list.Model {
	switch m.view {
	case TracksView:
		return &m.tracks
	case SearchView:
		return &m.results
	default:
		return &m.playlists
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.forceQuit) {
		return m, m.quit()
	}
	if m.typing {
		return m.handleInput(msg)
	}
	if m.activeList().FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.back):
		if m.activeList().FilterState() == list.FilterApplied {
			return m.updateActive(msg)
		}
		m.view = PlaylistsView
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		m.typing = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.refresh):
		if m.view == TracksView && m.selected != nil {
			return m, m.fetchTracks(*m.selected, true)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		return m, m.selectItem()
	case key.Matches(msg, m.keys.play):
		return m, m.command("play/pause", m.playerCall(Player.TogglePlay))
	case key.Matches(msg, m.keys.next):
		return m, m.command("next", m.playerCall(Player.NextTrack))
	case key.Matches(msg, m.keys.prev):
		return m, m.command("previous", m.playerCall(Player.PreviousTrack))
	case key.Matches(msg, m.keys.forward):
		return m, m.seek(seekStepMS)
	case key.Matches(msg, m.keys.rewind):
		return m, m.seek(-seekStepMS)
	case key.Matches(msg, m.keys.volUp):
		return m, m.volume(volumeStep)
	case key.Matches(msg, m.keys.volDown):
		return m, m.volume(-volumeStep)
	case key.Matches(msg, m.keys.repeat):
		return m, m.command("repeat", m.playerCall(func(p Player, ctx context.Context) error {
			_, err := p.ToggleRepeat(ctx)
			return err
		}))
	}
	return m.updateActive(msg)
}

func (m *Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		query := strings.TrimSpace(m.input.Value())
		m.typing = false
		m.input.Blur()
		if query == "" {
			return m, nil
		}
		return m, m.fetchSearch(query)
	case tea.KeyEsc:
		m.typing = false
		m.input.Blur()
		if len(m.results.Items()) == 0 {
			m.view = PlaylistsView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	l := m.activeList()
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

func (m *Model) selectItem() tea.Cmd {
	l := m.activeList()
	switch item := l.SelectedItem().(type) {
	case playlistItem:
		pl := item.playlist
		m.selected = &pl
		return m.fetchTracks(pl, false)
	case trackItem:
		uris := listURIs(*l)
		offset := max(slices.Index(uris, item.track.URI), 0)
		uri := item.track.URI
		return m.command("play", m.playerCall(func(p Player, ctx context.Context) error {
			return p.Play(ctx, uri, uris, offset)
		}))
	}
	return nil
}

func (m *Model) playerCall(fn func(Player, context.Context) error) func(context.Context) error {
	if m.player == nil {
		return nil
	}
	p := m.player
	return func(ctx context.Context) error { return fn(p, ctx) }
}

// command runs fn off the update loop and reports its error.
func (m *Model) command(action string, fn func(context.Context) error) tea.Cmd {
	if fn == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg(action, fn(ctx))
	}
}

func (m *Model) seek(deltaMS int) tea.Cmd {
	target := m.state.Position + deltaMS
	return m.command("seek", m.playerCall(func(p Player, ctx context.Context) error {
		return p.Seek(ctx, target)
	}))
}

func (m *Model) volume(delta int) tea.Cmd {
	target := max(0, min(m.state.Volume+delta, 100))
	return m.command("volume", m.playerCall(func(p Player, ctx context.Context) error {
		return p.ChangeVolume(ctx, target)
	}))
}

func (m *Model) quit() tea.Cmd {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return tea.Quit
}

func (m *Model) fetchPlaylists() tea.Cmd {
	ctx, lib := m.ctx, m.library
	return func() tea.Msg {
		playlists, err := lib.UserPlaylists(ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchTracks(pl models.Playlist, forceRefresh bool) tea.Cmd {
	ctx, lib := m.ctx, m.library
	return func() tea.Msg {
		tracks, err := lib.PlaylistTracks(ctx, pl.ID, forceRefresh)
		return tracksFetchedMsg(pl.Name, TracksView, tracks, err)
	}
}

func (m *Model) fetchSearch(query string) tea.Cmd {
	ctx, lib := m.ctx, m.library
	return func() tea.Msg {
		res, err := lib.Search(ctx, query, "track")
		return tracksFetchedMsg(fmt.Sprintf("Results for %q", query), SearchView, res.Tracks, err)
	}
}

func (m *Model) waitForState() tea.Cmd {
	states := m.states
	if states == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return playerClosedMsg()
		}
		return stateChangedMsg(st)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.failure.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var body string
	switch m.view {
	case TracksView:
		body = m.tracks.View()
	case SearchView:
		body = fmt.Sprintf("%s\n\n%s", m.input.View(), m.results.View())
	default:
		body = m.playlists.View()
	}

	parts := []string{body, styles.nowPlaying.Width(max(m.width-2, 0)).Render(renderNowPlaying(m.state, m.bar))}
	if m.status != "" {
		parts = append(parts, styles.status.Render(m.status))
	}
	parts = append(parts, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderNowPlaying draws the player summary for st.
func renderNowPlaying(st playback.State, bar progress.Model) string {
	switch st.Status {
	case playback.StatusConnecting:
		return styles.status.Render("Connecting to device...")
	case playback.StatusError:
		msg := "Player error"
		if st.Err != nil {
			msg = fmt.Sprintf("Player error: %v", st.Err)
		}
		return styles.failure.Render(msg)
	case playback.StatusReady:
	default:
		return styles.muted.Render("Player offline")
	}

	if st.Track == nil {
		return styles.muted.Render("Nothing playing")
	}

	icon := "▶"
	if st.Paused {
		icon = "⏸"
	}
	title := fmt.Sprintf("%s %s - %s", icon, styles.track.Render(st.Track.Name), st.Track.ArtistNames())

	pct := 0.0
	if st.Duration > 0 {
		pct = float64(st.Position) / float64(st.Duration)
	}
	timeline := fmt.Sprintf("%s %s / %s", bar.ViewAs(pct), shared.FormatDuration(st.Position), shared.FormatDuration(st.Duration))

	details := []string{fmt.Sprintf("vol %d%%", st.Volume), fmt.Sprintf("repeat %s", st.Repeat)}
	if n := len(st.Queue.URIs); n > 1 {
		details = append(details, fmt.Sprintf("queue %d/%d", st.Queue.Offset+1, n))
	}
	return strings.Join([]string{title, timeline, styles.muted.Render(strings.Join(details, " • "))}, "\n")
}
