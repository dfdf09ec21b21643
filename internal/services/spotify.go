// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"github.com/desertthunder/spx/internal/models"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track. Simplified tracks (album listings) leave Album empty.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	IsLocal    bool            `json:"is_local"`
	URI        string          `json:"uri"`
}

// Owner is a playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       Owner             `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      playlistTracksRef `json:"tracks"`
	Images      []SpotifyImage    `json:"images"`
	URI         string            `json:"uri"`
}

// SpotifyPlaylistItem represents a track within a playlist context. Track is null for removed content.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlayHistory is one recently-played entry.
type SpotifyPlayHistory struct {
	Track    SpotifyTrack `json:"track"`
	PlayedAt string       `json:"played_at"`
}

// Paging is the Web API paging envelope.
type Paging[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// SpotifySearchResponse is the /search envelope. Playlist items can be null.
type SpotifySearchResponse struct {
	Tracks    *Paging[SpotifyTrack]           `json:"tracks"`
	Albums    *Paging[SpotifyAlbum]           `json:"albums"`
	Artists   *Paging[SpotifyArtist]          `json:"artists"`
	Playlists *Paging[*SpotifySimplePlaylist] `json:"playlists"`
}

// SpotifyNewReleases is the /browse/new-releases envelope.
type SpotifyNewReleases struct {
	Albums Paging[SpotifyAlbum] `json:"albums"`
}

// SpotifySeveralTracks is the /tracks?ids= envelope; unknown ids come back null.
type SpotifySeveralTracks struct {
	Tracks []*SpotifyTrack `json:"tracks"`
}

// TokenResponse is the accounts service token payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func images(in []SpotifyImage) []models.Image {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Image, len(in))
	for i, img := range in {
		out[i] = models.Image{URL: img.URL, Width: img.Width, Height: img.Height}
	}
	return out
}

// Model converts to [models.Artist].
func (a SpotifyArtist) Model() models.Artist {
	return models.Artist{ID: a.ID, Name: a.Name, URI: a.URI}
}

func artists(in []SpotifyArtist) []models.Artist {
	out := make([]models.Artist, len(in))
	for i, a := range in {
		out[i] = a.Model()
	}
	return out
}

// Model converts to [models.Album].
func (a SpotifyAlbum) Model() models.Album {
	return models.Album{
		ID:          a.ID,
		Name:        a.Name,
		Artists:     artists(a.Artists),
		ReleaseDate: a.ReleaseDate,
		TotalTracks: a.TotalTracks,
		Images:      images(a.Images),
		URI:         a.URI,
	}
}

// Model converts to [models.Track].
func (t SpotifyTrack) Model() models.Track {
	return models.Track{
		ID:         t.ID,
		URI:        t.URI,
		Name:       t.Name,
		Artists:    artists(t.Artists),
		Album:      t.Album.Model(),
		DurationMS: t.DurationMS,
		Explicit:   t.Explicit,
	}
}

// Model converts to [models.Playlist].
func (p SpotifySimplePlaylist) Model() models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Images:      images(p.Images),
		OwnerID:     p.Owner.ID,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public,
		URI:         p.URI,
	}
}

// Model converts to [models.User].
func (u SpotifyUser) Model() models.User {
	return models.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Country:     u.Country,
		Product:     u.Product,
		Images:      images(u.Images),
	}
}

// Tracks converts a track slice, skipping local files.
func Tracks(in []SpotifyTrack) []models.Track {
	out := make([]models.Track, 0, len(in))
	for _, t := range in {
		if t.IsLocal || t.ID == "" {
			continue
		}
		out = append(out, t.Model())
	}
	return out
}

// PlaylistItemTracks converts playlist entries, skipping null and local tracks.
func PlaylistItemTracks(in []SpotifyPlaylistItem) []models.Track {
	out := make([]models.Track, 0, len(in))
	for _, item := range in {
		if item.Track == nil || item.Track.IsLocal || item.Track.ID == "" {
			continue
		}
		out = append(out, item.Track.Model())
	}
	return out
}

// Playlists converts playlist summaries, skipping null entries.
func Playlists(in []*SpotifySimplePlaylist) []models.Playlist {
	out := make([]models.Playlist, 0, len(in))
	for _, p := range in {
		if p == nil {
			continue
		}
		out = append(out, p.Model())
	}
	return out
}

// Model converts the search envelope to [models.SearchResults].
func (r SpotifySearchResponse) Model() models.SearchResults {
	res := models.SearchResults{
		Tracks:    []models.Track{},
		Albums:    []models.Album{},
		Artists:   []models.Artist{},
		Playlists: []models.Playlist{},
	}
	if r.Tracks != nil {
		res.Tracks = Tracks(r.Tracks.Items)
	}
	if r.Albums != nil {
		for _, a := range r.Albums.Items {
			res.Albums = append(res.Albums, a.Model())
		}
	}
	if r.Artists != nil {
		res.Artists = artists(r.Artists.Items)
	}
	if r.Playlists != nil {
		res.Playlists = Playlists(r.Playlists.Items)
	}
	return res
}
