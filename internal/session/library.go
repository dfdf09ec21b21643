package session

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
)

const (
	searchLimit      = 10
	listLimit        = 20
	playlistPageSize = 50
	tracksPageSize   = 100
	albumPageSize    = 50
	severalTracksMax = 50
)

// Search queries the catalog. kind is a comma separated list of track, album,
// artist and playlist and defaults to track.
func (s *Session) Search(ctx context.Context, query, kind string) (models.SearchResults, error) {
	query = strings.TrimSpace(query)
	if kind == "" {
		kind = "track"
	}

	token, ok := s.accessToken(ctx)
	if !ok || query == "" {
		return services.SpotifySearchResponse{}.Model(), nil
	}

	return cached(s.cache, SearchKey(kind, query), func() (models.SearchResults, error) {
		var resp services.SpotifySearchResponse
		q := url.Values{"q": {query}, "type": {kind}, "limit": {strconv.Itoa(searchLimit)}}
		if err := s.get(ctx, token, "/search", q, &resp); err != nil {
			return models.SearchResults{}, fmt.Errorf("search failed: %w", err)
		}
		return resp.Model(), nil
	})
}

// UserPlaylists returns every playlist the user follows or owns.
func (s *Session) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	token, ok := s.accessToken(ctx)
	if !ok {
		return []models.Playlist{}, nil
	}

	return cached(s.cache, KeyPlaylists, func() ([]models.Playlist, error) {
		playlists := []models.Playlist{}
		for offset := 0; ; offset += playlistPageSize {
			var page services.Paging[*services.SpotifySimplePlaylist]
			q := url.Values{"limit": {strconv.Itoa(playlistPageSize)}, "offset": {strconv.Itoa(offset)}}
			if err := s.get(ctx, token, "/me/playlists", q, &page); err != nil {
				return nil, fmt.Errorf("failed to fetch playlists: %w", err)
			}
			playlists = append(playlists, services.Playlists(page.Items)...)
			if page.Next == nil || len(page.Items) == 0 {
				break
			}
		}
		return playlists, nil
	})
}

// PlaylistTracks returns the tracks of a playlist. forceRefresh skips the cache.
func (s *Session) PlaylistTracks(ctx context.Context, playlistID string, forceRefresh bool) ([]models.Track, error) {
	token, ok := s.accessToken(ctx)
	if !ok || playlistID == "" {
		return []models.Track{}, nil
	}

	key := PlaylistTracksKey(playlistID)
	if forceRefresh {
		s.cache.Invalidate(key)
	}

	return cached(s.cache, key, func() ([]models.Track, error) {
		tracks := []models.Track{}
		for offset := 0; ; offset += tracksPageSize {
			var page services.Paging[services.SpotifyPlaylistItem]
			q := url.Values{"limit": {strconv.Itoa(tracksPageSize)}, "offset": {strconv.Itoa(offset)}}
			path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
			if err := s.get(ctx, token, path, q, &page); err != nil {
				return nil, fmt.Errorf("failed to fetch playlist tracks: %w", err)
			}
			tracks = append(tracks, services.PlaylistItemTracks(page.Items)...)
			if page.Next == nil || len(page.Items) == 0 {
				break
			}
		}
		return tracks, nil
	})
}

// RecentlyPlayed returns the last 20 played tracks.
func (s *Session) RecentlyPlayed(ctx context.Context) ([]models.Track, error) {
	token, ok := s.accessToken(ctx)
	if !ok {
		return []models.Track{}, nil
	}

	return cached(s.cache, KeyRecent, func() ([]models.Track, error) {
		var page services.Paging[services.SpotifyPlayHistory]
		q := url.Values{"limit": {strconv.Itoa(listLimit)}}
		if err := s.get(ctx, token, "/me/player/recently-played", q, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch recently played: %w", err)
		}

		tracks := make([]services.SpotifyTrack, len(page.Items))
		for i, item := range page.Items {
			tracks[i] = item.Track
		}
		return services.Tracks(tracks), nil
	})
}

// FeaturedPlaylists returns the first 20 of the user's playlists. Failures
// are logged and cached as an empty list.
func (s *Session) FeaturedPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if _, ok := s.accessToken(ctx); !ok {
		return []models.Playlist{}, nil
	}

	return cached(s.cache, KeyFeatured, func() ([]models.Playlist, error) {
		playlists, err := s.UserPlaylists(ctx)
		if err != nil {
			s.logger.Warn("featured playlists unavailable", "error", err)
			return []models.Playlist{}, nil
		}
		if len(playlists) > listLimit {
			playlists = playlists[:listLimit]
		}
		return playlists, nil
	})
}

// NewReleases returns 20 new album releases. Failures are logged and cached
// as an empty list.
func (s *Session) NewReleases(ctx context.Context) ([]models.Album, error) {
	token, ok := s.accessToken(ctx)
	if !ok {
		return []models.Album{}, nil
	}

	return cached(s.cache, KeyNewReleases, func() ([]models.Album, error) {
		var resp services.SpotifyNewReleases
		q := url.Values{"limit": {strconv.Itoa(listLimit)}}
		if err := s.get(ctx, token, "/browse/new-releases", q, &resp); err != nil {
			s.logger.Warn("new releases unavailable", "error", err)
			return []models.Album{}, nil
		}

		albums := make([]models.Album, 0, len(resp.Albums.Items))
		for _, a := range resp.Albums.Items {
			albums = append(albums, a.Model())
		}
		return albums, nil
	})
}

// AlbumTracks lists an album's tracks and re-fetches them as full tracks so
// they carry album artwork.
func (s *Session) AlbumTracks(ctx context.Context, albumID string) ([]models.Track, error) {
	token, ok := s.accessToken(ctx)
	if !ok || albumID == "" {
		return []models.Track{}, nil
	}

	return cached(s.cache, AlbumTracksKey(albumID), func() ([]models.Track, error) {
		var ids []string
		for offset := 0; ; offset += albumPageSize {
			var page services.Paging[services.SpotifyTrack]
			q := url.Values{"limit": {strconv.Itoa(albumPageSize)}, "offset": {strconv.Itoa(offset)}}
			if err := s.get(ctx, token, "/albums/"+url.PathEscape(albumID)+"/tracks", q, &page); err != nil {
				return nil, fmt.Errorf("failed to fetch album tracks: %w", err)
			}
			for _, t := range page.Items {
				if t.ID != "" {
					ids = append(ids, t.ID)
				}
			}
			if page.Next == nil || len(page.Items) == 0 {
				break
			}
		}

		tracks := []models.Track{}
		for _, chunk := range chunks(ids, severalTracksMax) {
			var resp services.SpotifySeveralTracks
			q := url.Values{"ids": {strings.Join(chunk, ",")}}
			if err := s.get(ctx, token, "/tracks", q, &resp); err != nil {
				return nil, fmt.Errorf("failed to fetch tracks: %w", err)
			}
			for _, t := range resp.Tracks {
				if t != nil {
					tracks = append(tracks, t.Model())
				}
			}
		}
		return tracks, nil
	})
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
