package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

const playlistBatchSize = 100

type uriRef struct {
	URI string `json:"uri"`
}

// ownerError maps a 403 on a playlist mutation to [shared.ErrNotOwner].
func ownerError(err error) error {
	if services.StatusCode(err) == http.StatusForbidden {
		return fmt.Errorf("%w: %v", shared.ErrNotOwner, err)
	}
	return err
}

// CreatePlaylist creates a private playlist owned by the current user.
func (s *Session) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	user, err := s.User(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	var created services.SpotifySimplePlaylist
	err = s.api.DoJSON(ctx, services.Request{
		Method: http.MethodPost,
		Path:   "/users/" + url.PathEscape(user.ID) + "/playlists",
		Token:  token,
		JSON: map[string]any{
			"name":        name,
			"description": description,
			"public":      false,
		},
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	s.cache.Invalidate(KeyPlaylists, KeyFeatured)
	p := created.Model()
	return &p, nil
}

// DeletePlaylist unfollows the playlist, which deletes it for its owner.
func (s *Session) DeletePlaylist(ctx context.Context, playlistID string) error {
	token, err := s.requireToken(ctx)
	if err != nil {
		return err
	}
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	_, err = s.api.Do(ctx, services.Request{
		Method: http.MethodDelete,
		Path:   "/playlists/" + url.PathEscape(playlistID) + "/followers",
		Token:  token,
	})
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", ownerError(err))
	}

	s.cache.Invalidate(KeyPlaylists, KeyFeatured, PlaylistTracksKey(playlistID))
	return nil
}

// AddTracks appends track URIs to a playlist in batches of 100.
func (s *Session) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	return s.mutateTracks(ctx, playlistID, uris, http.MethodPost, func(batch []string) any {
		return map[string][]string{"uris": batch}
	})
}

// RemoveTracks removes every occurrence of the track URIs from a playlist.
func (s *Session) RemoveTracks(ctx context.Context, playlistID string, uris []string) error {
	return s.mutateTracks(ctx, playlistID, uris, http.MethodDelete, func(batch []string) any {
		refs := make([]uriRef, len(batch))
		for i, u := range batch {
			refs[i] = uriRef{URI: u}
		}
		return map[string][]uriRef{"tracks": refs}
	})
}

func (s *Session) mutateTracks(ctx context.Context, playlistID string, uris []string, method string, body func([]string) any) error {
	token, err := s.requireToken(ctx)
	if err != nil {
		return err
	}
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if len(uris) == 0 {
		return nil
	}

	defer s.cache.Invalidate(PlaylistTracksKey(playlistID))

	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	for _, batch := range chunks(uris, playlistBatchSize) {
		_, err := s.api.Do(ctx, services.Request{Method: method, Path: path, Token: token, JSON: body(batch)})
		if err != nil {
			return fmt.Errorf("failed to update playlist tracks: %w", ownerError(err))
		}
	}
	return nil
}
