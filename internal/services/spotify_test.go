package services

import (
	"encoding/json"
	"testing"
)

func TestSpotifyModels(t *testing.T) {
	t.Run("SearchResponse", func(t *testing.T) {
		body := `{
			"tracks": {"items": [
				{"id": "t1", "name": "One", "uri": "spotify:track:t1", "duration_ms": 1000,
				 "artists": [{"id": "a1", "name": "Artist"}],
				 "album": {"id": "al1", "name": "Album", "images": [{"url": "http://img"}]}},
				{"id": "", "name": "Local", "is_local": true}
			]},
			"playlists": {"items": [null, {"id": "p1", "name": "Mix", "owner": {"id": "u1"}, "tracks": {"total": 7}}]}
		}`

		var resp SpotifySearchResponse
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}

		res := resp.Model()
		if len(res.Tracks) != 1 {
			t.Fatalf("expected local track to be skipped, got %d tracks", len(res.Tracks))
		}
		if res.Tracks[0].ImageURL() != "http://img" || res.Tracks[0].ArtistNames() != "Artist" {
			t.Errorf("unexpected track %+v", res.Tracks[0])
		}
		if len(res.Playlists) != 1 || res.Playlists[0].OwnerID != "u1" || res.Playlists[0].TrackCount != 7 {
			t.Errorf("unexpected playlists %+v", res.Playlists)
		}
		if res.Albums == nil || len(res.Albums) != 0 {
			t.Errorf("expected empty non-nil albums, got %v", res.Albums)
		}
	})

	t.Run("PlaylistItemTracks skips null tracks", func(t *testing.T) {
		items := []SpotifyPlaylistItem{
			{Track: &SpotifyTrack{ID: "t1", URI: "spotify:track:t1"}},
			{Track: nil},
			{Track: &SpotifyTrack{ID: "t2", IsLocal: true}},
		}

		got := PlaylistItemTracks(items)
		if len(got) != 1 || got[0].ID != "t1" {
			t.Errorf("expected only t1, got %+v", got)
		}
	})

	t.Run("User", func(t *testing.T) {
		u := SpotifyUser{ID: "u1", DisplayName: "Me", Images: []SpotifyImage{{URL: "x"}}}.Model()
		if u.ID != "u1" || u.DisplayName != "Me" || len(u.Images) != 1 {
			t.Errorf("unexpected user %+v", u)
		}
	})
}
