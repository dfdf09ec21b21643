package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

type fakeLibrary struct {
	mu          sync.Mutex
	playlists   []models.Playlist
	tracks      map[string][]models.Track
	failTracks  map[string]bool
	playlistErr error
	forced      []bool
}

func (f *fakeLibrary) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return f.playlists, f.playlistErr
}

func (f *fakeLibrary) PlaylistTracks(ctx context.Context, id string, forceRefresh bool) ([]models.Track, error) {
	f.mu.Lock()
	f.forced = append(f.forced, forceRefresh)
	f.mu.Unlock()
	if f.failTracks[id] {
		return nil, errors.New("boom")
	}
	return f.tracks[id], nil
}

func newFakeLibrary() *fakeLibrary {
	track := func(id, name string) models.Track {
		return models.Track{
			ID:         id,
			URI:        "spotify:track:" + id,
			Name:       name,
			Artists:    []models.Artist{{Name: "Artist"}},
			DurationMS: 180000,
		}
	}
	return &fakeLibrary{
		playlists: []models.Playlist{
			{ID: "p1", Name: "Road Trip", TrackCount: 2},
			{ID: "p2", Name: "Focus", TrackCount: 1},
			{ID: "p3", Name: "Sleep", TrackCount: 0},
		},
		tracks: map[string][]models.Track{
			"p1": {track("t1", "One"), track("t2", "Two")},
			"p2": {track("t3", "Three")},
		},
		failTracks: map[string]bool{},
	}
}

func TestBulkExport(t *testing.T) {
	tests := []struct {
		name        string
		format      formatter.Format
		ids         []string
		wantSuccess int
		wantFiles   []string
	}{
		{
			name:        "all playlists as json",
			format:      formatter.JSON,
			wantSuccess: 3,
			wantFiles:   []string{"p1.json", "p2.json", "p3.json"},
		},
		{
			name:        "selected playlists as csv",
			format:      formatter.CSV,
			ids:         []string{"p2", "p1"},
			wantSuccess: 2,
			wantFiles:   []string{"p2.csv", "p1.csv"},
		},
		{
			name:        "text",
			format:      formatter.Text,
			ids:         []string{"p1"},
			wantSuccess: 1,
			wantFiles:   []string{"p1.txt"},
		},
		{
			name:        "markdown directories",
			format:      formatter.Markdown,
			ids:         []string{"p1"},
			wantSuccess: 1,
			wantFiles:   []string{filepath.Join("p1", "README.md")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			lib := newFakeLibrary()

			result, err := BulkExport(context.Background(), nil, lib, tt.ids, BulkExportOpts{
				Format:    tt.format,
				OutputDir: dir,
				RateLimit: 1000,
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if result.SuccessfulExports != tt.wantSuccess {
				t.Errorf("expected %d successful exports, got %d", tt.wantSuccess, result.SuccessfulExports)
			}
			if result.FailedExports != 0 {
				t.Errorf("expected no failures, got %d", result.FailedExports)
			}
			for i, name := range tt.wantFiles {
				path := filepath.Join(dir, name)
				if _, err := os.Stat(path); err != nil {
					t.Errorf("expected %s to exist: %v", path, err)
				}
				if result.Results[i].Files[len(result.Results[i].Files)-1] != path {
					t.Errorf("expected result %d to end with %s, got %v", i, path, result.Results[i].Files)
				}
			}
			for _, forced := range lib.forced {
				if !forced {
					t.Error("expected track listings to bypass the cache")
				}
			}
			if result.ManifestPath != filepath.Join(dir, ManifestFile) {
				t.Errorf("unexpected manifest path %s", result.ManifestPath)
			}
		})
	}
}

func TestBulkExportOrder(t *testing.T) {
	lib := newFakeLibrary()
	result, err := BulkExport(context.Background(), nil, lib, []string{"p3", "p1", "p2"}, BulkExportOpts{
		Format:     formatter.JSON,
		OutputDir:  t.TempDir(),
		NumWorkers: 3,
		RateLimit:  1000,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := []string{}
	for _, r := range result.Results {
		got = append(got, r.PlaylistID)
	}
	want := []string{"p3", "p1", "p2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
	if result.Results[1].TrackCount != 2 || result.Results[1].PlaylistName != "Road Trip" {
		t.Errorf("unexpected result %+v", result.Results[1])
	}
}

func TestBulkExportFailures(t *testing.T) {
	t.Run("track fetch failure is recorded", func(t *testing.T) {
		dir := t.TempDir()
		lib := newFakeLibrary()
		lib.failTracks["p2"] = true

		result, err := BulkExport(context.Background(), nil, lib, nil, BulkExportOpts{
			Format:    formatter.JSON,
			OutputDir: dir,
			RateLimit: 1000,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.SuccessfulExports != 2 || result.FailedExports != 1 {
			t.Errorf("expected 2/1, got %d/%d", result.SuccessfulExports, result.FailedExports)
		}

		failed := result.Results[1]
		if failed.Success || failed.PlaylistID != "p2" || failed.Error == nil {
			t.Errorf("unexpected failed result %+v", failed)
		}
		if failed.ErrorMessage == "" {
			t.Error("expected error message for the manifest")
		}
	})

	t.Run("unknown playlist id", func(t *testing.T) {
		lib := newFakeLibrary()
		result, err := BulkExport(context.Background(), nil, lib, []string{"zz"}, BulkExportOpts{
			OutputDir: t.TempDir(),
			RateLimit: 1000,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Results[0].PlaylistName != "Unknown (zz)" {
			t.Errorf("expected placeholder name, got %s", result.Results[0].PlaylistName)
		}
	})

	t.Run("playlist listing failure", func(t *testing.T) {
		lib := newFakeLibrary()
		lib.playlistErr = errors.New("down")
		if _, err := BulkExport(context.Background(), nil, lib, nil, BulkExportOpts{OutputDir: t.TempDir()}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("nil library", func(t *testing.T) {
		_, err := BulkExport(context.Background(), nil, nil, nil, BulkExportOpts{})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		lib := newFakeLibrary()
		lib.playlists = nil
		_, err := BulkExport(ctx, nil, lib, []string{"p1"}, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestBulkExportManifest(t *testing.T) {
	dir := t.TempDir()
	lib := newFakeLibrary()

	result, err := BulkExport(context.Background(), nil, lib, []string{"p1"}, BulkExportOpts{
		Format:    formatter.CSV,
		OutputDir: dir,
		RateLimit: 1000,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	data, err := os.ReadFile(result.ManifestPath)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}

	var manifest map[string]any
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	if manifest["format"] != "csv" {
		t.Errorf("expected format csv, got %v", manifest["format"])
	}
	if manifest["total_playlists"] != float64(1) {
		t.Errorf("expected 1 playlist, got %v", manifest["total_playlists"])
	}
	results, ok := manifest["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("expected 1 result, got %v", manifest["results"])
	}
	if first := results[0].(map[string]any); first["playlist_name"] != "Road Trip" {
		t.Errorf("unexpected result %v", first)
	}
}

func TestProgressUpdates(t *testing.T) {
	prog := make(chan ProgressUpdate, 32)
	lib := newFakeLibrary()

	if _, err := BulkExport(context.Background(), prog, lib, []string{"p1", "p2"}, BulkExportOpts{
		OutputDir: t.TempDir(),
		RateLimit: 1000,
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	close(prog)

	counts := map[Phase]int{}
	for u := range prog {
		counts[u.Phase]++
		if u.Phase.String() == "" {
			t.Errorf("phase %d has no name", u.Phase)
		}
	}
	if counts[FetchPlaylists] != 1 || counts[FetchTracks] != 2 || counts[ExportPlaylist] != 2 || counts[WriteManifest] != 1 {
		t.Errorf("unexpected phase counts %v", counts)
	}

	t.Run("full channel does not block", func(t *testing.T) {
		full := make(chan ProgressUpdate)
		sendProgress(full, fetchingPlaylistsUpdate())
		sendProgress(nil, fetchingPlaylistsUpdate())
	})
}
