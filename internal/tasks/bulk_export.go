package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/time/rate"
)

const ManifestFile = "export_manifest.json"

// Library is the read side of the session used by [BulkExport].
type Library interface {
	UserPlaylists(ctx context.Context) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, id string, forceRefresh bool) ([]models.Track, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: JSON)
	OutputDir  string           // Base output directory (default: spx_export_{epoch})
	NumWorkers int              // Concurrent writers (default: 5, max: 10)
	RateLimit  float64          // Track fetches per second (default: 5)
	HTTPClient *http.Client     // Used for Markdown cover downloads
}

type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	TrackCount   int      `json:"track_count"`
	ErrorMessage string   `json:"error,omitempty"`
	Error        error    `json:"-"`
}

type BulkExportResult struct {
	Format            string                 `json:"format"`
	ExportedAt        time.Time              `json:"exported_at"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

type exportJob struct {
	index  int
	export *models.PlaylistExport
}

type indexedResult struct {
	index int
	res   PlaylistExportResult
}

// BulkExport exports the playlists named by ids, or every playlist the user
// follows when ids is empty. Playlist metadata comes from one library call;
// track listings are fetched through a limiter and written by a worker pool.
// A failed playlist is recorded in the result and does not stop the others.
func BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	lib Library,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if lib == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrInvalidArgument)
	}

	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("spx_export_%d", time.Now().Unix())
	}
	opts.NumWorkers = min(max(opts.NumWorkers, 0), 10)
	if opts.NumWorkers == 0 {
		opts.NumWorkers = 5
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	sendProgress(prog, fetchingPlaylistsUpdate())
	playlists, err := lib.UserPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlists: %w", err)
	}
	known := make(map[string]models.Playlist, len(playlists))
	for _, pl := range playlists {
		known[pl.ID] = pl
	}
	if len(ids) == 0 {
		for _, pl := range playlists {
			ids = append(ids, pl.ID)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(ids)
	result := &BulkExportResult{
		Format:          string(opts.Format),
		ExportedAt:      time.Now().UTC(),
		TotalPlaylists:  total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, total)
	results := make(chan indexedResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			pl, ok := known[id]
			if !ok {
				pl = models.Playlist{ID: id, Name: fmt.Sprintf("Unknown (%s)", id)}
			}
			sendProgress(prog, fetchingTracksUpdate(i+1, total, pl.Name))

			tracks, err := lib.PlaylistTracks(ctx, id, true)
			if err != nil {
				err = fmt.Errorf("failed to fetch tracks: %w", err)
				results <- indexedResult{i, PlaylistExportResult{
					PlaylistID:   id,
					PlaylistName: pl.Name,
					Error:        err,
					ErrorMessage: err.Error(),
				}}
				continue
			}
			jobs <- exportJob{index: i, export: &models.PlaylistExport{Playlist: pl, Tracks: tracks}}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]indexedResult, 0, total)
	for r := range results {
		collected = append(collected, r)
		if r.res.Success {
			result.SuccessfulExports++
		} else {
			result.FailedExports++
		}
		sendProgress(prog, exportedPlaylistUpdate(len(collected), total, r.res))
	}
	slices.SortFunc(collected, func(a, b indexedResult) int { return a.index - b.index })
	for _, r := range collected {
		result.Results = append(result.Results, r.res)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	sendProgress(prog, writingManifestUpdate(manifestPath))
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- indexedResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- indexedResult{job.index, exportSinglePlaylist(job.export, opts)}
	}
}

func exportSinglePlaylist(export *models.PlaylistExport, opts BulkExportOpts) PlaylistExportResult {
	res := PlaylistExportResult{
		PlaylistID:   export.Playlist.ID,
		PlaylistName: export.Playlist.Name,
		TrackCount:   len(export.Tracks),
	}

	path := filepath.Join(opts.OutputDir, export.Playlist.ID+opts.Format.Ext())
	if opts.Format == formatter.Markdown {
		path = filepath.Join(opts.OutputDir, export.Playlist.ID)
	}

	written, err := formatter.WriteExport(export, opts.Format, path, opts.HTTPClient)
	if err != nil {
		res.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		res.ErrorMessage = res.Error.Error()
		return res
	}
	res.Files = written.Files
	res.Success = true
	return res
}

func writeManifest(result *BulkExportResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := formatter.WriteJSON(f, result, true); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
