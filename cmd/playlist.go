package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate creates a private playlist owned by the current user.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	pl, err := s.CreatePlaylist(ctx, name, cmd.String("description"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(pl, true)
	}
	return r.writePlain("✓ Created playlist %q (%s)\n", pl.Name, pl.ID)
}

// PlaylistDelete unfollows a playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist id")
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	if err := s.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %s\n", id)
}

// PlaylistAdd appends track uris to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	id, uris, err := playlistURIs(cmd)
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	if err := s.AddTracks(ctx, id, uris); err != nil {
		return err
	}
	return r.writePlain("✓ Added %d tracks to %s\n", len(uris), id)
}

// PlaylistRemove removes every occurrence of the track uris from a playlist.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	id, uris, err := playlistURIs(cmd)
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	if err := s.RemoveTracks(ctx, id, uris); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d tracks from %s\n", len(uris), id)
}

// PlaylistExport writes a playlist and its tracks to a file.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist id")
	if err != nil {
		return err
	}
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	playlists, err := s.UserPlaylists(ctx)
	if err != nil {
		return err
	}
	export := &models.PlaylistExport{Playlist: models.Playlist{ID: id, Name: id}}
	for _, pl := range playlists {
		if pl.ID == id {
			export.Playlist = pl
			break
		}
	}

	if export.Tracks, err = s.PlaylistTracks(ctx, id, true); err != nil {
		return err
	}

	r.logger.Info("exporting playlist", "id", id, "tracks", len(export.Tracks), "format", f)
	result, err := formatter.WriteExport(export, f, cmd.String("output"), r.httpClient)
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %q (%d tracks)\n", export.Playlist.Name, len(export.Tracks))
	for _, file := range result.Files {
		r.writePlain("  %s\n", file)
	}
	return nil
}

// PlaylistExportAll exports the given playlists, or every playlist in the
// library when none are named, and writes a manifest next to them.
func (r *Runner) PlaylistExportAll(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()

	result, err := tasks.BulkExport(ctx, prog, s, cmd.Args().Slice(), tasks.BulkExportOpts{
		Format:     f,
		OutputDir:  cmd.String("output-dir"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		HTTPClient: r.httpClient,
	})
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d of %d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %s\n", res.PlaylistName, res.ErrorMessage)
		}
	}
	r.writePlain("  manifest: %s\n", result.ManifestPath)
	return nil
}

func playlistURIs(cmd *cli.Command) (string, []string, error) {
	args := cmd.Args()
	id := args.First()
	if id == "" {
		return "", nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	uris := args.Tail()
	if len(uris) == 0 {
		return "", nil, fmt.Errorf("%w: track uris", shared.ErrMissingArgument)
	}
	for _, uri := range uris {
		if !strings.HasPrefix(uri, "spotify:track:") && !strings.HasPrefix(uri, "spotify:episode:") {
			return "", nil, fmt.Errorf("%w: %q is not a track uri", shared.ErrInvalidArgument, uri)
		}
	}
	return id, uris, nil
}
