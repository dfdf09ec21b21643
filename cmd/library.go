package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/urfave/cli/v3"
)

// Search queries the catalog and prints each requested result type.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	f, err := r.format(cmd)
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	r.logger.Debug("searching", "query", query, "type", cmd.String("type"))
	res, err := s.Search(ctx, query, cmd.String("type"))
	if err != nil {
		return err
	}

	if f == formatter.JSON {
		return r.writeJSON(res, true)
	}
	if res.Empty() {
		return r.writePlain("No results for %q\n", query)
	}

	if len(res.Tracks) > 0 {
		r.writePlainHeader("Tracks")
		if err := formatter.Tracks(r.output, res.Tracks, f); err != nil {
			return err
		}
	}
	if len(res.Albums) > 0 {
		r.writePlainHeader("Albums")
		if err := formatter.Albums(r.output, res.Albums, f); err != nil {
			return err
		}
	}
	if len(res.Artists) > 0 {
		r.writePlainHeader("Artists")
		for _, a := range res.Artists {
			r.writePlain("%-24s %s\n", a.ID, a.Name)
		}
	}
	if len(res.Playlists) > 0 {
		r.writePlainHeader("Playlists")
		if err := formatter.Playlists(r.output, res.Playlists, f); err != nil {
			return err
		}
	}
	return nil
}

// Playlists lists the user's playlists with an optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	f, err := r.format(cmd)
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
	if limit := cmd.Int("limit"); limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}
	return formatter.Playlists(r.output, playlists, f)
}

// Tracks lists a playlist's tracks.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist id")
	if err != nil {
		return err
	}
	return r.listTracks(ctx, cmd, func(ctx context.Context) ([]models.Track, error) {
		s, err := r.authed(ctx)
		if err != nil {
			return nil, err
		}
		return s.PlaylistTracks(ctx, id, cmd.Bool("refresh"))
	})
}

// Album lists an album's tracks.
func (r *Runner) Album(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "album id")
	if err != nil {
		return err
	}
	return r.listTracks(ctx, cmd, func(ctx context.Context) ([]models.Track, error) {
		s, err := r.authed(ctx)
		if err != nil {
			return nil, err
		}
		return s.AlbumTracks(ctx, id)
	})
}

// Recent lists recently played tracks.
func (r *Runner) Recent(ctx context.Context, cmd *cli.Command) error {
	return r.listTracks(ctx, cmd, func(ctx context.Context) ([]models.Track, error) {
		s, err := r.authed(ctx)
		if err != nil {
			return nil, err
		}
		return s.RecentlyPlayed(ctx)
	})
}

// Featured lists featured playlists.
func (r *Runner) Featured(ctx context.Context, cmd *cli.Command) error {
	f, err := r.format(cmd)
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	playlists, err := s.FeaturedPlaylists(ctx)
	if err != nil {
		return err
	}
	return formatter.Playlists(r.output, playlists, f)
}

// Releases lists new album releases.
func (r *Runner) Releases(ctx context.Context, cmd *cli.Command) error {
	f, err := r.format(cmd)
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	albums, err := s.NewReleases(ctx)
	if err != nil {
		return err
	}
	return formatter.Albums(r.output, albums, f)
}

func (r *Runner) listTracks(ctx context.Context, cmd *cli.Command, fetch func(context.Context) ([]models.Track, error)) error {
	f, err := r.format(cmd)
	if err != nil {
		return err
	}
	tracks, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch tracks: %w", err)
	}
	return formatter.Tracks(r.output, tracks, f)
}
