// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// setupCommand writes the config template and prepares the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml if missing, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reset", Usage: "Drop all stored data (tokens included) and recreate the schema"},
		},
		Action: r.Setup,
	}
}

// authCommand handles the PKCE login flow and stored tokens
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with Spotify in the browser (OAuth2 PKCE)",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser redirect",
						Value: 5 * time.Minute,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorize URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored tokens",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the stored token and the current user",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
		},
	}
}

// searchCommand queries the catalog
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search tracks, albums, artists or playlists",
		ArgsUsage: "<query>",
		Flags: append(formatFlags(),
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Comma separated result types (track, album, artist, playlist)",
				Value:   "track",
			},
		),
		Action: r.Search,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List your playlists",
		Flags: append(formatFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to show (0 for all)",
			},
		),
		Action: r.Playlists,
	}
}

func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tracks",
		Usage:     "List the tracks of a playlist",
		ArgsUsage: "<playlist-id>",
		Flags: append(formatFlags(),
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Bypass the cache",
			},
		),
		Action: r.Tracks,
	}
}

func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "album",
		Usage:     "List the tracks of an album",
		ArgsUsage: "<album-id>",
		Flags:     formatFlags(),
		Action:    r.Album,
	}
}

func recentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "recent",
		Usage:  "Show recently played tracks",
		Flags:  formatFlags(),
		Action: r.Recent,
	}
}

func featuredCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "featured",
		Usage:  "Show featured playlists",
		Flags:  formatFlags(),
		Action: r.Featured,
	}
}

func releasesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "releases",
		Usage:  "Show new album releases",
		Flags:  formatFlags(),
		Action: r.Releases,
	}
}

// playlistCommand handles playlist mutations and export
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Create, delete, edit and export playlists",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a private playlist",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:      "delete",
				Usage:     "Unfollow (delete) a playlist you own",
				ArgsUsage: "<playlist-id>",
				Action:    r.PlaylistDelete,
			},
			{
				Name:      "add",
				Usage:     "Add tracks to a playlist",
				ArgsUsage: "<playlist-id> <track-uri>...",
				Action:    r.PlaylistAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove tracks from a playlist",
				ArgsUsage: "<playlist-id> <track-uri>...",
				Action:    r.PlaylistRemove,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist to a file",
				ArgsUsage: "<playlist-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (text, markdown, csv, json)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (directory for markdown), defaults to the playlist id",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:      "export-all",
				Usage:     "Export several playlists, or all of them, into a directory",
				ArgsUsage: "[playlist-id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (text, markdown, csv, json)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Output directory, defaults to spx_export_{epoch}",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers (max 10)",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Track listing requests per second",
						Value: 5,
					},
				},
				Action: r.PlaylistExportAll,
			},
		},
	}
}

// playerCommand drives a Spotify Connect device
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "player",
		Usage: "Control playback on a Spotify Connect device",
		Commands: []*cli.Command{
			{
				Name:      "play",
				Usage:     "Play one or more track uris",
				ArgsUsage: "<track-uri>...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Index of the uri to start with",
					},
					&cli.StringFlag{
						Name:  "device",
						Usage: "Device name (defaults to player.device_name or the active device)",
					},
				},
				Action: r.PlayerPlay,
			},
			{
				Name:  "devices",
				Usage: "List available Connect devices",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.PlayerDevices,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive player.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "device",
				Usage: "Device name (defaults to player.device_name or the active device)",
			},
		},
		Action: r.TUI,
	}
}
