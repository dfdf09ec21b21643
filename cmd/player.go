package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/playback"
	"github.com/desertthunder/spx/internal/session"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// spotifyClient returns a Web API client authorized by the session's token
// and sent through the runner's HTTP client.
func (r *Runner) spotifyClient(ctx context.Context, s *session.Session) *spotify.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	return playback.NewClient(ctx, s, r.config.Spotify.APIURL)
}

// newController binds a Connect device named device (or the configured one)
// to a playback controller that logs the session out on fatal errors.
func (r *Runner) newController(ctx context.Context, s *session.Session, device string) *playback.Controller {
	if device == "" {
		device = r.config.Player.DeviceName
	}
	dev := playback.NewConnectDevice(r.spotifyClient(ctx, s), device, r.config.Player.PollInterval.Duration, r.logger)
	return playback.NewController(dev, s, playback.Options{
		Logout:         s.Logout,
		Logger:         r.logger,
		ConnectTimeout: r.config.Player.ConnectTimeout.Duration,
		SuppressWindow: r.config.Player.SuppressWindow.Duration,
	})
}

// PlayerPlay connects to the device and starts the given uris.
func (r *Runner) PlayerPlay(ctx context.Context, cmd *cli.Command) error {
	uris := cmd.Args().Slice()
	if len(uris) == 0 {
		return fmt.Errorf("%w: track uri", shared.ErrMissingArgument)
	}
	offset := cmd.Int("offset")
	if offset < 0 || offset >= len(uris) {
		return fmt.Errorf("%w: offset %d out of range", shared.ErrInvalidArgument, offset)
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	ctrl := r.newController(ctx, s, cmd.String("device"))
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	if err := ctrl.Play(ctx, uris[offset], uris, offset); err != nil {
		return err
	}

	st := ctrl.Snapshot()
	return r.writePlain("▶ Playing %s on %s (%d/%d)\n", uris[offset], st.DeviceID, st.Queue.Offset+1, len(uris))
}

// PlayerDevices lists the Connect devices visible to the account.
func (r *Runner) PlayerDevices(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	devices, err := playback.ListDevices(ctx, r.spotifyClient(ctx, s))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(devices, true)
	}
	if len(devices) == 0 {
		return r.writePlain("No devices found. Open Spotify on a device first.\n")
	}
	for _, d := range devices {
		active := " "
		if d.Active {
			active = "*"
		}
		r.writePlain("%s %-40s %-12s %-10s vol %d%%\n", active, d.ID, d.Type, d.Name, d.Volume)
	}
	return nil
}
