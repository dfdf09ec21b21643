package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the PKCE flow: it serves the redirect URI locally, opens the
// authorize page and waits for the callback to exchange the code.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("no-browser") {
		r.openBrowser = nil
	}
	s, err := r.Session()
	if err != nil {
		return err
	}

	redirect, err := url.Parse(r.config.Spotify.RedirectURI)
	if err != nil {
		return fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
	}
	addr := redirect.Host
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	callback := server.NewCallbackHandler(s, redirect.Path, r.logger)
	router := server.NewBasicRouter(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(callback)

	srv, err := server.Listen(addr, router, r.logger)
	if err != nil {
		return err
	}
	defer server.Shutdown(srv, 5*time.Second)

	authURL, err := s.Login(ctx)
	if err != nil {
		return err
	}
	r.writePlain("Open this URL to authorize spx:\n\n  %s\n\nWaiting for the redirect on %s ...\n", authURL, srv.Addr)

	timeout := cmd.Duration("timeout")
	select {
	case res := <-callback.Result():
		if res.Err != nil {
			return res.Err
		}
	case <-time.After(timeout):
		return fmt.Errorf("%w: no redirect within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	r.writePlainln("✓ Authorization successful")
	if user, err := s.User(ctx); err == nil {
		r.writePlain("Logged in as %s (%s)\n", user.DisplayName, user.ID)
	}
	return nil
}

// AuthLogout removes the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	s, err := r.Session()
	if err != nil {
		return err
	}
	if err := s.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

type authStatus struct {
	Authenticated bool      `json:"authenticated"`
	Expires       time.Time `json:"expires,omitzero"`
	Expired       bool      `json:"expired"`
	CanRefresh    bool      `json:"can_refresh"`
	UserID        string    `json:"user_id,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	Product       string    `json:"product,omitempty"`
}

// AuthStatus reports the stored token and, when usable, the current profile.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := r.Session()
	if err != nil {
		return err
	}

	st := s.Status()
	out := authStatus{
		Authenticated: st.Authenticated,
		Expires:       st.Expires,
		Expired:       st.Expired,
		CanRefresh:    st.CanRefresh,
	}
	if st.Authenticated {
		user, err := s.User(ctx)
		switch {
		case err == nil:
			out.UserID, out.DisplayName, out.Product = user.ID, user.DisplayName, user.Product
		case errors.Is(err, shared.ErrNotAuthenticated):
			out.Authenticated = false
		default:
			r.logger.Warn("could not fetch profile", "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	r.writePlainHeader("Spotify authentication")
	if !out.Authenticated {
		return r.writePlain("Authentication: ✗ Not authenticated\nRun 'spx auth login' to log in.\n")
	}
	r.writePlain("Authentication: ✓ Authenticated\n")
	if out.UserID != "" {
		r.writePlain("User: %s (%s)\n", out.DisplayName, out.UserID)
	}
	if out.Product != "" {
		r.writePlain("Product: %s\n", out.Product)
	}
	r.writePlain("Token expires: %s\n", out.Expires.Local().Format(time.RFC1123))
	return r.writePlain("Refresh token: %v\n", out.CanRefresh)
}

// AuthRefresh forces a token refresh.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	s, err := r.Session()
	if err != nil {
		return err
	}
	if !s.Status().CanRefresh {
		return shared.ErrNoRefreshToken
	}
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Token refreshed, expires %s\n", s.Status().Expires.Local().Format(time.RFC1123))
}
