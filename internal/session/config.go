package session

import (
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// DefaultScopes are the permissions the client asks for at login.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeStreaming,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// Config is the client identity and endpoint set a [Session] is built with.
type Config struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	AuthURL     string
	TokenURL    string
	APIBaseURL  string
}

// DefaultConfig returns the Spotify endpoints and scopes for clientID.
func DefaultConfig(clientID, redirectURI string) Config {
	return Config{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scopes:      DefaultScopes,
		AuthURL:     spotifyauth.AuthURL,
		TokenURL:    spotifyauth.TokenURL,
		APIBaseURL:  services.DefaultBaseURL,
	}
}

// ConfigFrom fills a [Config] from the file configuration, defaulting empty fields.
func ConfigFrom(c shared.SpotifyConfig) Config {
	cfg := DefaultConfig(c.ClientID, c.RedirectURI)
	if len(c.Scopes) > 0 {
		cfg.Scopes = c.Scopes
	}
	if c.AuthURL != "" {
		cfg.AuthURL = c.AuthURL
	}
	if c.TokenURL != "" {
		cfg.TokenURL = c.TokenURL
	}
	if c.APIURL != "" {
		cfg.APIBaseURL = c.APIURL
	}
	return cfg
}

func (c Config) oauth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    c.ClientID,
		RedirectURL: c.RedirectURI,
		Scopes:      c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
