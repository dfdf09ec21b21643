package models

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// Storage keys of the durable key/value layout. All are removed together on logout.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyExpiresIn    = "expires_in"
	KeyExpires      = "expires"
	KeyCodeVerifier = "code_verifier"
	KeyOAuthState   = "oauth_state"
)

// SessionKeys lists every key owned by an authenticated session.
var SessionKeys = []string{
	KeyAccessToken, KeyRefreshToken, KeyExpiresIn, KeyExpires, KeyCodeVerifier, KeyOAuthState,
}

// Token is an OAuth2 access token with its absolute expiry.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	Expires      time.Time `json:"expires"`
}

// NewToken stamps Expires as now + expiresIn seconds.
func NewToken(access, refresh string, expiresIn int, now time.Time) *Token {
	return &Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
		Expires:      now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// Validate checks that the token can authorize requests.
func (t *Token) Validate() error {
	if t == nil || t.AccessToken == "" {
		return fmt.Errorf("token missing access_token")
	}
	if t.ExpiresIn < 0 {
		return fmt.Errorf("token has negative expires_in")
	}
	return nil
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.Expires)
}

// OAuth2 converts the token for use with [oauth2.TokenSource] consumers.
func (t *Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       t.Expires,
	}
}

// Values returns the key/value layout; expires is stored as unix milliseconds.
func (t *Token) Values() map[string]string {
	return map[string]string{
		KeyAccessToken:  t.AccessToken,
		KeyRefreshToken: t.RefreshToken,
		KeyExpiresIn:    strconv.Itoa(t.ExpiresIn),
		KeyExpires:      strconv.FormatInt(t.Expires.UnixMilli(), 10),
	}
}

// TokenFromValues rebuilds a token from its key/value layout. It returns nil
// without error when no access token is stored.
func TokenFromValues(values map[string]string) (*Token, error) {
	access := values[KeyAccessToken]
	if access == "" {
		return nil, nil
	}

	tok := &Token{AccessToken: access, RefreshToken: values[KeyRefreshToken]}

	if v := values[KeyExpiresIn]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", KeyExpiresIn, v, err)
		}
		tok.ExpiresIn = n
	}

	if v := values[KeyExpires]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", KeyExpires, v, err)
		}
		tok.Expires = time.UnixMilli(ms)
	}

	return tok, nil
}
