package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Session)(nil)

// Store is the durable key/value storage holding the token layout.
type Store interface {
	Get(key string) (string, bool, error)
	GetMany(keys ...string) (map[string]string, error)
	Set(values map[string]string) error
	Delete(keys ...string) error
}

// Options holds the collaborators of a [Session]. Zero values get defaults.
type Options struct {
	Store      Store
	HTTPClient *http.Client
	Logger     *log.Logger
	Now        func() time.Time
	Sleep      services.SleepFunc
	Random     io.Reader
	RateLimit  float64
	MaxRetries int
	// Navigate opens the authorize URL, usually in a browser.
	Navigate func(string) error
}

// Session manages the PKCE handshake, token lifecycle and authenticated API calls.
type Session struct {
	cfg      Config
	oauth    *oauth2.Config
	api      *services.APIService
	store    Store
	cache    *Cache
	logger   *log.Logger
	now      func() time.Time
	random   io.Reader
	navigate func(string) error

	mu    sync.RWMutex
	token *models.Token
	user  *models.User

	refreshMu  sync.Mutex
	redirectMu sync.Mutex
	lastCode   string
}

// New builds a session and loads any persisted token from the store.
func New(cfg Config, opts Options) (*Session, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client id", shared.ErrMissingConfig)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: missing token store", shared.ErrMissingConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}

	apiOpts := []services.Option{
		services.WithRateLimit(opts.RateLimit),
		services.WithMaxRetries(opts.MaxRetries),
		services.WithLogger(opts.Logger),
	}
	if opts.Sleep != nil {
		apiOpts = append(apiOpts, services.WithSleep(opts.Sleep))
	}

	s := &Session{
		cfg:      cfg,
		oauth:    cfg.oauth2(),
		api:      services.NewAPIService(cfg.APIBaseURL, opts.HTTPClient, apiOpts...),
		store:    opts.Store,
		cache:    NewCache(),
		logger:   shared.WithLogger(opts.Logger, "component", "session"),
		now:      opts.Now,
		random:   opts.Random,
		navigate: opts.Navigate,
	}

	if err := s.loadToken(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) loadToken() error {
	values, err := s.store.GetMany(models.KeyAccessToken, models.KeyRefreshToken, models.KeyExpiresIn, models.KeyExpires)
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	tok, err := models.TokenFromValues(values)
	if err != nil {
		s.logger.Warn("discarding malformed stored token", "error", err)
		return nil
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return nil
}

func (s *Session) saveToken(tok *models.Token) error {
	if err := tok.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if err := s.store.Set(tok.Values()); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return nil
}

// Cache exposes the read cache.
func (s *Session) Cache() *Cache {
	return s.cache
}

// AuthURL builds the authorize URL for a verifier and state.
func (s *Session) AuthURL(verifier, state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Login persists a fresh verifier and state, navigates to the authorize URL, and returns it.
func (s *Session) Login(ctx context.Context) (string, error) {
	verifier, err := GenerateVerifier(s.random)
	if err != nil {
		return "", err
	}
	state := shared.GenerateID()

	if err := s.store.Set(map[string]string{
		models.KeyCodeVerifier: verifier,
		models.KeyOAuthState:   state,
	}); err != nil {
		return "", fmt.Errorf("failed to persist code verifier: %w", err)
	}

	authURL := s.AuthURL(verifier, state)
	s.logger.Debug("starting login", "redirect_uri", s.cfg.RedirectURI)

	if s.navigate != nil {
		if err := s.navigate(authURL); err != nil {
			s.logger.Warn("could not open browser", "error", err)
		}
	}
	return authURL, nil
}

// HandleRedirect completes login from the redirect URL. It reports false when
// the URL carries no code. Repeated calls with the same code exchange it once.
func (s *Session) HandleRedirect(ctx context.Context, u *url.URL) (bool, error) {
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return false, fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, e, q.Get("error_description"))
	}

	code := q.Get("code")
	if code == "" {
		return false, nil
	}

	s.redirectMu.Lock()
	defer s.redirectMu.Unlock()

	if code == s.lastCode {
		return true, nil
	}

	values, err := s.store.GetMany(models.KeyCodeVerifier, models.KeyOAuthState)
	if err != nil {
		return false, fmt.Errorf("failed to load code verifier: %w", err)
	}
	if expected := values[models.KeyOAuthState]; expected != "" && q.Get("state") != expected {
		return false, shared.ErrInvalidState
	}
	verifier := values[models.KeyCodeVerifier]
	if verifier == "" {
		return false, fmt.Errorf("%w: no code verifier stored", shared.ErrAuthFailed)
	}

	resp, err := s.requestToken(ctx, url.Values{
		"client_id":     {s.cfg.ClientID},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {s.cfg.RedirectURI},
		"code_verifier": {verifier},
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if err := s.saveToken(models.NewToken(resp.AccessToken, resp.RefreshToken, resp.ExpiresIn, s.now())); err != nil {
		return false, err
	}
	if err := s.store.Delete(models.KeyCodeVerifier, models.KeyOAuthState); err != nil {
		s.logger.Warn("failed to clear code verifier", "error", err)
	}

	s.lastCode = code
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.cache.Reset()

	s.logger.Info("login complete")
	return true, nil
}

// StripCode returns u without the code and state parameters.
func StripCode(u *url.URL) *url.URL {
	out := *u
	q := out.Query()
	q.Del("code")
	q.Del("state")
	out.RawQuery = q.Encode()
	return &out
}

// Refresh exchanges the refresh token for a new access token. Without a
// refresh token it does nothing. On failure the stored token is left as is.
func (s *Session) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()

	if tok == nil || tok.RefreshToken == "" {
		return nil
	}

	resp, err := s.requestToken(ctx, url.Values{
		"client_id":     {s.cfg.ClientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {tok.RefreshToken},
	})
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	refresh := resp.RefreshToken
	if refresh == "" {
		refresh = tok.RefreshToken
	}
	if err := s.saveToken(models.NewToken(resp.AccessToken, refresh, resp.ExpiresIn, s.now())); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	s.logger.Debug("token refreshed")
	return nil
}

func (s *Session) requestToken(ctx context.Context, form url.Values) (*services.TokenResponse, error) {
	var resp services.TokenResponse
	err := s.api.DoJSON(ctx, services.Request{
		Method: http.MethodPost,
		Path:   s.cfg.TokenURL,
		Form:   form,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout clears persisted token data, the profile and the cache. Safe to call repeatedly.
func (s *Session) Logout() error {
	err := s.store.Delete(models.SessionKeys...)

	s.mu.Lock()
	s.token = nil
	s.user = nil
	s.mu.Unlock()

	s.redirectMu.Lock()
	s.lastCode = ""
	s.redirectMu.Unlock()

	s.cache.Reset()

	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// currentToken returns a usable token, refreshing an expired one when possible.
func (s *Session) currentToken(ctx context.Context) *models.Token {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()

	if tok == nil {
		return nil
	}
	if !tok.Expired(s.now()) {
		return tok
	}
	if tok.RefreshToken == "" {
		return nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	tok = s.token
	s.mu.RUnlock()
	if tok != nil && !tok.Expired(s.now()) {
		return tok
	}
	if err := s.refreshLocked(ctx); err != nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) accessToken(ctx context.Context) (string, bool) {
	tok := s.currentToken(ctx)
	if tok == nil {
		return "", false
	}
	return tok.AccessToken, true
}

func (s *Session) requireToken(ctx context.Context) (string, error) {
	token, ok := s.accessToken(ctx)
	if !ok {
		return "", shared.ErrNotAuthenticated
	}
	return token, nil
}

// IsAuthenticated reports whether a usable token is available.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.accessToken(ctx)
	return ok
}

// Token implements [oauth2.TokenSource].
func (s *Session) Token() (*oauth2.Token, error) {
	tok := s.currentToken(context.Background())
	if tok == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return tok.OAuth2(), nil
}

// Status describes the stored token without touching the network.
type Status struct {
	Authenticated bool      `json:"authenticated"`
	Expires       time.Time `json:"expires"`
	Expired       bool      `json:"expired"`
	CanRefresh    bool      `json:"can_refresh"`
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return Status{}
	}
	return Status{
		Authenticated: true,
		Expires:       s.token.Expires,
		Expired:       s.token.Expired(s.now()),
		CanRefresh:    s.token.RefreshToken != "",
	}
}

// User returns the current profile, fetched once per token.
func (s *Session) User(ctx context.Context) (*models.User, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	u := s.user
	s.mu.RUnlock()
	if u != nil {
		return u, nil
	}

	var su services.SpotifyUser
	if err := s.get(ctx, token, "/me", nil, &su); err != nil {
		return nil, err
	}
	user := su.Model()

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return &user, nil
}

// PlayerCommand issues a Web API player call, /me/player/{action}.
func (s *Session) PlayerCommand(ctx context.Context, method, action string, params url.Values, body any) error {
	token, err := s.requireToken(ctx)
	if err != nil {
		return err
	}

	path := "/me/player"
	if action != "" {
		path += "/" + action
	}
	_, err = s.api.Do(ctx, services.Request{Method: method, Path: path, Query: params, Token: token, JSON: body})
	return err
}

func (s *Session) get(ctx context.Context, token, path string, query url.Values, out any) error {
	return s.api.DoJSON(ctx, services.Request{Method: http.MethodGet, Path: path, Query: query, Token: token}, out)
}
