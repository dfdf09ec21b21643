package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/session"
)

// Redirector completes a login from the redirect URL.
type Redirector interface {
	HandleRedirect(ctx context.Context, u *url.URL) (bool, error)
}

// Result is the outcome of a login redirect.
type Result struct {
	Err error
}

// CallbackHandler serves the OAuth redirect URI.
type CallbackHandler struct {
	session Redirector
	path    string
	logger  *log.Logger
	results chan Result
	once    sync.Once

	mu        sync.Mutex
	succeeded bool
}

// NewCallbackHandler creates a handler for path backed by s.
func NewCallbackHandler(s Redirector, path string, logger *log.Logger) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		session: s,
		path:    path,
		logger:  logger,
		results: make(chan Result, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP exchanges the code in the request URL, then redirects to the URL without it.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ok, err := h.session.HandleRedirect(r.Context(), r.URL)
	if err != nil {
		h.logger.Warn("login redirect failed", "error", err)
		h.send(Result{Err: err})
		http.Error(w, fmt.Sprintf("Authorization failed: %v", err), http.StatusBadRequest)
		return
	}

	if ok {
		h.mu.Lock()
		h.succeeded = true
		h.mu.Unlock()
		h.send(Result{})
		http.Redirect(w, r, session.StripCode(r.URL).String(), http.StatusFound)
		return
	}

	h.mu.Lock()
	succeeded := h.succeeded
	h.mu.Unlock()
	if !succeeded {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *CallbackHandler) send(r Result) {
	h.once.Do(func() {
		h.results <- r
		close(h.results)
	})
}

// Result returns a channel that receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan Result {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>spx</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; color: #fff; }
        .container { text-align: center; padding: 2rem; border-radius: 8px; background: #181818; }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #b3b3b3; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Logged in to spx</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
