package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
)

// recordSleep returns a SleepFunc that records requested waits without blocking.
func recordSleep(waits *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != DefaultBaseURL {
				t.Errorf("expected default baseURL %s, got %s", DefaultBaseURL, srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Do", func(t *testing.T) {
		t.Run("Sends Bearer Token And Query", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer abc" {
					t.Errorf("expected bearer header, got %q", r.Header.Get("Authorization"))
				}
				if r.URL.Path != "/me/playlists" {
					t.Errorf("expected path /me/playlists, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("limit") != "50" {
					t.Errorf("expected limit=50, got %s", r.URL.RawQuery)
				}
				w.Header().Set("X-Custom-Header", "test-value")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Do(context.Background(), Request{
				Method: http.MethodGet,
				Path:   "/me/playlists",
				Query:  url.Values{"limit": {"50"}},
				Token:  "abc",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Headers.Get("X-Custom-Header") != "test-value" {
				t.Errorf("expected custom header 'test-value', got %s", resp.Headers.Get("X-Custom-Header"))
			}

			var data map[string]string
			if err := resp.Decode(&data); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if data["status"] != "success" {
				t.Errorf("expected status success, got %v", data)
			}
		})

		t.Run("JSON Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected Content-Type 'application/json', got %s", r.Header.Get("Content-Type"))
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"uris":["spotify:track:1"]}` {
					t.Errorf("unexpected body %s", body)
				}
				w.WriteHeader(http.StatusCreated)
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			err := srv.DoJSON(context.Background(), Request{
				Method: http.MethodPost,
				Path:   "/playlists/p1/tracks",
				JSON:   map[string][]string{"uris": {"spotify:track:1"}},
			}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Form Body To Absolute URL", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
					t.Errorf("expected form content type, got %s", r.Header.Get("Content-Type"))
				}
				r.ParseForm()
				if r.PostForm.Get("grant_type") != "refresh_token" {
					t.Errorf("expected grant_type refresh_token, got %v", r.PostForm)
				}
				json.NewEncoder(w).Encode(TokenResponse{AccessToken: "new"})
			}))
			defer server.Close()

			srv := NewAPIService("http://unused.invalid", nil)
			var tok TokenResponse
			err := srv.DoJSON(context.Background(), Request{
				Method: http.MethodPost,
				Path:   server.URL + "/api/token",
				Form:   url.Values{"grant_type": {"refresh_token"}},
			}, &tok)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tok.AccessToken != "new" {
				t.Errorf("expected access token new, got %s", tok.AccessToken)
			}
		})

		t.Run("Retries 429 After Retry-After", func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					w.Header().Set("Retry-After", "2")
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.Write([]byte(`{"id":"final"}`))
			}))
			defer server.Close()

			var waits []time.Duration
			srv := NewAPIService(server.URL, nil, WithSleep(recordSleep(&waits)))

			var out struct {
				ID string `json:"id"`
			}
			if err := srv.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, &out); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if calls != 2 {
				t.Errorf("expected exactly 2 calls, got %d", calls)
			}
			if len(waits) != 1 || waits[0] < 2*time.Second {
				t.Errorf("expected one wait of at least 2s, got %v", waits)
			}
			if out.ID != "final" {
				t.Errorf("expected final response, got %q", out.ID)
			}
		})

		t.Run("Retries Without Cap By Default", func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls <= 5 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			var waits []time.Duration
			srv := NewAPIService(server.URL, nil, WithSleep(recordSleep(&waits)))
			if _, err := srv.Do(context.Background(), Request{Method: http.MethodPut, Path: "/x"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(waits) != 5 {
				t.Errorf("expected 5 waits, got %d", len(waits))
			}
			for _, w := range waits {
				if w != time.Second {
					t.Errorf("expected default wait of 1s, got %v", w)
				}
			}
		})

		t.Run("Max Retries Cap", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer server.Close()

			var waits []time.Duration
			srv := NewAPIService(server.URL, nil, WithSleep(recordSleep(&waits)), WithMaxRetries(2))
			_, err := srv.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})

			if StatusCode(err) != http.StatusTooManyRequests {
				t.Errorf("expected 429 error, got %v", err)
			}
			if len(waits) != 2 {
				t.Errorf("expected 2 waits, got %d", len(waits))
			}
		})

		t.Run("Canceled During Backoff", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			srv := NewAPIService(server.URL, nil, WithSleep(func(context.Context, time.Duration) error {
				cancel()
				return context.Canceled
			}))

			_, err := srv.Do(ctx, Request{Method: http.MethodGet, Path: "/x"})
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})

		t.Run("Web API Error Message", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":{"status":403,"message":"Insufficient client scope"}}`))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			_, err := srv.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Status != http.StatusForbidden || apiErr.Message != "Insufficient client scope" {
				t.Errorf("unexpected api error %+v", apiErr)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("expected error to match shared.ErrAPIRequest")
			}
		})

		t.Run("Accounts Error Message", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			_, err := srv.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/token"})

			if err == nil || !strings.Contains(err.Error(), "invalid_grant: Invalid authorization code") {
				t.Errorf("expected accounts error message, got %v", err)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)
			_, err := srv.Do(context.Background(), Request{Method: http.MethodGet, Path: "/test\x00invalid"})

			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}

			srv := NewAPIService("http://example.com", client)
			_, err := srv.Do(context.Background(), Request{Method: http.MethodGet, Path: "/test"})

			if err == nil || !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			srv := NewAPIService("http://example.com", client)
			_, err := srv.Do(context.Background(), Request{Method: http.MethodGet, Path: "/test"})

			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			srv := NewAPIService(server.URL, nil, WithRateLimit(5))
			if _, err := srv.Do(ctx, Request{Method: http.MethodGet, Path: "/test"}); err == nil {
				t.Error("expected error for canceled context")
			}
		})
	})

	t.Run("retryAfter", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		tc := []struct {
			name   string
			header string
			want   time.Duration
		}{
			{name: "missing", header: "", want: time.Second},
			{name: "seconds", header: "3", want: 3 * time.Second},
			{name: "garbage", header: "soon", want: time.Second},
			{name: "http date", header: now.Add(4 * time.Second).Format(http.TimeFormat), want: 4 * time.Second},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				h := http.Header{}
				if tt.header != "" {
					h.Set("Retry-After", tt.header)
				}
				if got := retryAfter(h, now); got != tt.want {
					t.Errorf("retryAfter() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Sleep", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
			t.Errorf("expected canceled sleep to return context.Canceled, got %v", err)
		}
		if err := Sleep(context.Background(), time.Millisecond); err != nil {
			t.Errorf("expected short sleep to succeed, got %v", err)
		}
	})
}
