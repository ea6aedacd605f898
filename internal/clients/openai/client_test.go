package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string, retries int) Client {
	t.Helper()
	c, err := NewClient(logger.Nop(), Config{
		APIKey:     "sk-test",
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("want *GenerationError, got %T: %v", err, err)
	}
	if ge.Kind != want {
		t.Fatalf("kind: want=%q got=%q (%v)", want, ge.Kind, err)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
	if _, err := NewClient(nil, Config{APIKey: "x"}); err == nil {
		t.Fatalf("expected error for missing logger")
	}
}

func TestGenerateTextSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Fatalf("path: want=%q got=%q", "/v1/responses", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("authorization: got %q", got)
		}
		var req responsesRequest
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 2 || req.Input[0].Role != "system" || req.Input[1].Role != "user" {
			t.Fatalf("unexpected input: %+v", req.Input)
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"World Pasta Day - pasta."}]}]}`))
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv.URL, 0).GenerateText(context.Background(), "sys", "list holidays")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "World Pasta Day - pasta." {
		t.Fatalf("text: want=%q got=%q", "World Pasta Day - pasta.", got)
	}
}

func TestGenerateTextErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{name: "blank output", status: 200, body: `{"output":[]}`, want: ErrorKindResponse},
		{name: "malformed body", status: 200, body: `{"output":`, want: ErrorKindResponse},
		{name: "refusal", status: 200, body: `{"output":[{"type":"message","role":"assistant","content":[{"type":"refusal","refusal":"no"}]}]}`, want: ErrorKindResponse},
		{name: "server error", status: 503, body: `{"error":"busy"}`, want: ErrorKindConnection},
		{name: "rate limited", status: 429, body: `{"error":"slow down"}`, want: ErrorKindConnection},
		{name: "bad request", status: 400, body: `{"error":"bad"}`, want: ErrorKindRequest},
		{name: "unauthorized", status: 401, body: `{"error":"key"}`, want: ErrorKindRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, 0).GenerateText(context.Background(), "sys", "user")
			assertKind(t, err, tc.want)
		})
	}
}

func TestGenerateTextConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, 0).GenerateText(context.Background(), "sys", "user")
	assertKind(t, err, ErrorKindConnection)
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"ok"}]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1).(*client)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	got, err := c.GenerateText(ctx, "sys", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "ok" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("want ok after 2 calls, got %q after %d", got, calls)
	}
}

func TestGenerateImageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			t.Fatalf("path: got %q", r.URL.Path)
		}
		var req imagesGenerationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Size != "1024x1024" || req.Quality != "standard" || req.N != 1 || req.ResponseFormat != "url" {
			t.Fatalf("unexpected request: %+v", req)
		}
		if req.Model != "dall-e-3" {
			t.Fatalf("model: want=%q got=%q", "dall-e-3", req.Model)
		}
		_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example.com/a.png","revised_prompt":"r"}]}`))
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv.URL, 0).GenerateImageURL(context.Background(), "a happy investor", ImageOptions{Size: "1024x1024", Quality: "standard"})
	if err != nil {
		t.Fatalf("GenerateImageURL: %v", err)
	}
	if got != "https://img.example.com/a.png" {
		t.Fatalf("url: got %q", got)
	}
}

func TestGenerateImageURLBlank(t *testing.T) {
	for _, body := range []string{`{"data":[]}`, `{"data":[{"url":"  "}]}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := newTestClient(t, srv.URL, 0).GenerateImageURL(context.Background(), "p", ImageOptions{})
		srv.Close()
		assertKind(t, err, ErrorKindResponse)
		if !strings.Contains(err.Error(), "image") {
			t.Fatalf("error should name the op: %v", err)
		}
	}
}

func TestGenerateImageURLEmptyPrompt(t *testing.T) {
	_, err := newTestClient(t, "http://127.0.0.1:1", 0).GenerateImageURL(context.Background(), "   ", ImageOptions{})
	assertKind(t, err, ErrorKindRequest)
}
