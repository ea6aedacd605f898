package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/btcmood-backend/internal/pkg/envutil"
	"github.com/yungbote/btcmood-backend/internal/pkg/httpx"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

// TextGenerator produces plain text from a system + user message pair.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

// ImageGenerator produces a fetchable URL for a generated raster image.
type ImageGenerator interface {
	GenerateImageURL(ctx context.Context, prompt string, opts ImageOptions) (string, error)
}

// Client is the OpenAI API client used by the image pipeline.
type Client interface {
	TextGenerator
	ImageGenerator
}

type ImageOptions struct {
	Size    string // "1024x1024" | "1792x1024" | "1024x1792"
	Quality string // "standard" | "hd"
}

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	ImageModel   string
	ImageSize    string
	ImageQuality string
	Timeout      time.Duration
	// MaxRetries applies to transient transport failures only. Zero means a
	// single attempt.
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:       envutil.String("OPENAI_API_KEY", ""),
		BaseURL:      envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:        envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		ImageModel:   envutil.String("OPENAI_IMAGE_MODEL", "dall-e-3"),
		ImageSize:    envutil.String("OPENAI_IMAGE_SIZE", "1024x1024"),
		ImageQuality: envutil.String("OPENAI_IMAGE_QUALITY", "standard"),
		Timeout:      envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 180*time.Second),
		MaxRetries:   envutil.Int("OPENAI_MAX_RETRIES", 0),
	}
}

// DefaultImageOptions returns the configured size and quality.
func (c Config) DefaultImageOptions() ImageOptions {
	return ImageOptions{Size: c.ImageSize, Quality: c.ImageQuality}
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	imageModel string
	httpClient *http.Client

	maxRetries int
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	imageModel := strings.TrimSpace(cfg.ImageModel)
	if imageModel == "" {
		imageModel = "dall-e-3"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		imageModel: imageModel,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// decodeError marks a 2xx body we could not parse.
type decodeError struct {
	err error
	raw string
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("openai decode error: %v; raw=%s", e.err, e.raw)
}

func (e *decodeError) Unwrap() error { return e.err }

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 2048)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return &decodeError{err: uErr, raw: truncate(string(raw), 512)}
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		t := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}

	return errors.New("unreachable retry loop")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
