package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	_ "golang.org/x/image/webp"
	"google.golang.org/api/option"

	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

const (
	maxImageBytes = 32 << 20
	// V4 signed URLs cannot outlive seven days.
	maxPresignTTL = 7 * 24 * time.Hour
)

// ImageStore is the object storage capability the pipeline depends on. Every
// method returns *StorageError on failure.
type ImageStore interface {
	// SaveImageFromURL downloads sourceURL, checks it decodes as an image and
	// stores it under key. It returns the stored object key.
	SaveImageFromURL(ctx context.Context, sourceURL, key string) (string, error)
	Upload(ctx context.Context, key string, body io.Reader) (string, error)
	// PresignURL returns a time-limited GET URL for key.
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type bucketService struct {
	log        *logger.Logger
	cfg        StorageConfig
	httpClient *http.Client
	now        func() time.Time
}

func NewImageStore(log *logger.Logger, cfg StorageConfig) (ImageStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	serviceLog := log.With("service", "ImageStore")
	serviceLog.Info(
		"Object storage configured",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"public_base_url", cfg.PublicBaseURL,
		"bucket", cfg.Bucket,
	)
	return &bucketService{
		log:        serviceLog,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		now:        time.Now,
	}, nil
}

// acquire opens a storage client for a single operation. Callers must call
// the returned release func.
func (bs *bucketService) acquire(ctx context.Context) (*storage.Client, func(), error) {
	var opts []option.ClientOption
	switch bs.cfg.Mode {
	case ObjectStorageModeGCS:
		credOpts, err := clientOptionsFromEnv()
		if err != nil {
			return nil, nil, err
		}
		opts = append(credOpts, option.WithScopes(storage.ScopeReadWrite))
	case ObjectStorageModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", bs.cfg.EmulatorHost)
		opts = []option.ClientOption{option.WithoutAuthentication()}
	default:
		return nil, nil, &StorageConfigError{Code: StorageConfigErrorInvalidMode, Value: string(bs.cfg.Mode)}
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

func (bs *bucketService) SaveImageFromURL(ctx context.Context, sourceURL, key string) (string, error) {
	raw, err := bs.fetchImage(ctx, sourceURL)
	if err != nil {
		return "", &StorageError{Kind: StorageErrorFetch, Key: key, Err: err}
	}
	return bs.Upload(ctx, key, bytes.NewReader(raw))
}

func (bs *bucketService) fetchImage(ctx context.Context, sourceURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid source url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := bs.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("failed to retrieve image: status=%d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(raw) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("payload is not a decodable image: %w", err)
	}
	bs.log.Debug("Fetched generated image", "format", format, "bytes", len(raw))
	return raw, nil
}

func (bs *bucketService) Upload(ctx context.Context, key string, body io.Reader) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", &StorageError{Kind: StorageErrorUpload, Err: errors.New("object key required")}
	}

	c, release, err := bs.acquire(ctx)
	if err != nil {
		return "", &StorageError{Kind: StorageErrorCredentials, Key: key, Err: err}
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	// Keys carry an epoch suffix; a collision means a concurrent run and must not overwrite.
	w := c.Bucket(bs.cfg.Bucket).Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", &StorageError{Kind: StorageErrorUpload, Key: key, Err: fmt.Errorf("failed to write data to GCS: %w", err)}
	}
	if err := w.Close(); err != nil {
		return "", &StorageError{Kind: StorageErrorUpload, Key: key, Err: fmt.Errorf("failed to close GCS writer: %w", err)}
	}
	bs.log.Info("Image uploaded", "bucket", bs.cfg.Bucket, "key", key)
	return key, nil
}

func (bs *bucketService) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", &StorageError{Kind: StorageErrorPresign, Err: errors.New("object key required")}
	}
	if ttl <= 0 || ttl > maxPresignTTL {
		return "", &StorageError{Kind: StorageErrorPresign, Key: key, Err: fmt.Errorf("ttl %s outside (0, %s]", ttl, maxPresignTTL)}
	}

	// The emulator serves objects unauthenticated and cannot verify signatures.
	if bs.cfg.IsEmulatorMode() {
		return bs.emulatorObjectMediaURL(key), nil
	}

	c, release, err := bs.acquire(ctx)
	if err != nil {
		return "", &StorageError{Kind: StorageErrorCredentials, Key: key, Err: err}
	}
	defer release()

	signed, err := c.Bucket(bs.cfg.Bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: bs.now().Add(ttl),
	})
	if err != nil {
		return "", &StorageError{Kind: StorageErrorPresign, Key: key, Err: err}
	}
	return signed, nil
}

func (bs *bucketService) emulatorObjectMediaURL(key string) string {
	base := bs.cfg.PublicBaseURL
	if base == "" {
		base = bs.cfg.EmulatorHost
	}
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		strings.TrimRight(base, "/"),
		url.PathEscape(bs.cfg.Bucket),
		url.PathEscape(key),
	)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	default:
		return ""
	}
}
