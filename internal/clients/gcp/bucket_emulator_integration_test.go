package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

func TestImageStoreEmulatorRoundTrip(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
	if emulatorHost == "" {
		emulatorHost = "http://127.0.0.1:4443"
	}

	bucket := fmt.Sprintf("btcmood-it-%d", time.Now().UnixNano())
	createBucket(t, emulatorHost, bucket)

	pngBytes := tinyPNG(t)
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes)
	}))
	defer src.Close()

	store, err := NewImageStore(logger.Nop(), StorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: emulatorHost,
		Bucket:       bucket,
	})
	if err != nil {
		t.Fatalf("NewImageStore: %v", err)
	}

	ctx := context.Background()
	key, err := store.SaveImageFromURL(ctx, src.URL+"/raw.png", "generate-image-happy-15-OCT-2026-1.png")
	if err != nil {
		t.Fatalf("SaveImageFromURL: %v", err)
	}
	u, err := store.PresignURL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("PresignURL: %v", err)
	}

	resp, err := http.Get(u)
	if err != nil {
		t.Fatalf("GET presigned: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, pngBytes) {
		t.Fatalf("presigned GET: status=%d bytes=%d", resp.StatusCode, len(body))
	}

	_, err = store.Upload(ctx, key, bytes.NewReader(pngBytes))
	assertStorageKind(t, err, StorageErrorUpload)
}

func createBucket(t *testing.T, host, bucket string) {
	t.Helper()
	payload := fmt.Sprintf(`{"name":%q}`, bucket)
	resp, err := http.Post(host+"/storage/v1/b?project=test", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Skipf("storage emulator not reachable at %s: %v", host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		t.Fatalf("create bucket %s: status=%d", bucket, resp.StatusCode)
	}
}
