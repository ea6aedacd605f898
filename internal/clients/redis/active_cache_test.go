package redis

import (
	"testing"

	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

func TestNewActiveCacheRequiresAddr(t *testing.T) {
	if _, err := NewActiveCache(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without REDIS_ADDR")
	}
	if _, err := NewActiveCache(nil, Config{Addr: "127.0.0.1:6379"}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func TestDecodeVersionRejectsGarbage(t *testing.T) {
	if _, err := decodeVersion([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
	v, err := decodeVersion([]byte(`{"id":"5f0c6f52-8a43-4f5e-9e54-0a4f8d0b6c11","prompt_type":"generate-image-sad","is_active":true,"status":"COMPLETED"}`))
	if err != nil {
		t.Fatalf("decodeVersion: %v", err)
	}
	if v.PromptType != "generate-image-sad" || !v.IsActive {
		t.Fatalf("decodeVersion: got %+v", v)
	}
}
