package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/pkg/pointers"
)

func SeedPrompt(tb testing.TB, ctx context.Context, tx *gorm.DB, pt imagegen.PromptType, status imagegen.TaskStatus) *imagegen.Prompt {
	tb.Helper()
	p := &imagegen.Prompt{
		ID:         uuid.New(),
		PromptText: "prompt",
		PromptDate: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		PromptType: pt,
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed prompt: %v", err)
	}
	return p
}

func SeedImageLink(tb testing.TB, ctx context.Context, tx *gorm.DB, promptID uuid.UUID, key string) *imagegen.ImageLink {
	tb.Helper()
	l := &imagegen.ImageLink{
		ID:                uuid.New(),
		PromptID:          promptID,
		GeneratedImageURL: "https://images.example.com/raw.png",
		StoredImageURL:    pointers.String(key),
		Status:            imagegen.TaskStatusCompleted,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed image link: %v", err)
	}
	return l
}

// SeedActiveVersion inserts a COMPLETED version and flips it active in a
// second statement, mirroring how the pipeline commits them.
func SeedActiveVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, pt imagegen.PromptType, linkID uuid.UUID, expiry time.Time) *imagegen.DailyImageVersion {
	tb.Helper()
	v := SeedVersion(tb, ctx, tx, pt, linkID, imagegen.TaskStatusCompleted)
	v.PresignedURL = pointers.String("https://storage.example.com/" + v.ID.String() + "?X-Goog-Signature=abc")
	v.PresignedURLExpiry = pointers.Time(expiry)
	v.IsActive = true
	if err := tx.WithContext(ctx).Save(v).Error; err != nil {
		tb.Fatalf("activate version: %v", err)
	}
	return v
}

func SeedVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, pt imagegen.PromptType, linkID uuid.UUID, status imagegen.TaskStatus) *imagegen.DailyImageVersion {
	tb.Helper()
	v := &imagegen.DailyImageVersion{
		ID:          uuid.New(),
		ImageLinkID: linkID,
		PromptType:  pt,
		PromptDate:  time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		Status:      status,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed version: %v", err)
	}
	return v
}
