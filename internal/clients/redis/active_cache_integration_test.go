package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
	"github.com/yungbote/btcmood-backend/internal/pkg/pointers"
)

func TestActiveCacheRoundTrip(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		t.Skip("set REDIS_ADDR to run redis integration tests")
	}
	prefix := fmt.Sprintf("btcmood-it-%d:", time.Now().UnixNano())
	c, err := NewActiveCache(logger.Nop(), Config{Addr: addr, KeyPrefix: prefix, Channel: prefix + "activations"})
	if err != nil {
		t.Fatalf("NewActiveCache: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pt := types.PromptTypeGenerateImageHappy
	if v, err := c.Get(ctx, pt); err != nil || v != nil {
		t.Fatalf("empty Get: v=%v err=%v", v, err)
	}

	want := &types.DailyImageVersion{
		ID:                 uuid.New(),
		PromptType:         pt,
		IsActive:           true,
		Status:             types.TaskStatusCompleted,
		PresignedURL:       pointers.String("https://storage.example.com/x.png"),
		PresignedURLExpiry: pointers.Time(time.Now().Add(time.Hour).UTC()),
	}
	if err := c.Fill(ctx, want, time.Minute); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	got, err := c.Get(ctx, pt)
	if err != nil || got == nil {
		t.Fatalf("Get: v=%v err=%v", got, err)
	}
	if got.ID != want.ID || *got.PresignedURL != *want.PresignedURL {
		t.Fatalf("Get: want=%v got=%v", want.ID, got.ID)
	}

	notices := make(chan types.PromptType, 2)
	if err := c.WatchActivations(ctx, func(pt types.PromptType) { notices <- pt }); err != nil {
		t.Fatalf("WatchActivations: %v", err)
	}
	next := *want
	next.ID = uuid.New()
	if err := c.Publish(ctx, &next, time.Minute); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case n := <-notices:
		if n != pt {
			t.Fatalf("notice: want=%q got=%q", pt, n)
		}
	case <-ctx.Done():
		t.Fatalf("no activation notice received")
	}

	// A late fill carrying the old row must not replace the published one.
	if err := c.Fill(ctx, want, time.Minute); err != nil {
		t.Fatalf("late Fill: %v", err)
	}
	if got, err := c.Get(ctx, pt); err != nil || got == nil || got.ID != next.ID {
		t.Fatalf("after late Fill: want=%v got=%v err=%v", next.ID, got, err)
	}

	if err := c.Publish(ctx, &next, 0); err != nil {
		t.Fatalf("Publish expired: %v", err)
	}
	if v, _ := c.Get(ctx, pt); v != nil {
		t.Fatalf("expired publish left the entry behind")
	}
}
