package imagegen

import (
	"testing"
	"time"

	"github.com/yungbote/btcmood-backend/internal/pkg/pointers"
)

func TestParsePromptType(t *testing.T) {
	cases := map[string]PromptType{
		"happy":                PromptTypeGenerateImageHappy,
		"sad":                  PromptTypeGenerateImageSad,
		"generate-image-sad":   PromptTypeGenerateImageSad,
		"get-holidays":         PromptTypeGetHolidays,
		"above-threshold":      PromptTypeGenerateImageHappy,
		"generate-image-happy": PromptTypeGenerateImageHappy,
	}
	for in, want := range cases {
		got, err := ParsePromptType(in)
		if err != nil {
			t.Fatalf("ParsePromptType(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParsePromptType(%q): want=%q got=%q", in, want, got)
		}
	}
	if _, err := ParsePromptType("ecstatic"); err == nil {
		t.Fatalf("ParsePromptType(ecstatic): expected error")
	}
}

func TestIsImageCategory(t *testing.T) {
	if PromptTypeGetHolidays.IsImageCategory() {
		t.Fatalf("get-holidays is not an image category")
	}
	for _, c := range ImageCategories() {
		if !c.IsImageCategory() {
			t.Fatalf("%q should be an image category", c)
		}
	}
}

func TestDailyImageVersionServable(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	v := &DailyImageVersion{
		IsActive:           true,
		Status:             TaskStatusCompleted,
		PresignedURL:       pointers.String("https://example.com/x.png"),
		PresignedURLExpiry: pointers.Time(now.Add(time.Hour)),
	}
	if !v.Servable(now) {
		t.Fatalf("expected servable")
	}
	if v.Servable(now.Add(2 * time.Hour)) {
		t.Fatalf("expired row should not be servable")
	}
	v.IsActive = false
	if v.Servable(now) {
		t.Fatalf("inactive row should not be servable")
	}
}
