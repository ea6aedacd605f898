package temporalx

import (
	"testing"
	"time"
)

func TestTemporalCron(t *testing.T) {
	c := Config{CronSchedule: "1 0 * * *", CronTimezone: "America/Los_Angeles"}
	if got, want := c.TemporalCron(), "CRON_TZ=America/Los_Angeles 1 0 * * *"; got != want {
		t.Fatalf("TemporalCron: want=%q got=%q", want, got)
	}
	c.CronTimezone = "UTC"
	if got := c.TemporalCron(); got != "1 0 * * *" {
		t.Fatalf("TemporalCron(UTC): got %q", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("WORKER_CONCURRENCY", "1")
	t.Setenv("TEMPORAL_NAMESPACE_RETENTION_DAYS", "900")
	cfg := LoadConfig()
	if cfg.Namespace != "btcmood" || cfg.TaskQueue != "btcmood-images" {
		t.Fatalf("defaults: got namespace=%q queue=%q", cfg.Namespace, cfg.TaskQueue)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Fatalf("worker concurrency floor: want=2 got=%d", cfg.WorkerConcurrency)
	}
	if cfg.NamespaceRetention != 365*24*time.Hour {
		t.Fatalf("retention clamp: got %v", cfg.NamespaceRetention)
	}
}

func TestClampBackoff(t *testing.T) {
	if got := clampBackoff(250*time.Millisecond, time.Second, 1); got != 250*time.Millisecond {
		t.Fatalf("attempt 1: got %v", got)
	}
	if got := clampBackoff(250*time.Millisecond, time.Second, 5); got != time.Second {
		t.Fatalf("attempt 5: got %v", got)
	}
}
