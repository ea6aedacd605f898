package temporalx

import (
	"time"

	"github.com/yungbote/btcmood-backend/internal/pkg/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	NamespaceRetention    time.Duration

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	DialBackoff    time.Duration
	DialBackoffMax time.Duration

	// WorkflowID names the single cron workflow execution.
	WorkflowID        string
	// CronSchedule is a standard five-field expression evaluated in
	// CronTimezone.
	CronSchedule      string
	CronTimezone      string
	WorkerConcurrency int
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "btcmood"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "btcmood-images"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceRetention:    time.Duration(clampInt(envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7), 1, 365)) * 24 * time.Hour,

		DialTimeout:    envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5*time.Second),
		DialMaxWait:    envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60*time.Second),
		DialBackoff:    time.Duration(envutil.Int("TEMPORAL_DIAL_BACKOFF_MS", 250)) * time.Millisecond,
		DialBackoffMax: time.Duration(envutil.Int("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5000)) * time.Millisecond,

		WorkflowID:        envutil.String("TEMPORAL_WORKFLOW_ID", "daily-images"),
		CronSchedule:      envutil.String("SCHEDULE_CRON", "1 0 * * *"),
		CronTimezone:      envutil.String("SCHEDULE_TIMEZONE", "America/Los_Angeles"),
		WorkerConcurrency: clampInt(envutil.Int("WORKER_CONCURRENCY", 2), 2, 64),
	}
}

// TemporalCron returns the schedule in the form Temporal accepts, with the
// timezone carried as a CRON_TZ prefix.
func (c Config) TemporalCron() string {
	if c.CronTimezone == "" || c.CronTimezone == "UTC" {
		return c.CronSchedule
	}
	return "CRON_TZ=" + c.CronTimezone + " " + c.CronSchedule
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
