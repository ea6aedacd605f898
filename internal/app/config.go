package app

import (
	"fmt"
	"time"

	"github.com/yungbote/btcmood-backend/internal/clients/gcp"
	"github.com/yungbote/btcmood-backend/internal/clients/openai"
	"github.com/yungbote/btcmood-backend/internal/clients/redis"
	"github.com/yungbote/btcmood-backend/internal/data/db"
	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/modules/imagegen"
	"github.com/yungbote/btcmood-backend/internal/observability"
	"github.com/yungbote/btcmood-backend/internal/pkg/envutil"
	"github.com/yungbote/btcmood-backend/internal/temporalx"
	"github.com/yungbote/btcmood-backend/internal/temporalx/dailyrun"
)

type Config struct {
	LogMode      string
	WriteEnabled bool

	Postgres db.PostgresConfig
	OpenAI   openai.Config
	Storage  gcp.StorageConfig
	Redis    redis.Config
	Temporal temporalx.Config
	Otel     observability.OtelConfig

	Categories          []types.PromptType
	CategoryConcurrency int
	PresignTTL          time.Duration
	TemplatesPath       string

	// ScheduleCron is a five-field expression for the in-process scheduler,
	// evaluated in ScheduleTimezone.
	ScheduleCron     string
	ScheduleTimezone *time.Location
}

func LoadConfig() (Config, error) {
	storage, err := gcp.StorageConfigFromEnv()
	if err != nil {
		return Config{}, err
	}
	categories, err := dailyrun.ParseCategories(envutil.List("IMAGEGEN_CATEGORIES", nil))
	if err != nil {
		return Config{}, fmt.Errorf("IMAGEGEN_CATEGORIES: %w", err)
	}
	tzName := envutil.String("SCHEDULE_TIMEZONE", "America/Los_Angeles")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("SCHEDULE_TIMEZONE: %w", err)
	}

	return Config{
		LogMode:      envutil.String("LOG_MODE", "development"),
		WriteEnabled: envutil.Bool("WRITE_ENABLED", true),

		Postgres: db.PostgresConfigFromEnv(),
		OpenAI:   openai.ConfigFromEnv(),
		Storage:  storage,
		Redis:    redis.ConfigFromEnv(),
		Temporal: temporalx.LoadConfig(),
		Otel:     observability.OtelConfigFromEnv(),

		Categories:          categories,
		CategoryConcurrency: envutil.Int("IMAGEGEN_CATEGORY_CONCURRENCY", 1),
		PresignTTL:          envutil.Seconds("PRESIGNED_URL_TTL_SECONDS", imagegen.DefaultPresignTTL),
		TemplatesPath:       envutil.String("PROMPT_TEMPLATES_PATH", ""),

		ScheduleCron:     envutil.String("SCHEDULE_CRON", "1 0 * * *"),
		ScheduleTimezone: loc,
	}, nil
}
