package app

import (
	"fmt"

	"github.com/yungbote/btcmood-backend/internal/clients/gcp"
	"github.com/yungbote/btcmood-backend/internal/clients/openai"
	"github.com/yungbote/btcmood-backend/internal/clients/redis"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

type Clients struct {
	OpenAI openai.Client
	Store  gcp.ImageStore
	// Cache is nil when REDIS_ADDR is unset or redis is unreachable.
	Cache redis.ActiveCache
}

func wireClients(log *logger.Logger, cfg Config, cache redis.ActiveCache) (Clients, error) {
	log.Info("Wiring clients...")

	store, err := gcp.NewImageStore(log, cfg.Storage)
	if err != nil {
		return Clients{}, fmt.Errorf("init image store: %w", err)
	}

	oa, err := openai.NewClient(log, cfg.OpenAI)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	return Clients{OpenAI: oa, Store: store, Cache: cache}, nil
}
