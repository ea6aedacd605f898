package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/pkg/envutil"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// Channel carries one message per activation, payload = category.
	Channel string
}

func ConfigFromEnv() Config {
	return Config{
		Addr:      envutil.String("REDIS_ADDR", ""),
		Password:  envutil.String("REDIS_PASSWORD", ""),
		DB:        envutil.Int("REDIS_DB", 0),
		KeyPrefix: envutil.String("REDIS_KEY_PREFIX", "btcmood:active:"),
		Channel:   envutil.String("REDIS_CHANNEL", "btcmood:activations"),
	}
}

// ActiveCache stores the served DailyImageVersion per category and announces
// activations on a pub/sub channel.
type ActiveCache interface {
	Get(ctx context.Context, pt types.PromptType) (*types.DailyImageVersion, error)
	// Fill stores v only when the category has no entry, so a read-side fill
	// never overwrites a newer activation.
	Fill(ctx context.Context, v *types.DailyImageVersion, ttl time.Duration) error
	// Publish writes the freshly activated v through and announces it.
	Publish(ctx context.Context, v *types.DailyImageVersion, ttl time.Duration) error
	WatchActivations(ctx context.Context, onActivate func(pt types.PromptType)) error
	Close() error
}

type activeCache struct {
	log     *logger.Logger
	rdb     *goredis.Client
	prefix  string
	channel string
}

func NewActiveCache(log *logger.Logger, cfg Config) (ActiveCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "btcmood:active:"
	}
	if cfg.Channel == "" {
		cfg.Channel = "btcmood:activations"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &activeCache{
		log:     log.With("service", "RedisActiveCache"),
		rdb:     rdb,
		prefix:  cfg.KeyPrefix,
		channel: cfg.Channel,
	}, nil
}

func (c *activeCache) key(pt types.PromptType) string {
	return c.prefix + string(pt)
}

func (c *activeCache) Get(ctx context.Context, pt types.PromptType) (*types.DailyImageVersion, error) {
	raw, err := c.rdb.Get(ctx, c.key(pt)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", pt, err)
	}
	return decodeVersion(raw)
}

func (c *activeCache) Fill(ctx context.Context, v *types.DailyImageVersion, ttl time.Duration) error {
	if v == nil {
		return fmt.Errorf("version required")
	}
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.rdb.SetNX(ctx, c.key(v.PromptType), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", v.PromptType, err)
	}
	return nil
}

// Publish replaces the entry and publishes the category in one MULTI. A ttl
// <= 0 drops the entry instead of storing an already expired URL.
func (c *activeCache) Publish(ctx context.Context, v *types.DailyImageVersion, ttl time.Duration) error {
	if v == nil {
		return fmt.Errorf("version required")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	key := c.key(v.PromptType)
	_, err = c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if ttl > 0 {
			pipe.Set(ctx, key, raw, ttl)
		} else {
			pipe.Del(ctx, key)
		}
		pipe.Publish(ctx, c.channel, string(v.PromptType))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", v.PromptType, err)
	}
	return nil
}

// WatchActivations subscribes to activation notices and calls onActivate for
// each until ctx is done. It returns once the subscription is live.
func (c *activeCache) WatchActivations(ctx context.Context, onActivate func(pt types.PromptType)) error {
	if onActivate == nil {
		return fmt.Errorf("onActivate callback required")
	}

	sub := c.rdb.Subscribe(ctx, c.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				pt, err := types.ParsePromptType(m.Payload)
				if err != nil || !pt.IsImageCategory() {
					c.log.Warn("bad activation payload", "payload", m.Payload)
					continue
				}
				onActivate(pt)
			}
		}
	}()

	return nil
}

func (c *activeCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func decodeVersion(raw []byte) (*types.DailyImageVersion, error) {
	var v types.DailyImageVersion
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode cached version: %w", err)
	}
	return &v, nil
}
