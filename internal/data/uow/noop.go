package uow

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/btcmood-backend/internal/pkg/ctxutil"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

// noopGateway runs callbacks against a session whose writes are discarded and
// whose reads find nothing.
type noopGateway struct {
	log *logger.Logger
}

func newNoop(baseLog *logger.Logger) *noopGateway {
	return &noopGateway{log: baseLog.With("component", "uow", "mode", "dry_run")}
}

func (g *noopGateway) WriteEnabled() bool { return false }

func (g *noopGateway) WithTransaction(ctx context.Context, fn func(s Session) error) error {
	return fn(&noopSession{ctx: ctxutil.Default(ctx), log: g.log})
}

type noopSession struct {
	ctx context.Context
	log *logger.Logger
}

func (s *noopSession) Context() context.Context { return s.ctx }

func (s *noopSession) Add(record any) error {
	s.log.Debug("Discarded insert", "record", fmt.Sprintf("%T", record))
	return nil
}

func (s *noopSession) Save(record any) error {
	s.log.Debug("Discarded update", "record", fmt.Sprintf("%T", record))
	return nil
}

func (s *noopSession) Find(out any, where Predicate, opts ...QueryOption) error { return nil }

func (s *noopSession) First(out any, where Predicate, opts ...QueryOption) error {
	return &PersistenceError{Kind: KindNotFound, Op: "first", Err: gorm.ErrRecordNotFound}
}

func (s *noopSession) UpdateMatching(model any, where Predicate, values map[string]any) (int64, error) {
	s.log.Debug("Discarded bulk update", "model", fmt.Sprintf("%T", model))
	return 0, nil
}

func (s *noopSession) LockKey(key string) error { return nil }
