package uow

import (
	"context"
	"hash/fnv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/btcmood-backend/internal/pkg/ctxutil"
	"github.com/yungbote/btcmood-backend/internal/pkg/dbctx"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

type gormGateway struct {
	db  *gorm.DB
	log *logger.Logger
}

func newGorm(db *gorm.DB, baseLog *logger.Logger) *gormGateway {
	return &gormGateway{db: db, log: baseLog.With("component", "uow", "mode", "write")}
}

func (g *gormGateway) WriteEnabled() bool { return true }

func (g *gormGateway) WithTransaction(ctx context.Context, fn func(s Session) error) error {
	ctx = ctxutil.Default(ctx)
	fnFailed := false
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(&gormSession{dbc: dbctx.Context{Ctx: ctx, Tx: tx}, base: g.db}); err != nil {
			fnFailed = true
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if fnFailed {
		g.log.Debug("Transaction rolled back", "error", err)
		return err
	}
	g.log.Warn("Transaction commit failed", "error", err)
	return MapError("commit", err)
}

type gormSession struct {
	dbc  dbctx.Context
	base *gorm.DB
}

func (s *gormSession) Context() context.Context { return s.dbc.Ctx }

func (s *gormSession) tx() *gorm.DB { return s.dbc.DB(s.base) }

func (s *gormSession) Add(record any) error {
	return MapError("add", s.tx().Create(record).Error)
}

func (s *gormSession) Save(record any) error {
	return MapError("save", s.tx().Save(record).Error)
}

func (s *gormSession) query(where Predicate, opts []QueryOption) *gorm.DB {
	q := s.tx()
	if sql, args := where.SQL(); sql != "" {
		q = q.Where(sql, args...)
	}
	o := applyOpts(opts)
	for _, ord := range o.order {
		q = q.Order(ord)
	}
	if o.limit > 0 {
		q = q.Limit(o.limit)
	}
	if o.forUpdate && s.dialect() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *gormSession) Find(out any, where Predicate, opts ...QueryOption) error {
	return MapError("find", s.query(where, opts).Find(out).Error)
}

func (s *gormSession) First(out any, where Predicate, opts ...QueryOption) error {
	res := s.query(where, opts).Limit(1).Find(out)
	if res.Error != nil {
		return MapError("first", res.Error)
	}
	if res.RowsAffected == 0 {
		return &PersistenceError{Kind: KindNotFound, Op: "first", Err: gorm.ErrRecordNotFound}
	}
	return nil
}

func (s *gormSession) UpdateMatching(model any, where Predicate, values map[string]any) (int64, error) {
	q := s.tx().Model(model)
	sql, args := where.SQL()
	if sql == "" {
		return 0, &PersistenceError{Kind: KindInternal, Op: "update_matching", Err: gorm.ErrMissingWhereClause}
	}
	res := q.Where(sql, args...).Updates(values)
	if res.Error != nil {
		return 0, MapError("update_matching", res.Error)
	}
	return res.RowsAffected, nil
}

// LockKey is a pg_advisory_xact_lock on postgres. sqlite already serialises
// writers, so it is a no-op there.
func (s *gormSession) LockKey(key string) error {
	if s.dialect() != "postgres" {
		return nil
	}
	return MapError("lock", s.tx().Exec("SELECT pg_advisory_xact_lock(?)", advisoryKey(key)).Error)
}

func (s *gormSession) dialect() string {
	if s.base == nil || s.base.Dialector == nil {
		return ""
	}
	return s.base.Dialector.Name()
}

func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
