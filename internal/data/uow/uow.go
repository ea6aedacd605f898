package uow

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

// Session is the handle a unit of work hands to its callback. All reads and
// writes issued through it belong to the same transaction.
type Session interface {
	Context() context.Context
	// Add inserts a new record.
	Add(record any) error
	// Save updates every column of an existing record.
	Save(record any) error
	// Find loads all rows matching where into out (pointer to slice).
	Find(out any, where Predicate, opts ...QueryOption) error
	// First loads the first matching row into out; not_found when none.
	First(out any, where Predicate, opts ...QueryOption) error
	// UpdateMatching applies values to every row of model's table matching
	// where and reports how many rows changed.
	UpdateMatching(model any, where Predicate, values map[string]any) (int64, error)
	// LockKey takes a transaction-scoped exclusive lock on key.
	LockKey(key string) error
}

// Gateway is the only component that begins, commits or rolls back.
type Gateway interface {
	// WithTransaction commits when fn returns nil and rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(s Session) error) error
	WriteEnabled() bool
}

// New picks the strategy once: a gorm-backed unit of work when writes are
// enabled, a discarding one otherwise.
func New(db *gorm.DB, baseLog *logger.Logger, writeEnabled bool) Gateway {
	if !writeEnabled || db == nil {
		return newNoop(baseLog)
	}
	return newGorm(db, baseLog)
}
