package uow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind string

const (
	KindConflict  Kind = "conflict"
	KindRetryable Kind = "retryable"
	KindNotFound  Kind = "not_found"
	KindInternal  Kind = "internal"
)

// PersistenceError is every failure that crosses the Gateway boundary.
type PersistenceError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("persistence %s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("persistence %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsKind reports whether err carries a PersistenceError of kind k.
func IsKind(err error, k Kind) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == k
}

// MapError classifies driver/gorm failures. Already classified errors pass
// through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	wrap := func(k Kind) error { return &PersistenceError{Kind: k, Op: op, Err: err} }

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return wrap(KindNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return wrap(KindConflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return wrap(KindRetryable)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return wrap(KindConflict) // unique_violation
		case "23503":
			return wrap(KindConflict) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return wrap(KindRetryable) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "already exists"):
		return wrap(KindConflict)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return wrap(KindRetryable)
	default:
		return wrap(KindInternal)
	}
}
