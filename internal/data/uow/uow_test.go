package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/btcmood-backend/internal/data/repos/testutil"
	"github.com/yungbote/btcmood-backend/internal/domain/imagegen"
)

func TestWithTransactionCommitsOnNil(t *testing.T) {
	db := testutil.DB(t)
	gw := New(db, testutil.Logger(t), true)
	ctx := context.Background()

	p := &imagegen.Prompt{ID: uuid.New(), PromptType: imagegen.PromptTypeGetHolidays, Status: imagegen.TaskStatusPending}
	if err := gw.WithTransaction(ctx, func(s Session) error { return s.Add(p) }); err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	var got imagegen.Prompt
	if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("load committed prompt: %v", err)
	}
	if got.Status != imagegen.TaskStatusPending {
		t.Fatalf("status: want=%q got=%q", imagegen.TaskStatusPending, got.Status)
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := testutil.DB(t)
	gw := New(db, testutil.Logger(t), true)
	ctx := context.Background()

	boom := errors.New("boom")
	p := &imagegen.Prompt{ID: uuid.New(), PromptType: imagegen.PromptTypeGetHolidays}
	err := gw.WithTransaction(ctx, func(s Session) error {
		if err := s.Add(p); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	var n int64
	if err := db.Model(&imagegen.Prompt{}).Where("id = ?", p.ID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rolled back row visible: count=%d", n)
	}
}

func TestActiveIndexViolationIsConflict(t *testing.T) {
	db := testutil.DB(t)
	gw := New(db, testutil.Logger(t), true)
	ctx := context.Background()

	mk := func() *imagegen.DailyImageVersion {
		return &imagegen.DailyImageVersion{
			ID:          uuid.New(),
			ImageLinkID: uuid.New(),
			PromptType:  imagegen.PromptTypeGenerateImageHappy,
			Status:      imagegen.TaskStatusCompleted,
			IsActive:    true,
		}
	}
	if err := gw.WithTransaction(ctx, func(s Session) error { return s.Add(mk()) }); err != nil {
		t.Fatalf("first active insert: %v", err)
	}
	err := gw.WithTransaction(ctx, func(s Session) error { return s.Add(mk()) })
	if !IsKind(err, KindConflict) {
		t.Fatalf("second active insert: want conflict, got %v", err)
	}
}

func TestFirstNotFound(t *testing.T) {
	db := testutil.DB(t)
	gw := New(db, testutil.Logger(t), true)

	err := gw.WithTransaction(context.Background(), func(s Session) error {
		var v imagegen.DailyImageVersion
		return s.First(&v, Eq("id", uuid.New()))
	})
	if !IsKind(err, KindNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestUpdateMatchingRequiresWhere(t *testing.T) {
	db := testutil.DB(t)
	gw := New(db, testutil.Logger(t), true)

	err := gw.WithTransaction(context.Background(), func(s Session) error {
		_, err := s.UpdateMatching(&imagegen.DailyImageVersion{}, All(), map[string]any{"is_active": false})
		return err
	})
	if !IsKind(err, KindInternal) {
		t.Fatalf("want internal, got %v", err)
	}
}

func TestNoopDiscardsWrites(t *testing.T) {
	db := testutil.DB(t)
	gw := New(db, testutil.Logger(t), false)
	if gw.WriteEnabled() {
		t.Fatalf("expected dry-run gateway")
	}

	p := &imagegen.Prompt{ID: uuid.New(), PromptType: imagegen.PromptTypeGetHolidays}
	err := gw.WithTransaction(context.Background(), func(s Session) error {
		if err := s.Add(p); err != nil {
			return err
		}
		if err := s.LockKey("x"); err != nil {
			return err
		}
		n, err := s.UpdateMatching(&imagegen.Prompt{}, Eq("id", p.ID), map[string]any{"status": imagegen.TaskStatusFailed})
		if err != nil {
			return err
		}
		if n != 0 {
			t.Fatalf("noop rows affected: want=0 got=%d", n)
		}
		var rows []imagegen.Prompt
		if err := s.Find(&rows, All()); err != nil {
			return err
		}
		if len(rows) != 0 {
			t.Fatalf("noop find returned %d rows", len(rows))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	var n int64
	if err := db.Model(&imagegen.Prompt{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("dry-run wrote %d rows", n)
	}
}

func TestPredicateSQL(t *testing.T) {
	sql, args := Eq("prompt_type", "a").And("is_active = ?", true).AndEq("status", "COMPLETED").SQL()
	want := "(prompt_type = ?) AND (is_active = ?) AND (status = ?)"
	if sql != want {
		t.Fatalf("sql: want=%q got=%q", want, sql)
	}
	if len(args) != 3 {
		t.Fatalf("args: want=3 got=%d", len(args))
	}
	if s, _ := All().SQL(); s != "" {
		t.Fatalf("All(): want empty sql, got %q", s)
	}
}

func TestMapErrorPassesThroughClassified(t *testing.T) {
	pe := &PersistenceError{Kind: KindRetryable, Op: "x", Err: errors.New("y")}
	if got := MapError("z", pe); got != error(pe) {
		t.Fatalf("classified error was rewrapped: %v", got)
	}
	if !IsKind(MapError("add", context.DeadlineExceeded), KindRetryable) {
		t.Fatalf("deadline should be retryable")
	}
	if MapError("noop", nil) != nil {
		t.Fatalf("nil should map to nil")
	}
}
