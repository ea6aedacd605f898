package imagegen

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/btcmood-backend/internal/data/uow"
	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
	"github.com/yungbote/btcmood-backend/internal/pkg/pointers"
)

type DailyImageVersionRepo interface {
	// Create inserts v inactive regardless of what the caller set.
	Create(s uow.Session, v *types.DailyImageVersion) error
	// Activate is the swap: lock the category, deactivate every other active
	// row of v's type, then mark v COMPLETED and active. Call it inside one
	// transaction. Both Activate and Fail refuse a row that is already
	// COMPLETED or FAILED.
	Activate(s uow.Session, v *types.DailyImageVersion, presignedURL string, expiry time.Time) error
	// Fail marks v FAILED and inactive without touching siblings.
	Fail(s uow.Session, v *types.DailyImageVersion, errKind, errMsg string) error
	DeactivateSiblings(s uow.Session, pt types.PromptType, keepID uuid.UUID) (int64, error)
	// GetLatestActive returns the newest servable row of pt at now.
	GetLatestActive(s uow.Session, pt types.PromptType, now time.Time) (*types.DailyImageVersion, error)
	ListActive(s uow.Session, pt types.PromptType) ([]*types.DailyImageVersion, error)
	GetByIDs(s uow.Session, ids []uuid.UUID) ([]*types.DailyImageVersion, error)
}

type dailyImageVersionRepo struct {
	log *logger.Logger
}

func NewDailyImageVersionRepo(baseLog *logger.Logger) DailyImageVersionRepo {
	return &dailyImageVersionRepo{log: baseLog.With("repo", "DailyImageVersionRepo")}
}

func ActivationLockKey(pt types.PromptType) string {
	return "daily_image_version:" + string(pt)
}

func (r *dailyImageVersionRepo) Create(s uow.Session, v *types.DailyImageVersion) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = types.TaskStatusPending
	}
	v.IsActive = false
	return s.Add(v)
}

func (r *dailyImageVersionRepo) Activate(s uow.Session, v *types.DailyImageVersion, presignedURL string, expiry time.Time) error {
	if err := notFinal("activate", v); err != nil {
		return err
	}
	if err := s.LockKey(ActivationLockKey(v.PromptType)); err != nil {
		return err
	}
	n, err := r.DeactivateSiblings(s, v.PromptType, v.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		r.log.Debug("Deactivated previous versions", "prompt_type", v.PromptType, "count", n)
	}
	v.PresignedURL = pointers.String(presignedURL)
	v.PresignedURLExpiry = pointers.Time(expiry)
	v.Status = types.TaskStatusCompleted
	v.IsActive = true
	v.Error = nil
	v.ErrorMessage = nil
	return s.Save(v)
}

func (r *dailyImageVersionRepo) Fail(s uow.Session, v *types.DailyImageVersion, errKind, errMsg string) error {
	if err := notFinal("fail", v); err != nil {
		return err
	}
	v.Status = types.TaskStatusFailed
	v.IsActive = false
	v.PresignedURL = nil
	v.PresignedURLExpiry = nil
	v.Error = pointers.String(errKind)
	v.ErrorMessage = pointers.String(errMsg)
	return s.Save(v)
}

func notFinal(op string, v *types.DailyImageVersion) error {
	if v.Status.Terminal() {
		return &uow.PersistenceError{
			Kind: uow.KindConflict,
			Op:   op + " daily_image_version",
			Err:  fmt.Errorf("version %s is already %s", v.ID, v.Status),
		}
	}
	return nil
}

func (r *dailyImageVersionRepo) DeactivateSiblings(s uow.Session, pt types.PromptType, keepID uuid.UUID) (int64, error) {
	where := uow.Eq("prompt_type", pt).And("is_active = ?", true).And("id <> ?", keepID)
	return s.UpdateMatching(&types.DailyImageVersion{}, where, map[string]any{"is_active": false})
}

func (r *dailyImageVersionRepo) GetLatestActive(s uow.Session, pt types.PromptType, now time.Time) (*types.DailyImageVersion, error) {
	where := uow.Eq("prompt_type", pt).
		And("is_active = ?", true).
		AndEq("status", types.TaskStatusCompleted).
		And("presigned_url IS NOT NULL").
		And("presigned_url_expiry > ?", now)
	var v types.DailyImageVersion
	if err := s.First(&v, where, uow.OrderBy("created_at DESC")); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *dailyImageVersionRepo) ListActive(s uow.Session, pt types.PromptType) ([]*types.DailyImageVersion, error) {
	var out []*types.DailyImageVersion
	if err := s.Find(&out, uow.Eq("prompt_type", pt).And("is_active = ?", true), uow.OrderBy("created_at DESC")); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dailyImageVersionRepo) GetByIDs(s uow.Session, ids []uuid.UUID) ([]*types.DailyImageVersion, error) {
	var out []*types.DailyImageVersion
	if len(ids) == 0 {
		return out, nil
	}
	if err := s.Find(&out, uow.Where("id IN ?", ids), uow.OrderBy("created_at ASC")); err != nil {
		return nil, err
	}
	return out, nil
}
