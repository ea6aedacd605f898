package dailyrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/modules/imagegen"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

// Generator is the pipeline entry point the activity drives.
type Generator interface {
	GenerateDailyImages(ctx context.Context, categories []types.PromptType, targetDate, presignedExpiry time.Time) ([]uuid.UUID, error)
	PresignTTL() time.Duration
}

type Activities struct {
	Log       *logger.Logger
	Generator Generator
	// Now stamps presignedExpiry; it defaults to time.Now.
	Now func() time.Time
}

// Generate runs the pipeline for the calendar day req.ScheduledAt falls on in
// req.Timezone. Category failures are reported in Result.Failed; only a
// context failure or bad input fails the activity.
func (a *Activities) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	if a == nil || a.Generator == nil {
		return Result{}, fmt.Errorf("dailyrun: activity not configured")
	}
	categories, err := ParseCategories(req.Categories)
	if err != nil {
		return Result{}, temporal.NewNonRetryableApplicationError(err.Error(), "invalid_categories", err)
	}
	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		return Result{}, temporal.NewNonRetryableApplicationError(err.Error(), "invalid_timezone", err)
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	targetDate := req.ScheduledAt.In(loc)
	res := Result{TargetDate: targetDate.Format("2006-01-02")}

	ids, err := a.Generator.GenerateDailyImages(ctx, categories, targetDate, now().Add(a.Generator.PresignTTL()))
	for _, id := range ids {
		res.VersionIDs = append(res.VersionIDs, id.String())
	}
	var cerrs *imagegen.CategoryErrors
	if errors.As(err, &cerrs) {
		for _, ce := range cerrs.Errors {
			res.Failed = append(res.Failed, string(ce.Category))
		}
		a.Log.Warn("Daily images partially failed", "target_date", res.TargetDate, "failed", res.Failed, "error", err)
		return res, nil
	}
	if err != nil {
		return res, err
	}
	a.Log.Info("Daily images generated", "target_date", res.TargetDate, "versions", len(res.VersionIDs))
	return res, nil
}

// ParseCategories maps raw names (or aliases) to image categories. Empty
// input means every category.
func ParseCategories(raw []string) ([]types.PromptType, error) {
	if len(raw) == 0 {
		return types.ImageCategories(), nil
	}
	out := make([]types.PromptType, 0, len(raw))
	for _, r := range raw {
		pt, err := types.ParsePromptType(r)
		if err != nil {
			return nil, err
		}
		if !pt.IsImageCategory() {
			return nil, fmt.Errorf("%q is not an image category", r)
		}
		out = append(out, pt)
	}
	return out, nil
}
