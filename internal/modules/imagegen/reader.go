package imagegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	repos "github.com/yungbote/btcmood-backend/internal/data/repos/imagegen"
	"github.com/yungbote/btcmood-backend/internal/data/uow"
	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	pkgerrors "github.com/yungbote/btcmood-backend/internal/pkg/errors"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

// ErrNotFound means no servable version exists for the category; callers
// fall back to their static asset.
var ErrNotFound = pkgerrors.ErrNotFound

// ActiveCache holds the served version per category. A miss is (nil, nil).
type ActiveCache interface {
	Get(ctx context.Context, pt types.PromptType) (*types.DailyImageVersion, error)
	// Fill stores v only when the category has no entry. Readers use it, so a
	// fill racing an activation can never replace the newer row.
	Fill(ctx context.Context, v *types.DailyImageVersion, ttl time.Duration) error
	// Publish overwrites the entry with a just-activated v and announces it.
	Publish(ctx context.Context, v *types.DailyImageVersion, ttl time.Duration) error
}

// ActiveImageReader answers the single read-side query: the newest active,
// completed, unexpired version of a category.
type ActiveImageReader struct {
	log      *logger.Logger
	gw       uow.Gateway
	versions repos.DailyImageVersionRepo
	cache    ActiveCache
	now      func() time.Time
}

func NewActiveImageReader(log *logger.Logger, gw uow.Gateway, versions repos.DailyImageVersionRepo, cache ActiveCache) *ActiveImageReader {
	return &ActiveImageReader{
		log:      log.With("service", "ActiveImageReader"),
		gw:       gw,
		versions: versions,
		cache:    cache,
		now:      time.Now,
	}
}

func (r *ActiveImageReader) GetActive(ctx context.Context, pt types.PromptType) (*types.DailyImageVersion, error) {
	if !pt.IsImageCategory() {
		return nil, fmt.Errorf("%w: %q is not an image category", pkgerrors.ErrInvalidArgument, pt)
	}
	now := r.now()

	if r.cache != nil {
		v, err := r.cache.Get(ctx, pt)
		if err != nil {
			r.log.Warn("Active cache read failed", "category", pt, "error", err)
		} else if v.Servable(now) {
			return v, nil
		}
	}

	var v *types.DailyImageVersion
	err := r.gw.WithTransaction(ctx, func(s uow.Session) error {
		var err error
		v, err = r.versions.GetLatestActive(s, pt, now)
		return err
	})
	if uow.IsKind(err, uow.KindNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		// Entries never outlive the presigned URL they carry.
		if err := r.cache.Fill(ctx, v, v.PresignedURLExpiry.Sub(now)); err != nil {
			r.log.Warn("Active cache write failed", "category", pt, "error", err)
		}
	}
	return v, nil
}

// GetAllActive returns the servable version of every category that has one.
func (r *ActiveImageReader) GetAllActive(ctx context.Context) (map[types.PromptType]*types.DailyImageVersion, error) {
	out := make(map[types.PromptType]*types.DailyImageVersion)
	for _, pt := range types.ImageCategories() {
		v, err := r.GetActive(ctx, pt)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[pt] = v
	}
	return out, nil
}
