package imagegen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/btcmood-backend/internal/clients/gcp"
	"github.com/yungbote/btcmood-backend/internal/clients/openai"
	repos "github.com/yungbote/btcmood-backend/internal/data/repos/imagegen"
	"github.com/yungbote/btcmood-backend/internal/data/uow"
	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/modules/imagegen/prompts"
	"github.com/yungbote/btcmood-backend/internal/observability"
	pkgerrors "github.com/yungbote/btcmood-backend/internal/pkg/errors"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

const DefaultPresignTTL = 25 * time.Hour

type Deps struct {
	Log        *logger.Logger
	Gateway    uow.Gateway
	Prompts    repos.PromptRepo
	ImageLinks repos.ImageLinkRepo
	Versions   repos.DailyImageVersionRepo
	Text       openai.TextGenerator
	Images     openai.ImageGenerator
	Store      gcp.ImageStore
	Templates  *prompts.Set
	// Cache is optional; each activation is written through and announced.
	Cache ActiveCache
	// Now defaults to time.Now.
	Now func() time.Time
}

type Options struct {
	Image      openai.ImageOptions
	PresignTTL time.Duration
	// Concurrency bounds how many categories run at once; 1 is sequential.
	Concurrency int
}

type Orchestrator struct {
	deps Deps
	opts Options
	log  *logger.Logger
}

func NewOrchestrator(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Log == nil:
		return nil, fmt.Errorf("%w: logger required", pkgerrors.ErrInvalidArgument)
	case deps.Gateway == nil:
		return nil, fmt.Errorf("%w: gateway required", pkgerrors.ErrInvalidArgument)
	case deps.Prompts == nil || deps.ImageLinks == nil || deps.Versions == nil:
		return nil, fmt.Errorf("%w: repos required", pkgerrors.ErrInvalidArgument)
	case deps.Text == nil || deps.Images == nil:
		return nil, fmt.Errorf("%w: generation clients required", pkgerrors.ErrInvalidArgument)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: image store required", pkgerrors.ErrInvalidArgument)
	case deps.Templates == nil:
		return nil, fmt.Errorf("%w: prompt templates required", pkgerrors.ErrInvalidArgument)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = DefaultPresignTTL
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Image.Size == "" {
		opts.Image.Size = "1024x1024"
	}
	if opts.Image.Quality == "" {
		opts.Image.Quality = "standard"
	}
	return &Orchestrator{
		deps: deps,
		opts: opts,
		log:  deps.Log.With("service", "ImageOrchestrator"),
	}, nil
}

// GenerateDailyImages fetches the shared context once and then runs every
// category through generate, store, presign and activate.
//
// The returned ids cover every DailyImageVersion row created, in category
// order, including FAILED ones. A context failure aborts the call and returns
// *ContextError. Category failures do not stop the other categories; they come
// back together as *CategoryErrors next to the ids.
func (o *Orchestrator) GenerateDailyImages(ctx context.Context, categories []types.PromptType, targetDate, presignedExpiry time.Time) ([]uuid.UUID, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: at least one category required", pkgerrors.ErrInvalidArgument)
	}
	names := make([]string, 0, len(categories))
	for _, pt := range categories {
		if !pt.IsImageCategory() {
			return nil, fmt.Errorf("%w: %q is not an image category", pkgerrors.ErrInvalidArgument, pt)
		}
		names = append(names, string(pt))
	}

	ctx, span := observability.Tracer().Start(ctx, "imagegen.generate_daily_images", trace.WithAttributes(
		attribute.StringSlice("imagegen.categories", names),
		attribute.String("imagegen.target_date", targetDate.Format("2006-01-02")),
		attribute.Bool("imagegen.write_enabled", o.deps.Gateway.WriteEnabled()),
	))
	defer span.End()

	runLog := o.log.With("target_date", targetDate.Format("2006-01-02"), "categories", names)
	runLog.Info("Daily image run started", "write_enabled", o.deps.Gateway.WriteEnabled())

	contextPrompt, contextText, err := o.fetchContext(ctx, targetDate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch context failed")
		runLog.Error("Context fetch failed; run aborted", "error", err)
		return nil, err
	}

	ids := make([]uuid.UUID, len(categories))
	failures := make([]*CategoryError, len(categories))
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, pt := range categories {
		g.Go(func() error {
			id, err := o.runCategory(ctx, pt, contextPrompt.ID, contextText, targetDate, presignedExpiry)
			ids[i] = id
			if err != nil {
				failures[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	var failed []*CategoryError
	for _, ce := range failures {
		if ce != nil {
			failed = append(failed, ce)
		}
	}
	if len(failed) > 0 {
		err := &CategoryErrors{Errors: failed}
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("%d categories failed", len(failed)))
		runLog.Warn("Daily image run finished with failures", "failed", len(failed), "versions", len(out))
		return out, err
	}
	runLog.Info("Daily image run finished", "versions", len(out))
	return out, nil
}

// PresignTTL is the lifetime requested for signed URLs. Triggers use it to
// derive presignedExpiry from their own clock.
func (o *Orchestrator) PresignTTL() time.Duration { return o.opts.PresignTTL }

func (o *Orchestrator) fetchContext(ctx context.Context, targetDate time.Time) (p *types.Prompt, text string, err error) {
	ctx, span := o.startStep(ctx, types.PromptTypeGetHolidays, StepFetchContext)
	defer func() { endStep(span, err) }()

	p = &types.Prompt{
		PromptType: types.PromptTypeGetHolidays,
		PromptDate: calendarDay(targetDate),
	}
	if err := o.tx(ctx, func(s uow.Session) error { return o.deps.Prompts.Create(s, p) }); err != nil {
		return nil, "", &ContextError{Err: err}
	}

	system, user, err := o.deps.Templates.ContextPrompt(targetDate)
	if err == nil {
		text, err = o.deps.Text.GenerateText(ctx, system, user)
	}
	if err != nil {
		recErr := o.record(ctx, func(s uow.Session) error { return o.deps.Prompts.Fail(s, p, err.Error()) })
		return nil, "", &ContextError{Err: withRecordErr(err, recErr)}
	}
	if err := o.tx(ctx, func(s uow.Session) error { return o.deps.Prompts.Complete(s, p, text) }); err != nil {
		return nil, "", &ContextError{Err: err}
	}
	o.log.Debug("Context fetched", "prompt_id", p.ID, "chars", len(text))
	return p, text, nil
}

// runCategory returns the id of the version row when one was created, even
// if the category failed afterwards.
func (o *Orchestrator) runCategory(ctx context.Context, pt types.PromptType, contextPromptID uuid.UUID, contextText string, targetDate, presignedExpiry time.Time) (uuid.UUID, *CategoryError) {
	catLog := o.log.With("category", pt)
	fail := func(step Step, err error) *CategoryError {
		catLog.Error("Category step failed", "step", step, "error", err)
		return &CategoryError{Category: pt, Step: step, Err: err}
	}

	promptText, promptID, err := o.buildPrompt(ctx, pt, contextPromptID, contextText, targetDate)
	if err != nil {
		return uuid.Nil, fail(StepBuildPrompt, err)
	}

	link := &types.ImageLink{PromptID: promptID}
	if err := o.generateImage(ctx, pt, link, promptText); err != nil {
		return uuid.Nil, fail(StepGenerateImage, err)
	}

	key := ObjectKey(pt, targetDate, o.deps.Now(), link.ID)
	if err := o.storeImage(ctx, pt, link, key); err != nil {
		return uuid.Nil, fail(StepStoreImage, err)
	}

	v := &types.DailyImageVersion{
		ImageLinkID: link.ID,
		PromptType:  pt,
		PromptDate:  calendarDay(targetDate),
	}
	if err := o.tx(ctx, func(s uow.Session) error { return o.deps.Versions.Create(s, v) }); err != nil {
		return uuid.Nil, fail(StepActivate, err)
	}
	if err := o.presignAndActivate(ctx, v, link.StoredKey(), presignedExpiry); err != nil {
		return v.ID, fail(StepActivate, err)
	}
	catLog.Info("Category activated", "version_id", v.ID, "key", link.StoredKey(), "expires_at", presignedExpiry)
	return v.ID, nil
}

func (o *Orchestrator) buildPrompt(ctx context.Context, pt types.PromptType, contextPromptID uuid.UUID, contextText string, targetDate time.Time) (text string, id uuid.UUID, err error) {
	ctx, span := o.startStep(ctx, pt, StepBuildPrompt)
	defer func() { endStep(span, err) }()

	holiday, err := json.Marshal(map[string]string{
		"target_date":       targetDate.Format("2006-01-02"),
		"context_prompt_id": contextPromptID.String(),
	})
	if err != nil {
		return "", uuid.Nil, err
	}
	p := &types.Prompt{
		PromptType: pt,
		PromptDate: calendarDay(targetDate),
		Holiday:    datatypes.JSON(holiday),
	}
	if err := o.tx(ctx, func(s uow.Session) error { return o.deps.Prompts.Create(s, p) }); err != nil {
		return "", uuid.Nil, err
	}

	text, err = o.deps.Templates.CategoryPrompt(pt, contextText)
	if err != nil {
		recErr := o.record(ctx, func(s uow.Session) error { return o.deps.Prompts.Fail(s, p, err.Error()) })
		return "", p.ID, withRecordErr(err, recErr)
	}
	if err := o.tx(ctx, func(s uow.Session) error { return o.deps.Prompts.Complete(s, p, text) }); err != nil {
		return "", p.ID, err
	}
	return text, p.ID, nil
}

func (o *Orchestrator) generateImage(ctx context.Context, pt types.PromptType, link *types.ImageLink, promptText string) (err error) {
	ctx, span := o.startStep(ctx, pt, StepGenerateImage)
	defer func() { endStep(span, err) }()

	if err := o.tx(ctx, func(s uow.Session) error { return o.deps.ImageLinks.Create(s, link) }); err != nil {
		return err
	}
	rawURL, err := o.deps.Images.GenerateImageURL(ctx, promptText, o.opts.Image)
	if err != nil {
		recErr := o.record(ctx, func(s uow.Session) error { return o.deps.ImageLinks.FailGeneration(s, link, err.Error()) })
		return withRecordErr(err, recErr)
	}
	return o.tx(ctx, func(s uow.Session) error { return o.deps.ImageLinks.MarkGenerated(s, link, rawURL) })
}

func (o *Orchestrator) storeImage(ctx context.Context, pt types.PromptType, link *types.ImageLink, key string) (err error) {
	ctx, span := o.startStep(ctx, pt, StepStoreImage)
	span.SetAttributes(attribute.String("imagegen.object_key", key))
	defer func() { endStep(span, err) }()

	stored, err := o.deps.Store.SaveImageFromURL(ctx, link.GeneratedImageURL, key)
	if err != nil {
		recErr := o.record(ctx, func(s uow.Session) error { return o.deps.ImageLinks.FailStorage(s, link, err.Error()) })
		return withRecordErr(err, recErr)
	}
	return o.tx(ctx, func(s uow.Session) error { return o.deps.ImageLinks.MarkStored(s, link, stored) })
}

// presignAndActivate signs key and swaps v in as the active version. Siblings
// are only touched on the success path.
func (o *Orchestrator) presignAndActivate(ctx context.Context, v *types.DailyImageVersion, key string, presignedExpiry time.Time) (err error) {
	ctx, span := o.startStep(ctx, v.PromptType, StepActivate)
	defer func() { endStep(span, err) }()

	url, err := o.deps.Store.PresignURL(ctx, key, o.opts.PresignTTL)
	if err != nil {
		recErr := o.record(ctx, func(s uow.Session) error {
			return o.deps.Versions.Fail(s, v, errorKind(err), err.Error())
		})
		return withRecordErr(err, recErr)
	}

	pending := *v
	if err := o.tx(ctx, func(s uow.Session) error {
		return o.deps.Versions.Activate(s, v, url, presignedExpiry)
	}); err != nil {
		// The row on disk is still the pending one.
		*v = pending
		recErr := o.record(ctx, func(s uow.Session) error {
			return o.deps.Versions.Fail(s, v, errorKind(err), err.Error())
		})
		return withRecordErr(err, recErr)
	}

	o.publishActive(ctx, v, presignedExpiry)
	return nil
}

// publishActive writes the new active row through to the cache. Dry runs
// committed nothing, so they leave the cache and its subscribers alone.
func (o *Orchestrator) publishActive(ctx context.Context, v *types.DailyImageVersion, presignedExpiry time.Time) {
	if o.deps.Cache == nil || !o.deps.Gateway.WriteEnabled() {
		return
	}
	ttl := presignedExpiry.Sub(o.deps.Now())
	if err := o.deps.Cache.Publish(context.WithoutCancel(ctx), v, ttl); err != nil {
		o.log.Warn("Active cache publish failed", "category", v.PromptType, "error", err)
	}
}

func (o *Orchestrator) tx(ctx context.Context, fn func(s uow.Session) error) error {
	return o.deps.Gateway.WithTransaction(ctx, fn)
}

// record persists a failure outcome even when ctx is already cancelled.
func (o *Orchestrator) record(ctx context.Context, fn func(s uow.Session) error) error {
	return o.deps.Gateway.WithTransaction(context.WithoutCancel(ctx), fn)
}

func (o *Orchestrator) startStep(ctx context.Context, pt types.PromptType, step Step) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, "imagegen."+string(step), trace.WithAttributes(
		attribute.String("imagegen.category", string(pt)),
	))
}

func endStep(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
