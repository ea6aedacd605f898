package imagegen

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/btcmood-backend/internal/clients/openai"
	repos "github.com/yungbote/btcmood-backend/internal/data/repos/imagegen"
	"github.com/yungbote/btcmood-backend/internal/data/repos/testutil"
	"github.com/yungbote/btcmood-backend/internal/data/uow"
	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/modules/imagegen/prompts"
)

type fakeText struct {
	mu    sync.Mutex
	calls int
	users []string
	text  string
	err   error
}

func (f *fakeText) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.users = append(f.users, user)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeImages struct {
	mu      sync.Mutex
	prompts []string
	opts    []openai.ImageOptions
	url     string
	err     error
	// before runs ahead of the response, e.g. to cancel the caller's context.
	before func()
}

func (f *fakeImages) GenerateImageURL(ctx context.Context, prompt string, opts openai.ImageOptions) (string, error) {
	if f.before != nil {
		f.before()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func (f *fakeImages) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeStore struct {
	mu         sync.Mutex
	saved      []string
	presigned  []string
	ttls       []time.Duration
	saveErr    error
	presignErr error
}

func (f *fakeStore) SaveImageFromURL(ctx context.Context, sourceURL, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, key)
	return key, nil
}

func (f *fakeStore) Upload(ctx context.Context, key string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, key)
	return key, nil
}

func (f *fakeStore) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls = append(f.ttls, ttl)
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.presigned = append(f.presigned, key)
	return "https://storage.example.com/images/" + key + "?X-Goog-Signature=sig", nil
}

type fakeCache struct {
	mu        sync.Mutex
	entries   map[types.PromptType]*types.DailyImageVersion
	ttls      map[types.PromptType]time.Duration
	gets      int
	published []types.PromptType
	// beforeFill runs once, outside the lock, ahead of the next Fill.
	beforeFill func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: map[types.PromptType]*types.DailyImageVersion{},
		ttls:    map[types.PromptType]time.Duration{},
	}
}

func (f *fakeCache) Get(ctx context.Context, pt types.PromptType) (*types.DailyImageVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	return f.entries[pt], nil
}

func (f *fakeCache) Fill(ctx context.Context, v *types.DailyImageVersion, ttl time.Duration) error {
	f.mu.Lock()
	hook := f.beforeFill
	f.beforeFill = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[v.PromptType]; ok {
		return nil
	}
	f.entries[v.PromptType] = v
	f.ttls[v.PromptType] = ttl
	return nil
}

func (f *fakeCache) Publish(ctx context.Context, v *types.DailyImageVersion, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	f.entries[v.PromptType] = &cp
	f.ttls[v.PromptType] = ttl
	f.published = append(f.published, v.PromptType)
	return nil
}

func (f *fakeCache) entry(pt types.PromptType) *types.DailyImageVersion {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[pt]
}

// tickingClock advances one second per reading so every run sees a later
// instant than the one before.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type harness struct {
	db       *gorm.DB
	gw       uow.Gateway
	versions repos.DailyImageVersionRepo
	text     *fakeText
	images   *fakeImages
	store    *fakeStore
	cache    *fakeCache
	orch     *Orchestrator
}

type harnessOpts struct {
	writeDisabled bool
	templates     *prompts.Set
	concurrency   int
	// now replaces the one-second ticking clock.
	now           func() time.Time
}

var (
	runDate   = time.Date(2026, 10, 15, 0, 1, 0, 0, time.UTC)
	runExpiry = time.Date(2026, 10, 16, 1, 1, 0, 0, time.UTC)
	readerNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
)

func newHarness(t *testing.T, ho harnessOpts) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	tmpl := ho.templates
	if tmpl == nil {
		var err error
		tmpl, err = prompts.Load("")
		if err != nil {
			t.Fatalf("load templates: %v", err)
		}
	}

	h := &harness{
		db:       db,
		gw:       uow.New(db, log, !ho.writeDisabled),
		versions: repos.NewDailyImageVersionRepo(log),
		text:     &fakeText{text: "Holiday A, Holiday B"},
		images:   &fakeImages{url: "https://images.example.com/raw/abc.png"},
		store:    &fakeStore{},
		cache:    newFakeCache(),
	}
	now := ho.now
	if now == nil {
		now = (&tickingClock{t: time.Date(2026, 10, 15, 7, 1, 0, 0, time.UTC)}).Now
	}
	orch, err := NewOrchestrator(Deps{
		Log:        log,
		Gateway:    h.gw,
		Prompts:    repos.NewPromptRepo(log),
		ImageLinks: repos.NewImageLinkRepo(log),
		Versions:   h.versions,
		Text:       h.text,
		Images:     h.images,
		Store:      h.store,
		Templates:  tmpl,
		Cache:      h.cache,
		Now:        now,
	}, Options{Concurrency: ho.concurrency})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) reader(t *testing.T, cache ActiveCache) *ActiveImageReader {
	t.Helper()
	r := NewActiveImageReader(testutil.Logger(t), h.gw, h.versions, cache)
	r.now = func() time.Time { return readerNow }
	return r
}

func (h *harness) version(t *testing.T, id any) types.DailyImageVersion {
	t.Helper()
	var v types.DailyImageVersion
	if err := h.db.First(&v, "id = ?", id).Error; err != nil {
		t.Fatalf("load version %v: %v", id, err)
	}
	return v
}

func (h *harness) activeCount(t *testing.T, pt types.PromptType) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(&types.DailyImageVersion{}).Where("prompt_type = ? AND is_active = ?", pt, true).Count(&n).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	return n
}

func (h *harness) promptsOfType(t *testing.T, pt types.PromptType) []types.Prompt {
	t.Helper()
	var out []types.Prompt
	if err := h.db.Where("prompt_type = ?", pt).Order("created_at ASC").Find(&out).Error; err != nil {
		t.Fatalf("load prompts: %v", err)
	}
	return out
}
