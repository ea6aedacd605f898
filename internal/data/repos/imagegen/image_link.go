package imagegen

import (
	"github.com/google/uuid"

	"github.com/yungbote/btcmood-backend/internal/data/uow"
	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
	"github.com/yungbote/btcmood-backend/internal/pkg/pointers"
)

type ImageLinkRepo interface {
	Create(s uow.Session, l *types.ImageLink) error
	// MarkGenerated records the raw generation URL (PROCESSING).
	MarkGenerated(s uow.Session, l *types.ImageLink, rawURL string) error
	// MarkStored records the object key (COMPLETED).
	MarkStored(s uow.Session, l *types.ImageLink, key string) error
	// FailGeneration stores errText in generated_image_url.
	FailGeneration(s uow.Session, l *types.ImageLink, errText string) error
	// FailStorage stores errText in stored_image_url.
	FailStorage(s uow.Session, l *types.ImageLink, errText string) error
	GetByID(s uow.Session, id uuid.UUID) (*types.ImageLink, error)
	GetByPromptID(s uow.Session, promptID uuid.UUID) (*types.ImageLink, error)
}

type imageLinkRepo struct {
	log *logger.Logger
}

func NewImageLinkRepo(baseLog *logger.Logger) ImageLinkRepo {
	return &imageLinkRepo{log: baseLog.With("repo", "ImageLinkRepo")}
}

func (r *imageLinkRepo) Create(s uow.Session, l *types.ImageLink) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = types.TaskStatusPending
	}
	return s.Add(l)
}

func (r *imageLinkRepo) MarkGenerated(s uow.Session, l *types.ImageLink, rawURL string) error {
	l.GeneratedImageURL = rawURL
	l.Status = types.TaskStatusProcessing
	return s.Save(l)
}

func (r *imageLinkRepo) MarkStored(s uow.Session, l *types.ImageLink, key string) error {
	l.StoredImageURL = pointers.String(key)
	l.Status = types.TaskStatusCompleted
	return s.Save(l)
}

func (r *imageLinkRepo) FailGeneration(s uow.Session, l *types.ImageLink, errText string) error {
	l.GeneratedImageURL = errText
	l.Status = types.TaskStatusFailed
	return s.Save(l)
}

func (r *imageLinkRepo) FailStorage(s uow.Session, l *types.ImageLink, errText string) error {
	l.StoredImageURL = pointers.String(errText)
	l.Status = types.TaskStatusFailed
	return s.Save(l)
}

func (r *imageLinkRepo) GetByID(s uow.Session, id uuid.UUID) (*types.ImageLink, error) {
	var l types.ImageLink
	if err := s.First(&l, uow.Eq("id", id)); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *imageLinkRepo) GetByPromptID(s uow.Session, promptID uuid.UUID) (*types.ImageLink, error) {
	var l types.ImageLink
	if err := s.First(&l, uow.Eq("prompt_id", promptID)); err != nil {
		return nil, err
	}
	return &l, nil
}
