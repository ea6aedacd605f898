package imagegen

import (
	"github.com/google/uuid"

	"github.com/yungbote/btcmood-backend/internal/data/uow"
	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
)

type PromptRepo interface {
	Create(s uow.Session, p *types.Prompt) error
	Complete(s uow.Session, p *types.Prompt, text string) error
	Fail(s uow.Session, p *types.Prompt, errText string) error
	GetByID(s uow.Session, id uuid.UUID) (*types.Prompt, error)
}

type promptRepo struct {
	log *logger.Logger
}

func NewPromptRepo(baseLog *logger.Logger) PromptRepo {
	return &promptRepo{log: baseLog.With("repo", "PromptRepo")}
}

func (r *promptRepo) Create(s uow.Session, p *types.Prompt) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = types.TaskStatusPending
	}
	return s.Add(p)
}

func (r *promptRepo) Complete(s uow.Session, p *types.Prompt, text string) error {
	p.PromptText = text
	p.Status = types.TaskStatusCompleted
	return s.Save(p)
}

func (r *promptRepo) Fail(s uow.Session, p *types.Prompt, errText string) error {
	p.PromptText = errText
	p.Status = types.TaskStatusFailed
	return s.Save(p)
}

func (r *promptRepo) GetByID(s uow.Session, id uuid.UUID) (*types.Prompt, error) {
	var p types.Prompt
	if err := s.First(&p, uow.Eq("id", id)); err != nil {
		return nil, err
	}
	return &p, nil
}
