package imagegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Prompt is one text-generation attempt. PromptText holds the generated text
// on success and the error description on failure.
type Prompt struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PromptText string         `gorm:"column:prompt_text;type:text;not null" json:"prompt_text"`
	PromptDate time.Time      `gorm:"column:prompt_date;type:date;not null" json:"prompt_date"`
	PromptType PromptType     `gorm:"column:prompt_type;type:varchar(32);not null;index" json:"prompt_type"`
	Status     TaskStatus     `gorm:"column:status;type:varchar(16);not null;default:PENDING;index" json:"status"`
	Holiday    datatypes.JSON `gorm:"column:holiday;type:jsonb;not null" json:"holiday"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (Prompt) TableName() string { return "prompt" }

func (p *Prompt) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if len(p.Holiday) == 0 {
		p.Holiday = datatypes.JSON([]byte("{}"))
	}
	if p.Status == "" {
		p.Status = TaskStatusPending
	}
	return nil
}
