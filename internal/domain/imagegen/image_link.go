package imagegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImageLink is one image-generation + upload attempt, owned by exactly one
// Prompt. On failure the error text is stashed in the url field the failing
// step was trying to populate.
type ImageLink struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PromptID          uuid.UUID  `gorm:"type:uuid;column:prompt_id;not null;uniqueIndex" json:"prompt_id"`
	GeneratedImageURL string     `gorm:"column:generated_image_url;type:text;not null" json:"generated_image_url"`
	// StoredImageURL holds the object key in the image bucket once uploaded.
	StoredImageURL *string    `gorm:"column:stored_image_url;type:text" json:"stored_image_url,omitempty"`
	Status         TaskStatus `gorm:"column:status;type:varchar(16);not null;default:PENDING;index" json:"status"`
	CreatedAt      time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`

	Prompt *Prompt `gorm:"foreignKey:PromptID;references:ID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (ImageLink) TableName() string { return "image_link" }

func (l *ImageLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = TaskStatusPending
	}
	return nil
}

// StoredKey returns the uploaded object key, or "" when nothing was stored.
func (l *ImageLink) StoredKey() string {
	if l == nil || l.StoredImageURL == nil || l.Status != TaskStatusCompleted {
		return ""
	}
	return *l.StoredImageURL
}
