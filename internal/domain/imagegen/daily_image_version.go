package imagegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyImageVersion is the publishable artifact for one category.
//
// At most one row per PromptType has IsActive = true at any committed point;
// the partial unique index created in data/db enforces it. Rows are inserted
// inactive and only flipped active inside the activation transaction.
type DailyImageVersion struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ImageLinkID        uuid.UUID  `gorm:"type:uuid;column:image_link_id;not null;index" json:"image_link_id"`
	PresignedURL       *string    `gorm:"column:presigned_url;type:text" json:"presigned_url,omitempty"`
	PresignedURLExpiry *time.Time `gorm:"column:presigned_url_expiry" json:"presigned_url_expiry,omitempty"`
	IsActive           bool       `gorm:"column:is_active;not null;default:false;index" json:"is_active"`
	PromptType         PromptType `gorm:"column:prompt_type;type:varchar(32);not null;index" json:"prompt_type"`
	PromptDate         time.Time  `gorm:"column:prompt_date;type:date;not null;index" json:"prompt_date"`
	Status             TaskStatus `gorm:"column:status;type:varchar(16);not null;default:PENDING;index" json:"status"`
	Error              *string    `gorm:"column:error;type:text" json:"error,omitempty"`
	ErrorMessage       *string    `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt          time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`
}

func (DailyImageVersion) TableName() string { return "daily_image_version" }

func (v *DailyImageVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = TaskStatusPending
	}
	return nil
}

// Servable reports whether the row satisfies the read-side contract at now.
func (v *DailyImageVersion) Servable(now time.Time) bool {
	if v == nil || !v.IsActive || v.Status != TaskStatusCompleted {
		return false
	}
	if v.PresignedURL == nil || *v.PresignedURL == "" || v.PresignedURLExpiry == nil {
		return false
	}
	return v.PresignedURLExpiry.After(now)
}
