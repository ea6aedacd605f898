package imagegen

import "fmt"

// TaskStatus is the lifecycle state shared by every ledger row.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// PromptType tags a Prompt row with its purpose. The generate-image types are
// also the image categories: one active DailyImageVersion per type.
type PromptType string

const (
	PromptTypeGetHolidays        PromptType = "get-holidays"
	PromptTypeGenerateImageHappy PromptType = "generate-image-happy"
	PromptTypeGenerateImageSad   PromptType = "generate-image-sad"
)

func (t PromptType) Valid() bool {
	switch t {
	case PromptTypeGetHolidays, PromptTypeGenerateImageHappy, PromptTypeGenerateImageSad:
		return true
	default:
		return false
	}
}

// IsImageCategory reports whether t names an image category (as opposed to
// the shared context prompt).
func (t PromptType) IsImageCategory() bool {
	return t == PromptTypeGenerateImageHappy || t == PromptTypeGenerateImageSad
}

// ImageCategories lists every category in serving order.
func ImageCategories() []PromptType {
	return []PromptType{PromptTypeGenerateImageHappy, PromptTypeGenerateImageSad}
}

// ParsePromptType accepts the persisted value plus the short aliases used on
// the command line ("happy", "sad").
func ParsePromptType(raw string) (PromptType, error) {
	switch raw {
	case "happy", "above", "above-threshold":
		return PromptTypeGenerateImageHappy, nil
	case "sad", "below", "below-threshold":
		return PromptTypeGenerateImageSad, nil
	}
	t := PromptType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown prompt type %q", raw)
	}
	return t, nil
}
