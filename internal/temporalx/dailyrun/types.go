package dailyrun

import "time"

const (
	WorkflowName     = "daily_images"
	ActivityGenerate = "daily_images_generate"
)

// Input is the cron workflow argument. Empty Categories means every image
// category.
type Input struct {
	Categories []string `json:"categories,omitempty"`
	// Timezone decides which calendar day a tick belongs to.
	Timezone   string   `json:"timezone,omitempty"`
}

type GenerateRequest struct {
	Categories  []string  `json:"categories,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Timezone    string    `json:"timezone,omitempty"`
}

type Result struct {
	TargetDate string   `json:"target_date"`
	VersionIDs []string `json:"version_ids,omitempty"`
	Failed     []string `json:"failed,omitempty"`
}
