package dailyrun

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one pipeline invocation per cron tick. The pipeline has no
// retry of its own and neither does the activity: a failed day is picked up by
// the next tick.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	req := GenerateRequest{
		Categories:  in.Categories,
		ScheduledAt: workflow.Now(ctx),
		Timezone:    in.Timezone,
	}
	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityGenerate, req).Get(ctx, &out); err != nil {
		return out, err
	}
	if len(out.Failed) > 0 {
		workflow.GetLogger(ctx).Warn("Daily images finished with failed categories", "failed", out.Failed, "target_date", out.TargetDate)
	}
	return out, nil
}
