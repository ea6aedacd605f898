package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
	"github.com/yungbote/btcmood-backend/internal/temporalx"
	"github.com/yungbote/btcmood-backend/internal/temporalx/dailyrun"
)

type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	cfg  temporalx.Config
	acts *dailyrun.Activities
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, acts *dailyrun.Activities) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if acts == nil || acts.Generator == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:  log.With("service", "TemporalWorker"),
		tc:   tc,
		cfg:  cfg,
		acts: acts,
	}, nil
}

// Start polls the task queue until ctx is done. Start failures are retried
// for up to the dial wait, which covers a namespace still being created.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}

		if r.cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
}

// EnsureCron starts the cron workflow unless an execution with the same id
// is already running.
func (r *Runner) EnsureCron(ctx context.Context, in dailyrun.Input) error {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:           r.cfg.WorkflowID,
		TaskQueue:    r.cfg.TaskQueue,
		CronSchedule: r.cfg.TemporalCron(),
	}
	run, err := r.tc.ExecuteWorkflow(ctx, opts, dailyrun.WorkflowName, in)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		r.log.Info("Daily images cron already scheduled", "workflow_id", r.cfg.WorkflowID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("start cron workflow: %w", err)
	}
	r.log.Info("Daily images cron scheduled", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "cron", opts.CronSchedule)
	return nil
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.WorkerConcurrency,
	})
	w.RegisterWorkflowWithOptions(dailyrun.Workflow, workflow.RegisterOptions{Name: dailyrun.WorkflowName})
	w.RegisterActivityWithOptions(r.acts.Generate, activity.RegisterOptions{Name: dailyrun.ActivityGenerate})
	return w
}
