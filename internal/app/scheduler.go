package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"

	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
	"github.com/yungbote/btcmood-backend/internal/temporalx/dailyrun"
)

// DailyRunner is the per-tick entry point, normally *dailyrun.Activities.
type DailyRunner interface {
	Generate(ctx context.Context, req dailyrun.GenerateRequest) (dailyrun.Result, error)
}

// Scheduler triggers one pipeline run per cron tick inside this process. It
// is the lightweight alternative to the Temporal worker; run only one of them.
type Scheduler struct {
	log        *logger.Logger
	runner     DailyRunner
	schedule   cron.Schedule
	loc        *time.Location
	categories []string
}

func NewScheduler(log *logger.Logger, runner DailyRunner, spec string, loc *time.Location, categories []string) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		log:        log.With("service", "Scheduler"),
		runner:     runner,
		schedule:   sched,
		loc:        loc,
		categories: categories,
	}, nil
}

// Next reports the first tick strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Run blocks until ctx is done. Ticks never overlap: a tick that fires while
// the previous run is still going is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.NewWithLocation(s.loc)
	busy := make(chan struct{}, 1)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		select {
		case busy <- struct{}{}:
			defer func() { <-busy }()
		default:
			s.log.Warn("Previous run still in progress; tick skipped")
			return
		}
		s.Tick(ctx, time.Now())
	}))
	c.Start()
	s.log.Info("Scheduler started", "next_run", s.Next(time.Now()), "timezone", s.loc.String())

	<-ctx.Done()
	c.Stop()
	s.log.Info("Scheduler stopped")
	return nil
}

// Tick runs the pipeline for the calendar day at in the scheduler's
// timezone. Failures are logged; the next tick is the retry.
func (s *Scheduler) Tick(ctx context.Context, at time.Time) {
	res, err := s.runner.Generate(ctx, dailyrun.GenerateRequest{
		Categories:  s.categories,
		ScheduledAt: at,
		Timezone:    s.loc.String(),
	})
	if err != nil {
		s.log.Error("Scheduled run failed", "error", err)
		return
	}
	s.log.Info("Scheduled run finished", "target_date", res.TargetDate, "versions", len(res.VersionIDs), "failed", res.Failed)
}
