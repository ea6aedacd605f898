package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/yungbote/btcmood-backend/internal/app"
	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"github.com/yungbote/btcmood-backend/internal/modules/imagegen"
	"github.com/yungbote/btcmood-backend/internal/temporalx"
	"github.com/yungbote/btcmood-backend/internal/temporalx/dailyrun"
	"github.com/yungbote/btcmood-backend/internal/temporalx/temporalworker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "btcmood",
		Short:         "Daily BTC mood image pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newScheduleCmd(), newWorkerCmd(), newActiveCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		categories []string
		date       string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and activate images once",
		Long: `Fetch the holiday context once, then generate, store and activate one
image per category. Without --category every category runs. --date picks the
calendar day (YYYY-MM-DD, in SCHEDULE_TIMEZONE); the default is today.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			runner, err := a.DailyRun()
			if err != nil {
				return err
			}
			at, err := scheduledAt(date, a.Cfg.ScheduleTimezone)
			if err != nil {
				return err
			}
			if len(categories) == 0 {
				categories = categoryNames(a.Cfg.Categories)
			}
			res, err := runner.Generate(cmd.Context(), dailyrun.GenerateRequest{
				Categories:  categories,
				ScheduledAt: at,
				Timezone:    a.Cfg.ScheduleTimezone.String(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "target_date=%s versions=%v failed=%v\n", res.TargetDate, res.VersionIDs, res.Failed)
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d categories failed", len(res.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "category to generate (happy, sad or full name); repeatable")
	cmd.Flags().StringVar(&date, "date", "", "target calendar day, YYYY-MM-DD")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on SCHEDULE_CRON inside this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			runner, err := a.DailyRun()
			if err != nil {
				return err
			}
			s, err := app.NewScheduler(a.Log, runner, a.Cfg.ScheduleCron, a.Cfg.ScheduleTimezone, categoryNames(a.Cfg.Categories))
			if err != nil {
				return err
			}
			return s.Run(cmd.Context())
		},
	}
}

func newWorkerCmd() *cobra.Command {
	var noCron bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve the Temporal daily-images workflow",
		Long: `Poll TEMPORAL_TASK_QUEUE for the daily-images workflow and, unless
--no-cron is set, make sure the cron execution TEMPORAL_WORKFLOW_ID exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tc, err := temporalx.NewClient(cmd.Context(), a.Log, a.Cfg.Temporal)
			if err != nil {
				return err
			}
			defer tc.Close()

			acts, err := a.DailyRun()
			if err != nil {
				return err
			}
			runner, err := temporalworker.NewRunner(a.Log, tc, a.Cfg.Temporal, acts)
			if err != nil {
				return err
			}
			if err := runner.Start(cmd.Context()); err != nil {
				return err
			}
			if !noCron {
				in := dailyrun.Input{
					Categories: categoryNames(a.Cfg.Categories),
					Timezone:   a.Cfg.Temporal.CronTimezone,
				}
				if err := runner.EnsureCron(cmd.Context(), in); err != nil {
					return err
				}
			}
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCron, "no-cron", false, "only poll; do not start the cron workflow")
	return cmd
}

func newActiveCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "active",
		Short: "Print the version currently served per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			reader := a.Reader()
			show := func(pt types.PromptType) {
				v, err := reader.GetActive(cmd.Context(), pt)
				switch {
				case errors.Is(err, imagegen.ErrNotFound):
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tnone (static fallback)\n", pt)
				case err != nil:
					fmt.Fprintf(cmd.ErrOrStderr(), "%s\terror: %v\n", pt, err)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\texpires %s\t%s\n", pt, v.ID, v.PresignedURLExpiry.Format(time.RFC3339), *v.PresignedURL)
				}
			}
			for _, pt := range types.ImageCategories() {
				show(pt)
			}
			if !watch {
				return nil
			}

			cache := a.ActiveCache()
			if cache == nil {
				return fmt.Errorf("--watch needs REDIS_ADDR")
			}
			if err := cache.WatchActivations(cmd.Context(), show); err != nil {
				return err
			}
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep printing as new versions activate")
	return cmd
}

func scheduledAt(date string, loc *time.Location) (time.Time, error) {
	if date == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date: %w", err)
	}
	return t, nil
}

func categoryNames(pts []types.PromptType) []string {
	out := make([]string, 0, len(pts))
	for _, pt := range pts {
		out = append(out, string(pt))
	}
	return out
}
