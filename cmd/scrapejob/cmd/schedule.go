package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scrapejob/pkg/scheduler"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Runs every job with a schedule on its cron spec until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := scheduler.NewScheduler(application.Config.Timezone)
		if err != nil {
			return err
		}

		scheduled := 0
		for _, jc := range application.Config.Jobs {
			if jc.Schedule == "" {
				continue
			}
			r, _ := application.Runner(jc.Name)
			err := s.Schedule(jc.Name, jc.Schedule, func() {
				if _, err := r.Run(ctx); err != nil {
					slog.ErrorContext(ctx, "scheduled run failed", "job", r.Name(), "err", err)
				}
			})
			if err != nil {
				return err
			}
			next, _ := s.Next(jc.Name, time.Now())
			slog.InfoContext(ctx, "job scheduled", "job", jc.Name, "spec", jc.Schedule, "next", next)
			scheduled++
		}
		if scheduled == 0 {
			return fmt.Errorf("no job has a schedule")
		}

		s.Start()
		<-ctx.Done()
		slog.Info("stopping scheduler")

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Stop(stopCtx)
		return nil
	},
}
