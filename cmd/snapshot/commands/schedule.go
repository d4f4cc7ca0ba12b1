package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/snapshot-engine/internal/scheduler"
	"github.com/wonny/snapshot-engine/internal/scheduler/jobs"
)

var scheduleChainRebuild bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the three sub-pipelines on their cron schedules",
	Long:  `Registers full-run, snapshot-rebuild, and reserve-ratio jobs on a cron scheduler and blocks until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		application, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer application.cleanup()

		sched := scheduler.New(application.logger)

		lookbackDays := application.cfg.Orchestrator.DefaultLookbackDays
		if err := sched.AddJob(jobs.NewFullRunJob(application.orch, lookbackDays, application.logger)); err != nil {
			return err
		}
		if err := sched.AddJob(jobs.NewSnapshotRebuildJob(application.orch, lookbackDays, application.logger)); err != nil {
			return err
		}
		if err := sched.AddJob(jobs.NewReserveOnlyJob(application.orch, scheduleChainRebuild, application.logger)); err != nil {
			return err
		}

		sched.Start()
		defer sched.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		return nil
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleChainRebuild, "chain-rebuild", false, "chain a snapshot rebuild after the scheduled reserve-ratio update")
	rootCmd.AddCommand(scheduleCmd)
}
