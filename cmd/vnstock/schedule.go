package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vnstock/internal/gather"
	"vnstock/internal/scheduler"
	"vnstock/internal/util"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run today's acquisition on the configured cron triggers",
	Long: `Starts a foreground daemon that runs the daily acquisition for every
configured instrument on each cron trigger (UTC+7). A trigger that fires while
a run is still going is skipped. Stop with Ctrl+C.

Default triggers, Monday to Friday:
  08:45, 08:50, 08:55
  every 5 minutes 09:00-13:55
  every 5 minutes 14:00-14:45`,
	RunE: runSchedule,
}

var (
	scheduleDryRun bool
	scheduleNext   int
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(&scheduleDryRun, "dry_run", false, "fetch and log without touching the data dir")
	scheduleCmd.Flags().IntVar(&scheduleNext, "next", 0, "print the next N trigger times and exit")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	// Printing trigger times needs only the specs, not the engine or ledger.
	if scheduleNext > 0 {
		times, err := scheduler.Upcoming(cfg.Schedule.Specs, util.LocalNow(), scheduleNext)
		if err != nil {
			return err
		}
		for _, t := range times {
			fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC1123Z))
		}
		return nil
	}

	insts, err := cfg.Instruments()
	if err != nil {
		return err
	}

	engine, closeEngine, err := buildEngine(cfg, scheduleDryRun)
	if err != nil {
		return err
	}
	defer closeEngine()

	job := gather.NewDailyJob(engine, insts, util.SystemClock{}, scheduleDryRun, logger)
	sched, err := scheduler.New(job, cfg.Schedule.Specs, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	return sched.Run(ctx)
}
