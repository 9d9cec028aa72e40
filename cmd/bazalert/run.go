package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itcaat/bazalert/internal/metrics"
	"github.com/itcaat/bazalert/internal/scraper"
)

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run scrape cycles on the configured interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var metricsSrv *metrics.Server
			if app.cfg.Metrics.Enabled {
				metricsSrv = metrics.NewServer(app.cfg.Metrics.Addr, app.log)
				metricsSrv.Start()
			}

			sched := scraper.NewScheduler(app.cycle, app.cfg.Scheduler.Interval, app.log)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			app.log.Info("shutdown signal received")
			sched.Stop()
			if metricsSrv != nil {
				if err := metricsSrv.Stop(context.Background()); err != nil {
					app.log.Warn("metrics server shutdown failed")
				}
			}
			return nil
		},
	}
}
