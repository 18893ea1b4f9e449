package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/bankradar/internal/api"
	"github.com/amishk599/bankradar/internal/scheduler"
)

var noSchedule bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Serve the HTTP API and run scheduled ingestion and dispatch",
	Long:  "Starts the API server and the cron scheduler; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve the API only; rely on external cron triggers")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer st.Close()

	httpClient := newHTTPClient(cfg)
	sources, err := buildSources(cfg, httpClient, logger)
	if err != nil {
		return err
	}
	pipe := buildPipeline(cfg, sources, st, buildReporter(cfg, httpClient, logger), logger)
	disp := buildDispatcher(cfg, st, httpClient, logger)

	srv := api.NewServer(api.Deps{
		Sources:   sources,
		Freshness: st.freshness,
		Directory: st.directory,
		Runner:    pipe,
		Drainer:   disp,
	}, api.Config{
		CronSecret:        cfg.Server.CronSecret,
		Last48h:           cfg.RecentWindows.Last48h,
		ThisWeek:          cfg.RecentWindows.ThisWeek,
		LiveFetchInterval: cfg.Server.LiveFetchInterval,
	}, logger)
	if cfg.Server.CronSecret == "" {
		logger.Warn("server.cron_secret is empty, trigger endpoints will reject every call")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if !noSchedule {
		sched := scheduler.NewScheduler([]scheduler.Job{
			{
				Name:       "ingest",
				Spec:       cfg.Schedule.Ingest,
				RunOnStart: true,
				Run: func(ctx context.Context) error {
					_, err := pipe.Run(ctx)
					return err
				},
			},
			{
				Name: "dispatch",
				Spec: cfg.Schedule.Dispatch,
				Run: func(ctx context.Context) error {
					_, err := disp.Drain(ctx, time.Now())
					return err
				},
			},
		}, logger)
		g.Go(func() error { return sched.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("goodbye")
	return nil
}
