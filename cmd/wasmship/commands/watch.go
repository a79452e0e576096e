package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/logfields"
	"github.com/wasmship/wasmship/internal/metrics"
	"github.com/wasmship/wasmship/internal/pipeline"
	"github.com/wasmship/wasmship/internal/watch"
)

// WatchCmd implements the 'watch' command: continuous rebuild-and-redeploy.
type WatchCmd struct {
	NoInitial bool `help:"Skip the initial deploy on startup"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Watch.MetricsAddr != "" {
		promRecorder := metrics.NewPrometheusRecorder(prom.NewRegistry())
		recorder = promRecorder
		go serveMetrics(ctx, cfg.Watch.MetricsAddr, promRecorder)
	}

	p := pipeline.New(cfg, pipeline.WithRecorder(recorder))

	deployOnce := func(ctx context.Context) {
		report, err := p.Deploy(ctx)
		recordRun(cfg, report)
		if err != nil {
			// Watch mode keeps running across failed deploys; the next
			// source change gets a fresh attempt.
			slog.Error("Deploy failed", logfields.Error(err))
		}
	}

	if !w.NoInitial {
		deployOnce(ctx)
	}

	paths := make([]string, 0, len(cfg.Watch.Paths))
	for _, wp := range cfg.Watch.Paths {
		if !filepath.IsAbs(wp) {
			wp = filepath.Join(cfg.Contract.Dir, wp)
		}
		paths = append(paths, wp)
	}

	watcher, err := watch.New(paths, cfg.Watch.Debounce.Std(), deployOnce)
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	if interval := cfg.Watch.Interval.Std(); interval > 0 {
		scheduler, err := watch.NewScheduler()
		if err != nil {
			return err
		}
		if _, err := scheduler.SchedulePeriodicDeploy(interval, func() { deployOnce(ctx) }); err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				slog.Warn("Failed to stop scheduler", logfields.Error(err))
			}
		}()
	}

	slog.Info("Watching for changes, press Ctrl-C to stop")
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping watch mode")
	return nil
}

func serveMetrics(ctx context.Context, addr string, recorder *metrics.PrometheusRecorder) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("Metrics server error", logfields.Error(err))
	}
}
