package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"synothumb/internal/filesystem"
	"synothumb/internal/logging"
	"synothumb/internal/media"
	"synothumb/internal/memory"
	"synothumb/internal/metrics"
	"synothumb/internal/pipeline"
	"synothumb/internal/progress"
	"synothumb/internal/rawdecode"
	"synothumb/internal/startup"
	"synothumb/internal/status"
	"synothumb/internal/transcoder"
	"synothumb/internal/workers"
)

const runLogPrefix = "synothumb"

func runGenerate(cmd *cobra.Command, opts *options, mediaDir string) error {
	cfg, err := loadConfig(cmd, opts, mediaDir)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	out := cmd.OutOrStdout()

	if err := pipeline.ValidateRoot(cfg.MediaDir); err != nil {
		return &exitError{code: exitFailure, err: fmt.Errorf("the directory '%s' is not usable: %w", cfg.MediaDir, err)}
	}

	runLog, err := logging.OpenRunLog(cfg.LogDir, runLogPrefix)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	defer func() {
		if err := runLog.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close run log: %v\n", err)
		}
	}()
	fmt.Fprintf(out, "Logging has started. Details are being saved to: %s\n", runLog.Path)

	startup.LogConfig(cfg, runLog.Path)
	startup.LogMemoryConfig(memory.ConfigureFromEnv())
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	video := transcoder.New(transcoder.Config{FFmpegPath: cfg.FFmpegPath, FFprobePath: cfg.FFprobePath})
	defer func() {
		video.Cleanup()
		startup.LogShutdownStepComplete("External processes stopped")
	}()

	nWorkers := workers.Resolve(cfg.Workers, workers.DefaultLimit)
	raw := rawdecode.New(rawdecode.Config{ExiftoolPath: cfg.ExiftoolPath, PoolSize: nWorkers}, video)
	defer func() {
		if err := raw.Close(); err != nil {
			logging.Warn("failed to stop exiftool: %v", err)
		}
	}()

	backend, err := media.NewBackend(cfg.Backend, video)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	if backend.Name() == media.BackendVips {
		defer media.ShutdownVips()
	}

	gate := memory.NewGate(memory.DefaultConfig())
	gate.Start()
	defer gate.Stop()

	var reporter pipeline.Reporter = progress.Nop{}
	if cfg.Progress {
		reporter = progress.ForFile(os.Stdout)
	}

	scheduler := pipeline.NewScheduler(media.NewGenerator(backend, raw, video), pipeline.Config{
		Workers:   nWorkers,
		Admission: gate,
		Reporter:  reporter,
		Preflight: startup.Preflight(startup.PreflightConfig{
			MediaDir:     cfg.MediaDir,
			MinFreeBytes: cfg.MinFreeBytes,
			Video:        video,
			Raw:          raw,
		}),
	})

	collector := metrics.NewCollector(scheduler, memory.Host{}, cfg.MediaDir, 15*time.Second)
	collector.Start()
	defer collector.Stop()

	if cfg.MetricsAddr != "" {
		srv := status.New(cfg.MetricsAddr, startup.Version, scheduler)
		if err := srv.Start(); err != nil {
			logging.Warn("Status server disabled: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					logging.Warn("Status server shutdown error: %v", err)
				}
			}()
		}
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Fprintln(out, "Searching for media files (this might take a while)...")
	summary, runErr := scheduler.Run(ctx, cfg.MediaDir)

	if runErr == nil && summary.Discovered == 0 {
		fmt.Fprintln(out, "No media files found to process.")
		logging.Info("No media files found.")
		return nil
	}

	startup.PrintSummary(out, summary, scheduler.Failures(), runLog.Path)
	return exitFor(summary, runErr)
}

// exitFor maps a run result onto an exit code.
func exitFor(summary pipeline.Summary, err error) error {
	switch {
	case summary.Interrupted || errors.Is(err, context.Canceled):
		return &exitError{code: exitInterrupted}
	case err != nil:
		logging.Error("Run stopped: %v", err)
		return &exitError{code: exitFailure}
	case summary.Failed > 0:
		return &exitError{code: exitFailure}
	default:
		logging.Info("Run finished successfully.")
		return nil
	}
}
