package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"synothumb/internal/logging"
	"synothumb/internal/startup"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// options are the flag values shared by all commands.
type options struct {
	workers     int
	logDir      string
	backend     string
	metricsAddr string
	configFile  string
	envFile     string
	noProgress  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "synothumb [flags] <media-dir>",
		Short: "Pre-generate photo server thumbnails",
		Long: "synothumb generates the @eaDir thumbnail sets a Synology-style photo server\n" +
			"expects for every image, RAW photo and video under <media-dir>.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args[0])
		},
	}

	flags := root.PersistentFlags()
	flags.IntVarP(&opts.workers, "workers", "j", 0, "number of parallel workers (default: one per CPU)")
	flags.StringVar(&opts.logDir, "log-dir", "", "directory for run logs (default \"logs\")")
	flags.StringVar(&opts.backend, "backend", "", "image backend: imaging or vips")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /progress on this address")
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file (default: .env when present)")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")

	root.AddCommand(newVerifyCmd(opts), newCleanCmd(opts), newVersionCmd())
	return root
}

// loadConfig merges files, environment and changed flags.
func loadConfig(cmd *cobra.Command, opts *options, mediaDir string) (*startup.Config, error) {
	if _, err := startup.LoadFiles(opts.envFile, opts.configFile); err != nil {
		return nil, err
	}

	cfg := startup.LoadConfig()
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = opts.logDir
	}
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if opts.noProgress {
		cfg.Progress = false
	}

	if mediaDir != "" {
		if err := cfg.ResolveMediaDir(mediaDir); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted, finishing up...")
			startup.LogShutdownInitiated(sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// execute runs the command line and returns the process exit code.
func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	logging.Debug("command failed: %v", err)
	return exitFailure
}
