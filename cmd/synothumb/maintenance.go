package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"synothumb/internal/pipeline"
	"synothumb/internal/startup"
)

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <media-dir>",
		Short: "List files whose thumbnail set is incomplete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args[0])
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}

			ctx, stop := signalContext()
			defer stop()

			report, err := pipeline.Verify(ctx, cfg.MediaDir, nil)
			if err != nil {
				return verifyErr(err)
			}

			out := cmd.OutOrStdout()
			for _, inc := range report.Incomplete {
				fmt.Fprintf(out, "%s: missing %v\n", inc.Path, inc.Missing)
			}
			fmt.Fprintf(out, "%d files checked, %d incomplete\n", report.Checked, len(report.Incomplete))
			if len(report.Incomplete) > 0 {
				return &exitError{code: exitFailure}
			}
			return nil
		},
	}
}

func newCleanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clean <media-dir>",
		Short: "Remove temporary and empty files left in thumbnail folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args[0])
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}

			ctx, stop := signalContext()
			defer stop()

			report, err := pipeline.Clean(ctx, cfg.MediaDir)
			if err != nil {
				return verifyErr(err)
			}

			out := cmd.OutOrStdout()
			for _, path := range report.TempFiles {
				fmt.Fprintf(out, "removed temporary file %s\n", path)
			}
			for _, path := range report.EmptyFiles {
				fmt.Fprintf(out, "removed empty output %s\n", path)
			}
			fmt.Fprintf(out, "%d files removed\n", report.Removed())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := startup.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "synothumb %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		},
	}
}

func verifyErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return &exitError{code: exitInterrupted}
	}
	return &exitError{code: exitFailure, err: err}
}
