// Command semstress exercises a coresem counting semaphore with a
// configurable number of contending threads and reports how the
// acquires ended.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"
)

func newCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "semstress",
		Short:        "Contend threads for the units of a counting semaphore",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			logger := makeBaseLogger(cfg.LogLevel)
			ctx := dlog.WithLogger(cmd.Context(), dlog.WrapLogrus(logger))
			return runStress(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Scheduler, "scheduler", cfg.Scheduler, "preemptive or cooperative")
	flags.StringVar(&cfg.Discipline, "discipline", cfg.Discipline, "fifo or priority")
	flags.IntVar(&cfg.Threads, "threads", cfg.Threads, "number of contending threads")
	flags.Uint32Var(&cfg.Units, "units", cfg.Units, "initial and maximum count")
	flags.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "acquires per thread")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "acquire timeout, 0 waits forever")
	flags.DurationVar(&cfg.Deadline, "deadline", cfg.Deadline, "bound on the whole run")
	flags.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "print metrics in text exposition format")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logrus level")
	return cmd
}

func main() {
	ctx := context.Background()

	cfg, err := LoadConfig(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "semstress:", err)
		os.Exit(1)
	}

	if err := newCommand(cfg).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
