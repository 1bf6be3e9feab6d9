package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqpref/internal/experiment"
	"github.com/roach88/seqpref/internal/runner"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Engine string

	// Command overrides process execution (for testing).
	Command runner.CommandFunc
}

// RunSummary is the result of the run command.
type RunSummary struct {
	Runs    int `json:"runs"`
	Skipped int `json:"skipped"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run the engine over a generated experiment",
		Long: `Run the streampref engine once per experiment and run count, writing one
detail file per run. Runs whose detail file exists are skipped, so an
interrupted experiment can be resumed.

Example:
  seqpref run experiments/bestseq.yaml
  seqpref run experiments/bestseq.yaml --engine ./bin/streampref`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiments(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Engine, "engine", runner.EngineCommand, "engine executable")

	return cmd
}

func runExperiments(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg, err := experiment.LoadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "loading experiment", err)
	}
	experiments, err := cfg.Expand()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "expanding experiment", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	r := runner.New(cfg, experiment.Workspace{Root: cfg.Directory}, opts.logger(cmd))
	r.Engine = opts.Engine
	if opts.Command != nil {
		r.Command = opts.Command
	}
	runs, err := r.RunAll(ctx, experiments)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRunFailed, "running experiments", err)
	}

	summary := RunSummary{Runs: len(runs)}
	for _, run := range runs {
		if run.Skipped {
			summary.Skipped++
		}
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Completed %d run(s), %d skipped\n", summary.Runs, summary.Skipped)
	return nil
}
