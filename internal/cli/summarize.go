package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqpref/internal/experiment"
	"github.com/roach88/seqpref/internal/runner"
)

// SummarizeOptions holds flags for the summarize command.
type SummarizeOptions struct {
	*RootOptions
	ConfInterval string
	SkipInterval bool

	// Command overrides process execution (for testing).
	Command runner.CommandFunc
}

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummarizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summarize <config>",
		Short: "Summarize run details and compute confidence intervals",
		Long: `Summarize the detail files of an experiment into one runtime and one
memory file per varied parameter, then compute their confidence intervals
with confinterval.

Example:
  seqpref summarize experiments/bestseq.yaml
  seqpref summarize experiments/bestseq.yaml --skip-intervals`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfInterval, "confinterval", runner.ConfIntervalCommand, "confidence interval executable")
	cmd.Flags().BoolVar(&opts.SkipInterval, "skip-intervals", false, "only write summary files")

	return cmd
}

func runSummarize(opts *SummarizeOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg, err := experiment.LoadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "loading experiment", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	r := runner.New(cfg, experiment.Workspace{Root: cfg.Directory}, opts.logger(cmd))
	r.ConfInterval = opts.ConfInterval
	if opts.Command != nil {
		r.Command = opts.Command
	}
	files, err := r.Summarize()
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "summarizing", err)
	}
	if !opts.SkipInterval {
		if err := r.ConfidenceIntervals(ctx); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeRunFailed, "computing confidence intervals", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string][]string{"summaries": files})
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %d summary file(s)\n", len(files))
	return nil
}
