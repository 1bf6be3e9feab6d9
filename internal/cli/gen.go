package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqpref/internal/experiment"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Output      bool
	Parallelism int
}

// GenSummary is the result of the gen command.
type GenSummary struct {
	Directory   string   `json:"directory"`
	Experiments int      `json:"experiments"`
	Streams     []string `json:"streams"`
	Documents   []string `json:"documents"`
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen <config>",
		Short: "Generate streams, queries and environment files of an experiment",
		Long: `Generate the workspace of an experiment file (YAML or CUE): one stream per
data configuration, the tup table when a CQL-equivalent BESTSEQ plan needs
it, and for every experiment of the parameter grid its query files and its
registration document.

Example:
  seqpref gen experiments/bestseq.yaml
  seqpref gen experiments/conseq.cue --output`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Output, "output", false, "attach an output file to every final query")
	cmd.Flags().IntVar(&opts.Parallelism, "parallel", 0, "concurrent generation jobs (default GOMAXPROCS)")

	return cmd
}

func runGen(opts *GenOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg, err := experiment.LoadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "loading experiment", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	g := &experiment.Generator{
		Config:      cfg,
		Workspace:   experiment.Workspace{Root: cfg.Directory},
		Logger:      opts.logger(cmd),
		Output:      opts.Output,
		Parallelism: opts.Parallelism,
	}
	res, err := g.Generate(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "generating experiment", err)
	}

	summary := GenSummary{
		Directory:   cfg.Directory,
		Experiments: len(res.Experiments),
		Streams:     res.Streams,
		Documents:   res.Documents,
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Generated %d experiment(s), %d stream(s) in %s\n",
		summary.Experiments, len(summary.Streams), summary.Directory)
	for _, d := range summary.Documents {
		formatter.VerboseLog("  %s", d)
	}
	return nil
}
