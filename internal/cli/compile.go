package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seqpref/internal/assembler"
	"github.com/roach88/seqpref/internal/compiler"
	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	SpecFlags

	Native   bool
	Document bool
	Paths    assembler.Paths
}

// CompiledPlan is the JSON form of a compiled plan.
type CompiledPlan struct {
	Operator    string         `json:"operator"`
	ID          string         `json:"id"`
	Fingerprint string         `json:"fingerprint"`
	Final       string         `json:"final"`
	Inputs      []string       `json:"inputs"`
	Nodes       []CompiledNode `json:"nodes"`
	Document    string         `json:"document,omitempty"`
}

// CompiledNode is one query of a CompiledPlan.
type CompiledNode struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"depends_on"`
	Body      string   `json:"body"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile one operator into its query plan",
		Long: `Compile one sequence operator into its CQL-equivalent plan, or into the
native operator query with --native.

The plan is printed node by node in dependency order. With --document the
engine registration document is printed instead.

Example:
  seqpref compile --operator bestseq --range 5 --rules 4 --levels 2
  seqpref compile --operator conseq --native --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd)
		},
	}

	opts.SpecFlags.register(cmd, 16)
	cmd.Flags().BoolVar(&opts.Native, "native", false, "emit the native operator query")
	cmd.Flags().BoolVar(&opts.Document, "document", false, "print the registration document")
	cmd.Flags().StringVar(&opts.Paths.Stream, "stream", "s.csv", "stream file referenced by the document")
	cmd.Flags().StringVar(&opts.Paths.Completion, "tup", "tup.csv", "tup table file referenced by the document")
	cmd.Flags().StringVar(&opts.Paths.QueryDir, "query-dir", "queries", "query directory referenced by the document")
	cmd.Flags().StringVarP(&opts.Paths.Output, "output", "o", "", "output sink of the final query")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	spec, s, err := opts.SpecFlags.Spec()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	p, err := compilePlan(spec, s, opts.Native)
	if err != nil {
		return compileFailure(formatter, err)
	}
	formatter.VerboseLog("Compiled %s into %d node(s)", spec.Kind, len(p.Nodes))

	out, err := describePlan(spec, p)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "fingerprinting plan", err)
	}
	if opts.Document {
		doc, err := assembler.Assemble(p, s, opts.Paths)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		out.Document = doc.Text
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	if opts.Document {
		fmt.Fprint(formatter.Writer, out.Document)
		return nil
	}
	fmt.Fprint(formatter.Writer, planText(out))
	return nil
}

func compilePlan(spec operator.Spec, s schema.Schema, native bool) (*plan.Plan, error) {
	if native {
		return compiler.CompileNative(spec, s)
	}
	return compiler.Compile(spec, s)
}

// compileFailure maps configuration errors to exit code 2 and anything
// else to exit code 1.
func compileFailure(formatter *OutputFormatter, err error) error {
	var cfgErr *operator.ConfigError
	if errors.As(err, &cfgErr) {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid operator configuration", cfgErr)
	}
	if errors.Is(err, compiler.ErrNoEquivalent) {
		return formatter.Fail(ExitCommandError, ErrCodeCompile, err.Error(), nil)
	}
	return formatter.Fail(ExitFailure, ErrCodeCompile, "compilation failed", err)
}

func describePlan(spec operator.Spec, p *plan.Plan) (*CompiledPlan, error) {
	fp, err := p.Fingerprint()
	if err != nil {
		return nil, err
	}
	id, err := p.ID()
	if err != nil {
		return nil, err
	}
	out := &CompiledPlan{
		Operator:    spec.Kind.String(),
		ID:          id.String(),
		Fingerprint: fp,
		Final:       p.Final,
		Inputs:      p.Inputs,
		Nodes:       make([]CompiledNode, len(p.Nodes)),
	}
	for i, n := range p.Nodes {
		deps := n.DependsOn
		if deps == nil {
			deps = []string{}
		}
		out.Nodes[i] = CompiledNode{Name: n.Name, DependsOn: deps, Body: n.Body}
	}
	return out, nil
}

func planText(out *CompiledPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s plan %s\n-- fingerprint %s\n", out.Operator, out.ID, out.Fingerprint)
	for _, n := range out.Nodes {
		fmt.Fprintf(&b, "\n-- %s", n.Name)
		if len(n.DependsOn) > 0 {
			fmt.Fprintf(&b, " <- %s", strings.Join(n.DependsOn, ", "))
		}
		fmt.Fprintf(&b, "\n%s\n", n.Body)
	}
	return b.String()
}
