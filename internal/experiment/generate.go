package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/seqpref/internal/assembler"
	"github.com/roach88/seqpref/internal/compiler"
	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/stream"
)

// Generator writes the streams, tup table, query files and registration
// documents of an experiment grid.
type Generator struct {
	Config    *Config
	Workspace Workspace
	Logger    *slog.Logger
	// Output attaches an OUTPUT sink to every final query.
	Output bool
	// Parallelism bounds concurrent stream and plan generation. Zero
	// means GOMAXPROCS.
	Parallelism int
}

// Result lists what Generate wrote.
type Result struct {
	Experiments []Experiment
	Streams     []string
	Documents   []string
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return g.Logger
}

func (g *Generator) limit() int {
	if g.Parallelism > 0 {
		return g.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// Generate expands the grid and writes every file of the workspace.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	experiments, err := g.Config.Expand()
	if err != nil {
		return nil, err
	}
	if err := g.Workspace.Create(experiments); err != nil {
		return nil, err
	}
	res := &Result{Experiments: experiments}

	res.Streams, err = g.writeStreams(ctx, experiments)
	if err != nil {
		return nil, err
	}
	if needsCompletion(experiments) {
		if err := writeFile(g.Workspace.CompletionFile(), func(f *os.File) error {
			return stream.WriteCompletion(f, g.Config.DomainMax)
		}); err != nil {
			return nil, err
		}
	}

	res.Documents = make([]string, len(experiments))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.limit())
	for i, e := range experiments {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := g.writeExperiment(e); err != nil {
				return fmt.Errorf("experiment %s/%s: %w", e.Algorithm, e.ID, err)
			}
			res.Documents[i] = g.Workspace.EnvFile(e)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	g.logger().Info("experiments generated",
		"operator", g.Config.Operator,
		"experiments", len(experiments),
		"streams", len(res.Streams),
		"directory", g.Workspace.Root)
	return res, nil
}

// Plan compiles the plan an experiment registers.
func Plan(e Experiment) (*plan.Plan, error) {
	if e.Native() {
		return compiler.CompileNative(e.Spec, e.Schema)
	}
	return compiler.Compile(e.Spec, e.Schema)
}

func (g *Generator) writeExperiment(e Experiment) error {
	p, err := Plan(e)
	if err != nil {
		return err
	}
	paths := assembler.Paths{
		Stream:   g.Workspace.DataFile(e.DataID),
		QueryDir: g.Workspace.QueryDir(e),
	}
	if p.Reads(assembler.CompletionRelation) {
		paths.Completion = g.Workspace.CompletionFile()
	}
	if g.Output {
		paths.Output = g.Workspace.OutFile(e)
	}
	doc, err := assembler.Assemble(p, e.Schema, paths)
	if err != nil {
		return err
	}
	for _, f := range doc.Files {
		if err := os.WriteFile(f.Path, []byte(f.Body), 0o644); err != nil {
			return err
		}
	}
	if err := os.WriteFile(g.Workspace.EnvFile(e), []byte(doc.Text), 0o644); err != nil {
		return err
	}
	fp, err := p.Fingerprint()
	if err != nil {
		return err
	}
	g.logger().Debug("plan written",
		"algorithm", e.Algorithm,
		"experiment", e.ID,
		"nodes", len(p.Nodes),
		"fingerprint", fp)
	return nil
}

// writeStreams generates one stream per distinct data ID. Seeds derive
// from the configuration seed and the sorted data ID order.
func (g *Generator) writeStreams(ctx context.Context, experiments []Experiment) ([]string, error) {
	byID := make(map[string]Experiment)
	for _, e := range experiments {
		if _, ok := byID[e.DataID]; !ok {
			byID[e.DataID] = e
		}
	}
	ids := sortedKeys(byID)
	kind, err := g.Config.Kind()
	if err != nil {
		return nil, err
	}

	files := make([]string, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.limit())
	for i, id := range ids {
		e := byID[id]
		cfg := stream.Config{
			Schema:        e.Schema,
			Sequences:     e.intValue(ParamSequences),
			TupleRate:     g.Config.TupleRate,
			DomainMax:     g.Config.DomainMax,
			LastTimestamp: g.Config.LastTimestamp(),
			Range:         int(g.Config.Parameters[ParamRange].Max()),
		}
		if kind == operator.Conseq {
			pct := e.Values[ParamConsecutive]
			cfg.Consecutive = &pct
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := rand.New(rand.NewPCG(g.Config.Seed, uint64(i)))
			tuples, err := stream.Generate(cfg, r)
			if err != nil {
				return fmt.Errorf("stream %s: %w", id, err)
			}
			files[i] = g.Workspace.DataFile(id)
			return writeFile(files[i], func(f *os.File) error {
				return stream.WriteCSV(f, cfg.Schema, tuples)
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func needsCompletion(experiments []Experiment) bool {
	return slices.ContainsFunc(experiments, func(e Experiment) bool {
		return !e.Native() && e.Spec.Kind == operator.BestSeq
	})
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
