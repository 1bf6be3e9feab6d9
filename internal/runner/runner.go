// Package runner drives the external engine over a generated workspace
// and summarizes its detail files.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/roach88/seqpref/internal/experiment"
)

// Default executable names.
const (
	EngineCommand       = "streampref"
	ConfIntervalCommand = "confinterval"
)

// ErrMissingOutput reports a command that exited without producing its
// output file.
var ErrMissingOutput = errors.New("output file not found")

// CommandFunc runs an external command to completion.
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecCommand runs name through os/exec.
func ExecCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Runner invokes the engine and the confidence interval tool.
type Runner struct {
	Workspace experiment.Workspace
	Config    *experiment.Config
	Logger    *slog.Logger
	Clock     clockwork.Clock
	// Command defaults to ExecCommand.
	Command CommandFunc
	// Engine and ConfInterval override the executable names.
	Engine       string
	ConfInterval string
}

// Run is the outcome of one engine invocation.
type Run struct {
	Experiment experiment.Experiment
	Count      int
	Detail     string
	Skipped    bool
	Elapsed    time.Duration
}

// New returns a runner with the real clock and os/exec.
func New(cfg *experiment.Config, ws experiment.Workspace, logger *slog.Logger) *Runner {
	return &Runner{
		Workspace: ws,
		Config:    cfg,
		Logger:    logger,
		Clock:     clockwork.NewRealClock(),
		Command:   ExecCommand,
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Runner) clock() clockwork.Clock {
	if r.Clock == nil {
		return clockwork.NewRealClock()
	}
	return r.Clock
}

func (r *Runner) command() CommandFunc {
	if r.Command == nil {
		return ExecCommand
	}
	return r.Command
}

func (r *Runner) engine() string {
	if r.Engine == "" {
		return EngineCommand
	}
	return r.Engine
}

func (r *Runner) confInterval() string {
	if r.ConfInterval == "" {
		return ConfIntervalCommand
	}
	return r.ConfInterval
}

// EngineArgs returns the engine arguments of one run. The iteration count
// is the experiment range plus the largest slide of the grid. Native
// preference algorithms are selected with -t.
func (r *Runner) EngineArgs(e experiment.Experiment, count int) []string {
	iterations := e.Spec.Window.Range + r.Config.MaxSlide()
	args := []string{
		"-e", r.Workspace.EnvFile(e),
		"-d", r.Workspace.DetailFile(e, count),
		"-m", strconv.Itoa(iterations),
	}
	if e.Native() && e.Spec.Kind.UsesPreferences() {
		args = append(args, "-t", e.Algorithm)
	}
	return args
}

// RunAll runs every experiment RunCount times, sequentially. Runs whose
// detail file already exists are skipped. A failed run is logged and the
// remaining runs continue; all failures are returned together.
func (r *Runner) RunAll(ctx context.Context, experiments []experiment.Experiment) ([]Run, error) {
	var (
		runs []Run
		errs []error
	)
	for count := 1; count <= r.Config.RunCount; count++ {
		for _, e := range experiments {
			if err := ctx.Err(); err != nil {
				return runs, err
			}
			run, err := r.RunOne(ctx, e, count)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			runs = append(runs, run)
		}
	}
	return runs, errors.Join(errs...)
}

// RunOne performs a single engine run.
func (r *Runner) RunOne(ctx context.Context, e experiment.Experiment, count int) (Run, error) {
	run := Run{Experiment: e, Count: count, Detail: r.Workspace.DetailFile(e, count)}
	log := r.logger().With("algorithm", e.Algorithm, "experiment", e.ID, "run", count)
	if fileExists(run.Detail) {
		log.Debug("detail exists, skipping")
		run.Skipped = true
		return run, nil
	}

	args := r.EngineArgs(e, count)
	log.Info("running engine", "command", r.engine(), "args", args)
	start := r.clock().Now()
	out, err := r.command()(ctx, r.engine(), args...)
	run.Elapsed = r.clock().Since(start)
	if err != nil {
		log.Error("engine failed", "error", err, "output", string(out))
		return run, fmt.Errorf("run %s/%s:%d: %w", e.Algorithm, e.ID, count, err)
	}
	if !fileExists(run.Detail) {
		log.Error("detail file not found, check that the engine is in PATH", "detail", run.Detail)
		return run, fmt.Errorf("run %s/%s:%d: %w: %s", e.Algorithm, e.ID, count, ErrMissingOutput, run.Detail)
	}
	log.Info("run finished", "elapsed", run.Elapsed)
	return run, nil
}

// ConfidenceIntervals runs the confidence interval tool over every
// summary file of every varied parameter. Missing summaries are logged and
// skipped.
func (r *Runner) ConfidenceIntervals(ctx context.Context) error {
	var errs []error
	for _, param := range r.Config.Varied() {
		for _, measure := range []string{experiment.MeasureRuntime, experiment.MeasureMemory} {
			in := r.Workspace.SummaryFile(measure, param)
			out := r.Workspace.ResultFile(measure, param)
			if !fileExists(in) {
				r.logger().Warn("summary file not found", "file", in)
				continue
			}
			args := []string{"-i", in, "-o", out, "-k", param}
			r.logger().Info("computing confidence interval", "command", r.confInterval(), "args", args)
			if output, err := r.command()(ctx, r.confInterval(), args...); err != nil {
				r.logger().Error("confidence interval failed", "error", err, "output", string(output))
				errs = append(errs, fmt.Errorf("confinterval %s: %w", in, err))
				continue
			}
			if !fileExists(out) {
				r.logger().Error("result file not found, check that confinterval is in PATH", "file", out)
				errs = append(errs, fmt.Errorf("%w: %s", ErrMissingOutput, out))
			}
		}
	}
	return errors.Join(errs...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
