package experiment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Workspace directories.
const (
	DataDir    = "data"
	QueryDir   = "queries"
	EnvDir     = "env"
	OutDir     = "out"
	DetailDir  = "details"
	SummaryDir = "summary"
	ResultDir  = "result"
)

// Summary measures.
const (
	MeasureRuntime = "run"
	MeasureMemory  = "mem"
)

// CompletionFile is the name of the tup table file under data/.
const CompletionFile = "tup.csv"

// Workspace is the directory tree of an experiment.
type Workspace struct {
	Root string
}

// Create makes every directory the experiments need.
func (w Workspace) Create(experiments []Experiment) error {
	dirs := []string{
		w.Root,
		w.path(DataDir),
		w.path(QueryDir),
		w.path(EnvDir),
		w.path(OutDir),
		w.path(DetailDir),
		w.path(SummaryDir),
		w.path(ResultDir),
	}
	for _, e := range experiments {
		dirs = append(dirs,
			w.path(EnvDir, e.Algorithm),
			w.path(OutDir, e.Algorithm),
			w.path(DetailDir, e.Algorithm),
			w.QueryDir(e),
		)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

func (w Workspace) path(elem ...string) string {
	return filepath.Join(append([]string{w.Root}, elem...)...)
}

// DataFile is the stream file of a data ID.
func (w Workspace) DataFile(dataID string) string {
	return w.path(DataDir, dataID+".csv")
}

// CompletionFile is the tup table file.
func (w Workspace) CompletionFile() string {
	return w.path(DataDir, CompletionFile)
}

// QueryDir holds the query files of an experiment.
func (w Workspace) QueryDir(e Experiment) string {
	return w.path(QueryDir, e.Algorithm, e.ID)
}

// EnvFile is the registration document of an experiment.
func (w Workspace) EnvFile(e Experiment) string {
	return w.path(EnvDir, e.Algorithm, e.ID+".env")
}

// OutFile receives the final query output when sinks are enabled.
func (w Workspace) OutFile(e Experiment) string {
	return w.path(OutDir, e.Algorithm, e.ID+".csv")
}

// DetailFile is the engine's runtime/memory detail of one run.
func (w Workspace) DetailFile(e Experiment, run int) string {
	return w.path(DetailDir, e.Algorithm, e.ID+":"+strconv.Itoa(run)+".csv")
}

// SummaryFile collects one measure over the values of a parameter.
func (w Workspace) SummaryFile(measure, param string) string {
	return w.path(SummaryDir, measure+"_"+param+".csv")
}

// ResultFile is the confidence interval output of a summary file.
func (w Workspace) ResultFile(measure, param string) string {
	return w.path(ResultDir, measure+"_"+param+".csv")
}
