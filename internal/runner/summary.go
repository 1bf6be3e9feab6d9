package runner

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/seqpref/internal/experiment"
)

// Detail file columns written by the engine.
const (
	ColumnRuntime = "runtime"
	ColumnMemory  = "memory"
)

// Measures of one detail file.
type Measures struct {
	// Runtime is the total runtime over all iterations.
	Runtime float64
	// Memory is the average memory over all iterations.
	Memory float64
}

// ReadDetail summarizes a detail file. A missing file yields NaN measures.
func ReadDetail(path string) (Measures, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Measures{Runtime: math.NaN(), Memory: math.NaN()}, nil
	}
	if err != nil {
		return Measures{}, err
	}
	defer f.Close()
	m, err := parseDetail(f)
	if err != nil {
		return Measures{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func parseDetail(r io.Reader) (Measures, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return Measures{}, fmt.Errorf("read header: %w", err)
	}
	runtimeCol := slices.Index(header, ColumnRuntime)
	memoryCol := slices.Index(header, ColumnMemory)
	if runtimeCol < 0 || memoryCol < 0 {
		return Measures{}, fmt.Errorf("header %v lacks %s or %s", header, ColumnRuntime, ColumnMemory)
	}

	var (
		m     Measures
		count int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Measures{}, err
		}
		rt, err := strconv.ParseFloat(rec[runtimeCol], 64)
		if err != nil {
			return Measures{}, err
		}
		mem, err := strconv.ParseFloat(rec[memoryCol], 64)
		if err != nil {
			return Measures{}, err
		}
		m.Runtime += rt
		m.Memory += mem
		count++
	}
	if count == 0 {
		m.Memory = math.NaN()
		return m, nil
	}
	m.Memory /= float64(count)
	return m, nil
}

// Summarize writes the runtime and memory summary files of every varied
// parameter: one row per (value, run), one column per algorithm.
func (r *Runner) Summarize() ([]string, error) {
	var written []string
	for _, param := range r.Config.Varied() {
		files, err := r.summarize(param)
		if err != nil {
			return written, err
		}
		written = append(written, files...)
	}
	return written, nil
}

func (r *Runner) summarize(param string) ([]string, error) {
	algorithms := slices.Clone(r.Config.Algorithms)
	slices.Sort(algorithms)
	header := append([]string{param}, algorithms...)

	var runtimeRows, memoryRows [][]string
	for _, value := range r.Config.Parameters[param].Vary {
		values := r.Config.Defaults()
		values[param] = value
		for count := 1; count <= r.Config.RunCount; count++ {
			key := strconv.FormatFloat(value, 'f', -1, 64)
			runtimeRow := []string{key}
			memoryRow := []string{key}
			for _, alg := range algorithms {
				e, err := r.Config.Experiment(alg, values)
				if err != nil {
					return nil, err
				}
				m, err := ReadDetail(r.Workspace.DetailFile(e, count))
				if err != nil {
					return nil, err
				}
				if math.IsNaN(m.Runtime) {
					r.logger().Warn("detail file not found", "file", r.Workspace.DetailFile(e, count))
				}
				runtimeRow = append(runtimeRow, formatMeasure(m.Runtime))
				memoryRow = append(memoryRow, formatMeasure(m.Memory))
			}
			runtimeRows = append(runtimeRows, runtimeRow)
			memoryRows = append(memoryRows, memoryRow)
		}
	}

	runtimeFile := r.Workspace.SummaryFile(experiment.MeasureRuntime, param)
	memoryFile := r.Workspace.SummaryFile(experiment.MeasureMemory, param)
	if err := writeCSV(runtimeFile, header, runtimeRows); err != nil {
		return nil, err
	}
	if err := writeCSV(memoryFile, header, memoryRows); err != nil {
		return nil, err
	}
	r.logger().Info("summary written", "parameter", param, "rows", len(runtimeRows))
	return []string{runtimeFile, memoryFile}, nil
}

func formatMeasure(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
