// Package stream generates the synthetic input streams and the tup
// completion table read by compiled plans.
package stream

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/roach88/seqpref/internal/reference"
	"github.com/roach88/seqpref/internal/schema"
)

// CompletionFlag marks an insertion in a table file.
const CompletionFlag = "+"

// Config describes a stream to generate.
type Config struct {
	Schema schema.Schema
	// Sequences is the number of distinct identifiers.
	Sequences int
	// TupleRate is the fraction of identifiers emitting at each timestamp.
	TupleRate float64
	// DomainMax bounds every value attribute to [0, DomainMax).
	DomainMax int
	// LastTimestamp is the last generated timestamp (inclusive).
	LastTimestamp int
	// Consecutive, when set, switches to the gap generator: every
	// identifier emits at each timestamp except at gaps, whose frequency
	// is selected by the percentage of consecutive timestamps.
	Consecutive *float64
	// Range is the window range. Identifier phases of the gap generator
	// are drawn from [0, Range).
	Range int
}

// ErrInvalid reports an unusable generator configuration.
var ErrInvalid = errors.New("invalid stream configuration")

func (c Config) validate() error {
	switch {
	case c.Sequences < 1:
		return fmt.Errorf("%w: sequences must be >= 1", ErrInvalid)
	case c.DomainMax < 1:
		return fmt.Errorf("%w: domain_max must be >= 1", ErrInvalid)
	case c.LastTimestamp < 0:
		return fmt.Errorf("%w: last timestamp must be >= 0", ErrInvalid)
	case c.Schema.Attributes < 1:
		return fmt.Errorf("%w: attributes must be >= 1", ErrInvalid)
	case c.Consecutive != nil && c.Range < 1:
		return fmt.Errorf("%w: range must be >= 1", ErrInvalid)
	case c.Consecutive == nil && (c.TupleRate < 0 || c.TupleRate > 1):
		return fmt.Errorf("%w: tuple rate must be in [0, 1]", ErrInvalid)
	}
	return nil
}

// Generate returns the tuples of the stream, ordered by timestamp. At most
// one tuple exists per identifier and timestamp.
func Generate(cfg Config, r *rand.Rand) ([]reference.Tuple, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Consecutive != nil {
		return generateGaps(cfg, *cfg.Consecutive, r), nil
	}
	return generateRate(cfg, r), nil
}

func generateRate(cfg Config, r *rand.Rand) []reference.Tuple {
	ids := make([]int64, cfg.Sequences)
	for i := range ids {
		ids[i] = int64(i)
	}
	perInstant := int(float64(cfg.Sequences) * cfg.TupleRate)

	var out []reference.Tuple
	for ts := 0; ts <= cfg.LastTimestamp; ts++ {
		r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		for _, id := range ids[:perInstant] {
			out = append(out, tuple(cfg, r, int64(ts), id))
		}
	}
	return out
}

func generateGaps(cfg Config, pct float64, r *rand.Rand) []reference.Tuple {
	phases := make([]int, cfg.Sequences)
	for i := range phases {
		phases[i] = r.IntN(cfg.Range)
	}

	var out []reference.Tuple
	for ts := 0; ts <= cfg.LastTimestamp; ts++ {
		for id, phase := range phases {
			if Gap(ts+phase, pct) {
				continue
			}
			out = append(out, tuple(cfg, r, int64(ts), int64(id)))
		}
	}
	return out
}

// Gap reports whether shifted timestamp t is left empty for a stream with
// the given percentage of consecutive timestamps. Percentages other than
// 0, 0.25, 0.5 and 0.75 produce no gaps.
func Gap(t int, pct float64) bool {
	switch pct {
	case 0:
		return t%2 == 0
	case 0.25:
		return t%4 == 0 || t%4 == 1
	case 0.5:
		return t%4 == 0
	case 0.75:
		return t%8 == 0
	default:
		return false
	}
}

func tuple(cfg Config, r *rand.Rand, ts, id int64) reference.Tuple {
	values := make([]int64, cfg.Schema.Attributes)
	values[0] = id
	for k := 1; k < len(values); k++ {
		values[k] = int64(r.IntN(cfg.DomainMax))
	}
	return reference.Tuple{TS: ts, Values: values}
}

// Window returns the tuples with from <= TS < from+rng.
func Window(tuples []reference.Tuple, from, rng int64) []reference.Tuple {
	var out []reference.Tuple
	for _, t := range tuples {
		if t.TS >= from && t.TS < from+rng {
			out = append(out, t)
		}
	}
	return out
}

// Header returns the CSV header of a stream file: _TS, A1..An.
func Header(s schema.Schema) []string {
	return append([]string{schema.TimestampAttribute}, s.Names()...)
}

// WriteCSV writes tuples as a stream file.
func WriteCSV(w io.Writer, s schema.Schema, tuples []reference.Tuple) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(s)); err != nil {
		return err
	}
	record := make([]string, s.Attributes+1)
	for _, t := range tuples {
		if len(t.Values) != s.Attributes {
			return fmt.Errorf("tuple at %d has %d values, want %d", t.TS, len(t.Values), s.Attributes)
		}
		record[0] = strconv.FormatInt(t.TS, 10)
		for k, v := range t.Values {
			record[k+1] = strconv.FormatInt(v, 10)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a stream file written by WriteCSV.
func ReadCSV(r io.Reader, s schema.Schema) ([]reference.Tuple, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	want := Header(s)
	if len(header) != len(want) {
		return nil, fmt.Errorf("header has %d columns, want %d", len(header), len(want))
	}
	for i := range want {
		if header[i] != want[i] {
			return nil, fmt.Errorf("header column %d is %q, want %q", i+1, header[i], want[i])
		}
	}

	var out []reference.Tuple
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		nums := make([]int64, len(record))
		for i, field := range record {
			n, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, want[i], err)
			}
			nums[i] = n
		}
		out = append(out, reference.Tuple{TS: nums[0], Values: nums[1:]})
	}
}

// WriteCompletion writes the tup table: one insertion at timestamp 0 for
// every (A2, A3) pair of the domain.
func WriteCompletion(w io.Writer, domainMax int) error {
	cw := csv.NewWriter(w)
	header := []string{schema.TimestampAttribute, schema.FlagAttribute}
	for _, c := range schema.CompletionColumns() {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for a2 := range domainMax {
		for a3 := range domainMax {
			if err := cw.Write([]string{"0", CompletionFlag, strconv.Itoa(a2), strconv.Itoa(a3)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
