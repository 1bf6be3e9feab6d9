// Package experiment loads experiment configurations, expands their
// parameter grid and lays out the workspace the engine runs against.
package experiment

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/seqpref/internal/operator"
)

// Parameter keys accepted under "parameters".
const (
	ParamAttributes  = "att"
	ParamSequences   = "nsq"
	ParamConsecutive = "pct"
	ParamRange       = "ran"
	ParamSlide       = "sli"
	ParamRules       = "rul"
	ParamLevels      = "lev"
	ParamIndifferent = "ind"
	ParamTopK        = "top"
	ParamMinLength   = "min"
	ParamMaxLength   = "max"
)

// DataParams are the parameters a generated stream depends on.
var DataParams = []string{ParamAttributes, ParamSequences, ParamConsecutive}

// AlgorithmCQL selects the relational equivalent plan. Every other
// algorithm name is passed to the engine with the native operator.
const AlgorithmCQL = "cql"

// Parameter is a default value plus an optional variation.
type Parameter struct {
	Default *float64  `json:"def" yaml:"def"`
	Vary    []float64 `json:"var,omitempty" yaml:"var,omitempty"`
}

// Values returns the variation, or the default alone.
func (p Parameter) Values() []float64 {
	if len(p.Vary) > 0 {
		return p.Vary
	}
	if p.Default == nil {
		return nil
	}
	return []float64{*p.Default}
}

// Max is the largest value the parameter takes.
func (p Parameter) Max() float64 {
	values := p.Values()
	if len(values) == 0 {
		return 0
	}
	return slices.Max(values)
}

// Config is an experiment file.
type Config struct {
	Operator   string               `json:"operator" yaml:"operator"`
	Algorithms []string             `json:"algorithms" yaml:"algorithms"`
	DomainMax  int                  `json:"domain_max" yaml:"domain_max"`
	TupleRate  float64              `json:"tuple_rate" yaml:"tuple_rate"`
	Directory  string               `json:"directory" yaml:"directory"`
	RunCount   int                  `json:"run_count" yaml:"run_count"`
	Seed       uint64               `json:"seed" yaml:"seed"`
	Parameters map[string]Parameter `json:"parameters" yaml:"parameters"`
}

// Kind parses the operator name.
func (c *Config) Kind() (operator.Kind, error) {
	return operator.ParseKind(c.Operator)
}

func (c *Config) applyDefaults() {
	if c.TupleRate == 0 {
		c.TupleRate = 1
	}
	if c.RunCount == 0 {
		c.RunCount = 1
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.Directory == "" {
		c.Directory = "."
	}
}

// Varied returns the sorted keys of the parameters that have a variation.
func (c *Config) Varied() []string {
	var keys []string
	for k, p := range c.Parameters {
		if len(p.Vary) > 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// LastTimestamp is the last timestamp of every generated stream: the
// largest range plus the largest slide.
func (c *Config) LastTimestamp() int {
	return int(c.Parameters[ParamRange].Max() + c.Parameters[ParamSlide].Max())
}

// MaxSlide is the largest slide of the grid.
func (c *Config) MaxSlide() int {
	return int(c.Parameters[ParamSlide].Max())
}

// LoadError is a configuration error, with its source position when the
// file is CUE.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrInvalid matches every error returned by Validate.
var ErrInvalid = errors.New("invalid experiment configuration")

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &LoadError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	kind, err := c.Kind()
	if err != nil {
		add("operator", "%v", err)
	}
	if len(c.Algorithms) == 0 {
		add("algorithms", "at least one algorithm is required")
	}
	for _, alg := range c.Algorithms {
		if alg == "" || strings.ContainsAny(alg, `/\`) {
			add("algorithms", "invalid algorithm name %q", alg)
		}
	}
	if err == nil && kind == operator.TopKSeq && slices.Contains(c.Algorithms, AlgorithmCQL) {
		add("algorithms", "%s has no %s equivalent", kind, AlgorithmCQL)
	}
	if c.DomainMax < 2 {
		add("domain_max", "must be >= 2, got %d", c.DomainMax)
	}
	if c.TupleRate < 0 || c.TupleRate > 1 {
		add("tuple_rate", "must be in [0, 1], got %v", c.TupleRate)
	}
	if c.RunCount < 1 {
		add("run_count", "must be >= 1, got %d", c.RunCount)
	}

	known := c.required(kind)
	known = append(known, ParamIndifferent)
	for _, k := range c.required(kind) {
		if _, ok := c.Parameters[k]; !ok && err == nil {
			add("parameters."+k, "required for %s", kind)
		}
	}
	for _, k := range sortedKeys(c.Parameters) {
		p := c.Parameters[k]
		field := "parameters." + k
		if !slices.Contains(allParams, k) {
			add(field, "unknown parameter")
			continue
		}
		if err == nil && !slices.Contains(known, k) {
			add(field, "not used by %s", kind)
		}
		if p.Default == nil {
			add(field+".def", "default value is required")
			continue
		}
		for _, v := range p.Values() {
			if k != ParamConsecutive && v != math.Trunc(v) {
				add(field, "value %v is not an integer", v)
			}
			if v < 0 {
				add(field, "value %v is negative", v)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

var allParams = []string{
	ParamAttributes, ParamSequences, ParamConsecutive, ParamRange, ParamSlide,
	ParamRules, ParamLevels, ParamIndifferent, ParamTopK, ParamMinLength, ParamMaxLength,
}

// required lists the parameters an operator cannot run without.
func (c *Config) required(kind operator.Kind) []string {
	req := []string{ParamAttributes, ParamSequences, ParamRange, ParamSlide}
	switch kind {
	case operator.Conseq:
		req = append(req, ParamConsecutive)
	case operator.BestSeq:
		req = append(req, ParamRules, ParamLevels)
	case operator.TopKSeq:
		req = append(req, ParamRules, ParamLevels, ParamTopK)
	case operator.MinSeq:
		req = append(req, ParamMinLength)
	case operator.MaxSeq:
		req = append(req, ParamMaxLength)
	}
	return req
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
