package experiment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

// Experiment is one point of the parameter grid run with one algorithm.
type Experiment struct {
	Algorithm string
	// ID concatenates every varied parameter with its value, e.g.
	// "lev2ran5rul4".
	ID string
	// DataID names the stream the experiment reads, e.g. "att8nsq10".
	DataID string
	Values map[string]float64
	Spec   operator.Spec
	Schema schema.Schema
}

// Native reports whether the experiment runs the native operator.
func (e Experiment) Native() bool {
	return e.Algorithm != AlgorithmCQL
}

func (e Experiment) intValue(key string) int {
	return int(e.Values[key])
}

// Defaults returns every parameter at its default value.
func (c *Config) Defaults() map[string]float64 {
	values := make(map[string]float64, len(c.Parameters))
	for k, p := range c.Parameters {
		if p.Default != nil {
			values[k] = *p.Default
		}
	}
	return values
}

// Expand returns the experiments of the grid: for every algorithm and
// every varied parameter, one experiment per value with all other
// parameters at their defaults. Duplicates are removed, order is stable.
func (c *Config) Expand() ([]Experiment, error) {
	varied := c.Varied()
	var (
		out  []Experiment
		seen = make(map[string]bool)
	)
	for _, alg := range c.Algorithms {
		if len(varied) == 0 {
			e, err := c.Experiment(alg, c.Defaults())
			if err != nil {
				return nil, err
			}
			out = append(out, e)
			continue
		}
		for _, key := range varied {
			for _, v := range c.Parameters[key].Vary {
				values := c.Defaults()
				values[key] = v
				e, err := c.Experiment(alg, values)
				if err != nil {
					return nil, err
				}
				if seen[alg+"/"+e.ID] {
					continue
				}
				seen[alg+"/"+e.ID] = true
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// Experiment builds and validates the experiment for one set of values.
func (c *Config) Experiment(alg string, values map[string]float64) (Experiment, error) {
	kind, err := c.Kind()
	if err != nil {
		return Experiment{}, err
	}
	e := Experiment{
		Algorithm: alg,
		ID:        c.id(values),
		DataID:    dataID(values),
		Values:    values,
	}
	e.Schema = schema.New(e.intValue(ParamAttributes), e.intValue(ParamIndifferent))

	rng, slide := e.intValue(ParamRange), e.intValue(ParamSlide)
	params := rule.Params{
		Count:     e.intValue(ParamRules),
		Levels:    e.intValue(ParamLevels),
		DomainMax: c.DomainMax,
	}
	switch kind {
	case operator.Seq:
		e.Spec = operator.NewSeq(rng, slide)
	case operator.Conseq:
		e.Spec = operator.NewConseq(rng, slide)
	case operator.BestSeq:
		e.Spec = operator.NewBestSeq(rng, slide, params)
	case operator.TopKSeq:
		e.Spec = operator.NewTopKSeq(rng, slide, params, e.intValue(ParamTopK))
	case operator.MinSeq:
		e.Spec = operator.NewMinSeq(rng, slide, e.intValue(ParamMinLength))
	case operator.MaxSeq:
		e.Spec = operator.NewMaxSeq(rng, slide, e.intValue(ParamMaxLength))
	default:
		return Experiment{}, fmt.Errorf("unknown operator %s", kind)
	}
	if err := operator.Validate(e.Spec, e.Schema); err != nil {
		return Experiment{}, fmt.Errorf("experiment %s/%s: %w", alg, e.ID, err)
	}
	return e, nil
}

func (c *Config) id(values map[string]float64) string {
	var b strings.Builder
	for _, key := range c.Varied() {
		b.WriteString(key)
		b.WriteString(formatValue(values[key]))
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

func dataID(values map[string]float64) string {
	var b strings.Builder
	for _, key := range DataParams {
		if v, ok := values[key]; ok {
			b.WriteString(key)
			b.WriteString(formatValue(v))
		}
	}
	return b.String()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
