package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

// SpecFlags describe a single operator on the command line.
type SpecFlags struct {
	Operator    string
	Range       int
	Slide       int
	Attributes  int
	Indifferent int
	Rules       int
	Levels      int
	DomainMax   int
	K           int
	MinLength   int
	MaxLength   int
}

func (f *SpecFlags) register(cmd *cobra.Command, domain int) {
	fs := cmd.Flags()
	fs.StringVar(&f.Operator, "operator", "seq", "operator (seq|conseq|bestseq|topkseq|minseq|maxseq)")
	fs.IntVar(&f.Range, "range", 5, "window range")
	fs.IntVar(&f.Slide, "slide", 1, "window slide")
	fs.IntVar(&f.Attributes, "attributes", 5, "number of stream attributes")
	fs.IntVar(&f.Indifferent, "indifferent", 0, "number of trailing indifferent attributes")
	fs.IntVar(&f.Rules, "rules", 2, "number of preference rules (even)")
	fs.IntVar(&f.Levels, "levels", 1, "preference levels")
	fs.IntVar(&f.DomainMax, "domain", domain, "attribute values are drawn from [0, domain)")
	fs.IntVar(&f.K, "k", 1, "number of sequences kept by topkseq")
	fs.IntVar(&f.MinLength, "min", 1, "minimum sequence length for minseq")
	fs.IntVar(&f.MaxLength, "max", 1, "maximum sequence length for maxseq")
}

// Spec builds the operator specification. It is validated by the
// compiler, not here.
func (f *SpecFlags) Spec() (operator.Spec, schema.Schema, error) {
	kind, err := operator.ParseKind(f.Operator)
	if err != nil {
		return operator.Spec{}, schema.Schema{}, err
	}
	s := schema.New(f.Attributes, f.Indifferent)
	params := rule.Params{Count: f.Rules, Levels: f.Levels, DomainMax: f.DomainMax}

	var spec operator.Spec
	switch kind {
	case operator.Seq:
		spec = operator.NewSeq(f.Range, f.Slide)
	case operator.Conseq:
		spec = operator.NewConseq(f.Range, f.Slide)
	case operator.BestSeq:
		spec = operator.NewBestSeq(f.Range, f.Slide, params)
	case operator.TopKSeq:
		spec = operator.NewTopKSeq(f.Range, f.Slide, params, f.K)
	case operator.MinSeq:
		spec = operator.NewMinSeq(f.Range, f.Slide, f.MinLength)
	case operator.MaxSeq:
		spec = operator.NewMaxSeq(f.Range, f.Slide, f.MaxLength)
	}
	return spec, s, nil
}
