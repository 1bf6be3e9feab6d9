// Package operator defines the closed set of sequence operators and the
// immutable specification value every compiler consumes.
package operator

import (
	"fmt"
	"strings"

	"github.com/roach88/seqpref/internal/rule"
)

// Kind identifies a sequence operator.
type Kind int

const (
	Seq Kind = iota
	Conseq
	BestSeq
	TopKSeq
	MinSeq
	MaxSeq
)

// Kinds lists every operator in declaration order.
var Kinds = []Kind{Seq, Conseq, BestSeq, TopKSeq, MinSeq, MaxSeq}

func (k Kind) String() string {
	switch k {
	case Seq:
		return "seq"
	case Conseq:
		return "conseq"
	case BestSeq:
		return "bestseq"
	case TopKSeq:
		return "topkseq"
	case MinSeq:
		return "minseq"
	case MaxSeq:
		return "maxseq"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// UsesPreferences reports whether the operator evaluates temporal
// preference rules.
func (k Kind) UsesPreferences() bool {
	return k == BestSeq || k == TopKSeq
}

// Window is a sliding RANGE/SLIDE window in timestamp units.
type Window struct {
	Range int `json:"range" yaml:"range"`
	Slide int `json:"slide" yaml:"slide"`
}

// Spec is the operator specification. Which fields are meaningful depends
// on Kind:
//
//	Seq, Conseq      Window
//	BestSeq          Window, Rules
//	TopKSeq          Window, Rules, K
//	MinSeq           Window, MinLength
//	MaxSeq           Window, MaxLength
//
// Spec is a value type; compilers never modify it.
type Spec struct {
	Kind      Kind        `json:"operator" yaml:"operator"`
	Window    Window      `json:"window" yaml:"window"`
	Rules     rule.Params `json:"rules,omitempty" yaml:"rules,omitempty"`
	K         int         `json:"k,omitempty" yaml:"k,omitempty"`
	MinLength int         `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int         `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

// NewSeq returns a SEQ specification.
func NewSeq(rng, slide int) Spec {
	return Spec{Kind: Seq, Window: Window{Range: rng, Slide: slide}}
}

// NewConseq returns a CONSEQ specification.
func NewConseq(rng, slide int) Spec {
	return Spec{Kind: Conseq, Window: Window{Range: rng, Slide: slide}}
}

// NewBestSeq returns a BESTSEQ specification.
func NewBestSeq(rng, slide int, rules rule.Params) Spec {
	return Spec{Kind: BestSeq, Window: Window{Range: rng, Slide: slide}, Rules: rules}
}

// NewTopKSeq returns a TOPKSEQ specification.
func NewTopKSeq(rng, slide int, rules rule.Params, k int) Spec {
	return Spec{Kind: TopKSeq, Window: Window{Range: rng, Slide: slide}, Rules: rules, K: k}
}

// NewMinSeq returns a MINSEQ specification over a SEQ window.
func NewMinSeq(rng, slide, minLength int) Spec {
	return Spec{Kind: MinSeq, Window: Window{Range: rng, Slide: slide}, MinLength: minLength}
}

// NewMaxSeq returns a MAXSEQ specification over a SEQ window.
func NewMaxSeq(rng, slide, maxLength int) Spec {
	return Spec{Kind: MaxSeq, Window: Window{Range: rng, Slide: slide}, MaxLength: maxLength}
}
