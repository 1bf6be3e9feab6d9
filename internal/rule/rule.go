// Package rule expands preference parameters into concrete tcp-rules.
//
// A rule has the form
//
//	IF <condition> THEN A2 = p BETTER A2 = p+1 [indifferent attributes]
//
// where the condition is either "A3 <= c AND FIRST" or the PREVIOUS chain
// "A3 <= c AND PREVIOUS (A3 <= pc) AND SOME PREVIOUS (A4 <= spc) AND ALL
// PREVIOUS (A5 <= apc)". Rules are immutable once compiled.
package rule

// Kind is the temporal condition type of a rule.
type Kind int

const (
	// First rules apply only at the first sequence position.
	First Kind = iota
	// Previous rules carry the PREVIOUS / SOME PREVIOUS / ALL PREVIOUS chain.
	Previous
)

func (k Kind) String() string {
	switch k {
	case First:
		return "first"
	case Previous:
		return "prev"
	default:
		return "unknown"
	}
}

// Rule is a single preference rule.
type Rule struct {
	Kind         Kind `json:"kind"`
	Preferred    int  `json:"pref"`
	NonPreferred int  `json:"nonpref"`
	Simple       int  `json:"simple"`
	// The thresholds below are only meaningful for Previous rules.
	Previous     int `json:"prev,omitempty"`
	SomePrevious int `json:"someprev,omitempty"`
	AllPrevious  int `json:"allprev,omitempty"`
	Indifferent  int `json:"indiff"`
}

// HasPrevious reports whether the rule carries the PREVIOUS chain.
func (r Rule) HasPrevious() bool { return r.Kind == Previous }

// Params are the counts a rule list is compiled from.
type Params struct {
	Count     int `json:"count" yaml:"count"`
	Levels    int `json:"levels" yaml:"levels"`
	DomainMax int `json:"domain_max" yaml:"domain_max"`
}

// Compile returns exactly p.Count rules: the first half FIRST rules, the
// second half PREVIOUS rules.
//
// Within each half preference values are assigned from a counter starting
// at 0. The counter advances by one per rule plus one extra step after
// every p.Levels rules, so values are laid out in blocks of p.Levels rules
// and rules of different blocks never share a value.
//
// Compile is pure and never fails; parameters are validated by
// operator.Validate before compilation.
func Compile(p Params, indifferent int) []Rule {
	half := p.Count / 2
	rules := make([]Rule, 0, 2*half)
	rules = append(rules, compileHalf(First, half, p, indifferent)...)
	rules = append(rules, compileHalf(Previous, half, p, indifferent)...)
	return rules
}

func compileHalf(kind Kind, count int, p Params, indifferent int) []Rule {
	rules := make([]Rule, 0, count)
	value, level := 0, 0
	for range count {
		rules = append(rules, newRule(kind, value, p.DomainMax, indifferent))
		value++
		level++
		if level == p.Levels {
			level = 0
			value++
		}
	}
	return rules
}

func newRule(kind Kind, pref, domainMax, indifferent int) Rule {
	r := Rule{
		Kind:         kind,
		Preferred:    pref,
		NonPreferred: pref + 1,
		Simple:       Threshold(domainMax, Half),
		Indifferent:  indifferent,
	}
	if kind == Previous {
		r.Previous = Threshold(domainMax, Half)
		r.SomePrevious = Threshold(domainMax, Quarter)
		r.AllPrevious = Threshold(domainMax, ThreeQuarters)
	}
	return r
}

// Threshold fractions, expressed in quarters of the domain.
const (
	Quarter       = 1
	Half          = 2
	ThreeQuarters = 3
)

// Threshold returns floor(domainMax * quarters / 4).
func Threshold(domainMax, quarters int) int {
	return domainMax * quarters / 4
}
