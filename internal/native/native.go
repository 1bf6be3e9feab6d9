// Package native renders sequence operators in the engine's own query
// syntax, the single-query alternative to a CQL-equivalent plan.
package native

import (
	"fmt"
	"strings"

	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

// Query returns the native query text for spec. The spec is assumed valid.
func Query(spec operator.Spec, s schema.Schema) (string, error) {
	seq := sequence(spec.Window, s)
	switch spec.Kind {
	case operator.Seq:
		return "SELECT " + seq + ";", nil
	case operator.Conseq:
		return "SELECT SUBSEQUENCE CONSECUTIVE TIMESTAMP FROM " + seq + ";", nil
	case operator.BestSeq:
		return "SELECT " + seq + " TEMPORAL PREFERENCES\n" + Preferences(spec, s) + ";", nil
	case operator.TopKSeq:
		return fmt.Sprintf("SELECT TOP(%d) %s TEMPORAL PREFERENCES\n%s;", spec.K, seq, Preferences(spec, s)), nil
	case operator.MinSeq:
		return fmt.Sprintf("SELECT %s\nWHERE MINIMUM LENGTH IS %d;", seq, spec.MinLength), nil
	case operator.MaxSeq:
		return fmt.Sprintf("SELECT %s\nWHERE MAXIMUM LENGTH IS %d;", seq, spec.MaxLength), nil
	default:
		return "", fmt.Errorf("unsupported operator: %s", spec.Kind)
	}
}

func sequence(w operator.Window, s schema.Schema) string {
	return fmt.Sprintf("SEQUENCE IDENTIFIED BY %s [RANGE %d SECOND, SLIDE %d SECOND]\nFROM s",
		s.Identifier(), w.Range, w.Slide)
}

// Preferences renders the compiled rules of spec, FIRST rules first,
// joined with AND.
func Preferences(spec operator.Spec, s schema.Schema) string {
	rules := rule.Compile(spec.Rules, s.Indifferent)
	lines := make([]string, len(rules))
	for i, r := range rules {
		lines[i] = Rule(r, s)
	}
	return strings.Join(lines, "\nAND\n")
}

// Rule renders one tcp-rule, e.g.
//
//	IF (A3 <= 5) AND FIRST THEN A2 = 0 BETTER A2 = 1[A6]
func Rule(r rule.Rule, s schema.Schema) string {
	var b strings.Builder
	cond := schema.Name(schema.ConditionIndex)
	fmt.Fprintf(&b, "IF (%s <= %d) AND ", cond, r.Simple)
	switch r.Kind {
	case rule.First:
		b.WriteString("FIRST")
	case rule.Previous:
		fmt.Fprintf(&b, "PREVIOUS (%s <= %d) AND SOME PREVIOUS (%s <= %d) AND ALL PREVIOUS (%s <= %d)",
			cond, r.Previous,
			schema.Name(schema.SomePreviousIndex), r.SomePrevious,
			schema.Name(schema.AllPreviousIndex), r.AllPrevious)
	}
	pref := schema.Name(schema.PreferenceIndex)
	fmt.Fprintf(&b, " THEN %s = %d BETTER %s = %d", pref, r.Preferred, pref, r.NonPreferred)
	if r.Indifferent > 0 {
		b.WriteString("[" + strings.Join(s.IndifferentNames(), ", ") + "]")
	}
	return b.String()
}

// Reads lists the relations native query text refers to.
func Reads() []string { return []string{"s"} }
