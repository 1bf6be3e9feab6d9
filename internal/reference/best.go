package reference

import (
	"slices"

	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

// Value indexes into Row.Values (A2 is index 0).
const (
	prefIdx = schema.PreferenceIndex - 2
	condIdx = schema.ConditionIndex - 2
	someIdx = schema.SomePreviousIndex - 2
	allIdx  = schema.AllPreviousIndex - 2
)

// sequence is one identifier's tuples indexed by position.
type sequence map[int64][]int64

// Best keeps the sequences of z that no other sequence dominates.
//
// A sequence x dominates y when, at the first position i where their
// tuples differ, x's tuple is preferred to y's. The shared prefix before
// i decides which rules are active: FIRST rules at i = 1 only, PREVIOUS
// rules when the tuple at i-1 satisfies PREVIOUS, some earlier tuple
// satisfies SOME PREVIOUS and every earlier tuple satisfies ALL PREVIOUS.
// Tuple t is preferred to u when both satisfy the rules' A3 condition, they
// agree on the comparable attributes and a chain of at most levels active
// rules leads from t's A2 value to u's.
func Best(z []Row, s schema.Schema, rules []rule.Rule, levels int) []Row {
	seqs := map[int64]sequence{}
	for _, r := range z {
		if seqs[r.ID] == nil {
			seqs[r.ID] = sequence{}
		}
		seqs[r.ID][r.Pos] = r.Values
	}
	ids := make([]int64, 0, len(seqs))
	for id := range seqs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	n := len(s.Comparable())
	dominated := map[int64]bool{}
	for _, x := range ids {
		for _, y := range ids {
			if x == y || dominated[y] {
				continue
			}
			pos, ok := firstDifference(seqs[x], seqs[y])
			if !ok {
				continue
			}
			active := activeRules(rules, seqs[x], pos)
			if prefers(active, seqs[x][pos], seqs[y][pos], n, levels) {
				dominated[y] = true
			}
		}
	}

	var out []Row
	for _, r := range z {
		if !dominated[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// firstDifference returns the smallest position held by both sequences
// where their tuples differ.
func firstDifference(x, y sequence) (int64, bool) {
	var (
		first int64
		found bool
	)
	for pos, v := range x {
		w, ok := y[pos]
		if !ok || slices.Equal(v, w) {
			continue
		}
		if !found || pos < first {
			first, found = pos, true
		}
	}
	return first, found
}

// activeRules returns the rules whose temporal condition holds at pos
// given the prefix of seq.
func activeRules(rules []rule.Rule, seq sequence, pos int64) []rule.Rule {
	var active []rule.Rule
	for _, r := range rules {
		if holds(r, seq, pos) {
			active = append(active, r)
		}
	}
	return active
}

func holds(r rule.Rule, seq sequence, pos int64) bool {
	if !r.HasPrevious() {
		return pos == 1
	}
	prev, ok := seq[pos-1]
	if pos <= 1 || !ok || prev[condIdx] > int64(r.Previous) {
		return false
	}
	some := false
	for p := int64(1); p < pos; p++ {
		v, ok := seq[p]
		if !ok {
			continue
		}
		if v[someIdx] <= int64(r.SomePrevious) {
			some = true
		}
		if v[allIdx] > int64(r.AllPrevious) {
			return false
		}
	}
	return some
}

// prefers reports whether tuple t is preferred to u under the active
// rules, following at most levels rules.
func prefers(active []rule.Rule, t, u []int64, n, levels int) bool {
	if !slices.Equal(t[condIdx:condIdx+n], u[condIdx:condIdx+n]) {
		return false
	}
	// A chain only rewrites A2, so the A3 condition is checked on the
	// endpoints.
	reached := map[int64]bool{t[prefIdx]: true}
	for range levels {
		next := map[int64]bool{}
		for _, r := range active {
			if !reached[int64(r.Preferred)] || t[condIdx] > int64(r.Simple) || u[condIdx] > int64(r.Simple) {
				continue
			}
			if int64(r.NonPreferred) == u[prefIdx] {
				return true
			}
			next[int64(r.NonPreferred)] = true
		}
		if len(next) == 0 {
			return false
		}
		reached = next
	}
	return false
}
