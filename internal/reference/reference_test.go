package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

func tuple(ts int64, values ...int64) Tuple {
	return Tuple{TS: ts, Values: values}
}

func TestEvaluate_Seq(t *testing.T) {
	window := []Tuple{
		tuple(0, 1, 10),
		tuple(1, 1, 11),
		tuple(1, 2, 20),
		tuple(3, 1, 12),
	}
	got, err := Evaluate(operator.NewSeq(2, 1), schema.New(2, 0), window)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{
		{1, 1, 10},
		{1, 2, 20},
		{2, 1, 11},
	}, got)
}

func TestEvaluate_Conseq(t *testing.T) {
	var window []Tuple
	for _, ts := range []int64{0, 1, 2, 5, 6} {
		window = append(window, tuple(ts, 7, ts*10))
	}
	got, err := Evaluate(operator.NewConseq(5, 1), schema.New(2, 0), window)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{
		{1, 7, 0},
		{1, 7, 50},
		{2, 7, 10},
		{2, 7, 60},
		{3, 7, 20},
	}, got)
}

func TestEvaluate_ConseqWithoutGaps(t *testing.T) {
	window := []Tuple{tuple(3, 1, 0), tuple(4, 1, 1), tuple(5, 1, 2)}
	z := Sequences(window, 3)
	assert.ElementsMatch(t, z, Consecutive(z))
}

func TestEvaluate_LengthFilters(t *testing.T) {
	window := []Tuple{
		tuple(0, 1, 0), tuple(1, 1, 0), tuple(2, 1, 0),
		tuple(2, 2, 5),
	}
	s := schema.New(2, 0)

	got, err := Evaluate(operator.NewMinSeq(3, 1, 2), s, window)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 1, 0}, {2, 1, 0}, {3, 1, 0}}, got)

	got, err = Evaluate(operator.NewMaxSeq(3, 1, 2), s, window)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 2, 5}}, got)
}

func TestEvaluate_BestSeqFirstRule(t *testing.T) {
	s := schema.New(5, 0)
	spec := operator.NewBestSeq(1, 1, rule.Params{Count: 2, Levels: 1, DomainMax: 4})

	window := []Tuple{
		tuple(0, 1, 0, 0, 0, 0),
		tuple(0, 2, 1, 0, 0, 0),
	}
	got, err := Evaluate(spec, s, window)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 1, 0, 0, 0, 0}}, got)
}

func TestEvaluate_BestSeqIncomparable(t *testing.T) {
	s := schema.New(5, 0)
	spec := operator.NewBestSeq(1, 1, rule.Params{Count: 2, Levels: 1, DomainMax: 4})

	// A2 = 3 is not mentioned by any rule.
	window := []Tuple{
		tuple(0, 1, 0, 0, 0, 0),
		tuple(0, 2, 3, 0, 0, 0),
	}
	got, err := Evaluate(spec, s, window)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEvaluate_BestSeqCeterisParibus(t *testing.T) {
	spec := operator.NewBestSeq(1, 1, rule.Params{Count: 2, Levels: 1, DomainMax: 4})

	// The tuples differ on A4, so they are not comparable.
	window := []Tuple{
		tuple(0, 1, 0, 0, 0, 0),
		tuple(0, 2, 1, 0, 1, 0),
	}
	got, err := Evaluate(spec, schema.New(5, 0), window)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Unless A4..A5 are indifferent.
	got, err = Evaluate(spec, schema.New(5, 2), window)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 1, 0, 0, 0, 0}}, got)
}

// With domain 4 the rules read
//
//	IF (A3 <= 2) AND FIRST THEN A2 = 0 BETTER A2 = 1
//	IF (A3 <= 2) AND PREVIOUS (A3 <= 2) AND SOME PREVIOUS (A4 <= 1)
//	   AND ALL PREVIOUS (A5 <= 3) THEN A2 = 0 BETTER A2 = 1
//
// 1 and 3 beat 2 at position 1 by the FIRST rule. 3 beats 1 at position 2
// by the PREVIOUS rule. 4 differs on A3 from everyone at position 1. 5 and
// 6 differ at position 2, but their prefix fails SOME PREVIOUS.
func TestEvaluate_BestSeqRuleText(t *testing.T) {
	spec := operator.NewBestSeq(2, 1, rule.Params{Count: 2, Levels: 1, DomainMax: 4})
	window := []Tuple{
		tuple(0, 1, 0, 1, 0, 0), tuple(1, 1, 1, 0, 0, 0),
		tuple(0, 2, 1, 1, 0, 0), tuple(1, 2, 2, 0, 0, 0),
		tuple(0, 3, 0, 1, 0, 0), tuple(1, 3, 0, 0, 0, 0),
		tuple(0, 4, 0, 3, 0, 0),
		tuple(0, 5, 0, 1, 2, 0), tuple(1, 5, 0, 0, 0, 0),
		tuple(0, 6, 0, 1, 2, 0), tuple(1, 6, 1, 0, 0, 0),
	}
	got, err := Evaluate(spec, schema.New(5, 0), window)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{
		{1, 3, 0, 1, 0, 0},
		{1, 4, 0, 3, 0, 0},
		{1, 5, 0, 1, 2, 0},
		{1, 6, 0, 1, 2, 0},
		{2, 3, 0, 0, 0, 0},
		{2, 5, 0, 0, 0, 0},
		{2, 6, 1, 0, 0, 0},
	}, got)
}

func TestBest_AllPreviousViolated(t *testing.T) {
	s := schema.New(5, 0)
	r := rule.Rule{
		Kind: rule.Previous, Preferred: 0, NonPreferred: 1,
		Simple: 2, Previous: 2, SomePrevious: 1, AllPrevious: 1,
	}
	// Position 1 breaks ALL PREVIOUS (A5 = 2), so position 3 is never
	// decided even though position 2 satisfies every condition.
	window := []Tuple{
		tuple(0, 1, 0, 0, 0, 2), tuple(0, 2, 0, 0, 0, 2),
		tuple(1, 1, 0, 0, 0, 0), tuple(1, 2, 0, 0, 0, 0),
		tuple(2, 1, 0, 0, 0, 0), tuple(2, 2, 1, 0, 0, 0),
	}
	assert.Len(t, Best(Sequences(window, 3), s, []rule.Rule{r}, 1), 6)

	window[0] = tuple(0, 1, 0, 0, 0, 1)
	window[1] = tuple(0, 2, 0, 0, 0, 1)
	best := Best(Sequences(window, 3), s, []rule.Rule{r}, 1)
	require.Len(t, best, 3)
	for _, row := range best {
		assert.Equal(t, int64(1), row.ID)
	}
}

func TestBest_TransitiveLevels(t *testing.T) {
	s := schema.New(5, 0)
	rules := []rule.Rule{
		{Kind: rule.First, Preferred: 0, NonPreferred: 1, Simple: 3},
		{Kind: rule.First, Preferred: 1, NonPreferred: 2, Simple: 3},
	}
	z := Sequences([]Tuple{
		tuple(0, 1, 0, 0, 0, 0),
		tuple(0, 2, 2, 0, 0, 0),
	}, 1)

	// One level only relates adjacent values.
	assert.Len(t, Best(z, s, rules, 1), 2)

	// Two levels chain 0 > 1 > 2.
	best := Best(z, s, rules, 2)
	require.Len(t, best, 1)
	assert.Equal(t, int64(1), best[0].ID)
}

func TestBest_PreviousRule(t *testing.T) {
	s := schema.New(5, 0)
	r := rule.Rule{
		Kind: rule.Previous, Preferred: 0, NonPreferred: 1,
		Simple: 2, Previous: 2, SomePrevious: 1, AllPrevious: 3,
	}
	// Both sequences share position 1 and differ at position 2.
	shared := []int64{5, 0, 0, 0}
	window := []Tuple{
		tuple(0, append([]int64{1}, shared...)...),
		tuple(0, append([]int64{2}, shared...)...),
		tuple(1, 1, 0, 0, 0, 0),
		tuple(1, 2, 1, 0, 0, 0),
	}
	z := Sequences(window, 2)
	best := Best(z, s, []rule.Rule{r}, 1)
	for _, row := range best {
		assert.Equal(t, int64(1), row.ID)
	}
	assert.Len(t, best, 2)

	// Violating SOME PREVIOUS at position 1 deactivates the rule.
	shared[2] = 3
	window[0] = tuple(0, append([]int64{1}, shared...)...)
	window[1] = tuple(0, append([]int64{2}, shared...)...)
	assert.Len(t, Best(Sequences(window, 2), s, []rule.Rule{r}, 1), 4)
}

func TestEvaluate_TopKUnsupported(t *testing.T) {
	spec := operator.NewTopKSeq(1, 1, rule.Params{Count: 2, Levels: 1, DomainMax: 4}, 1)
	_, err := Evaluate(spec, schema.New(5, 0), nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, [][]int64{{1, 2}, {2, 1}}, Canonical([][]int64{{2, 1}, {1, 2}, {2, 1}}))
	assert.Equal(t, [][]int64{}, Canonical(nil))
}
