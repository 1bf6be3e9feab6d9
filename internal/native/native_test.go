package native

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

func TestQuery(t *testing.T) {
	s := schema.New(6, 1)
	rules := rule.Params{Count: 2, Levels: 1, DomainMax: 10}
	seq := "SEQUENCE IDENTIFIED BY A1 [RANGE 5 SECOND, SLIDE 2 SECOND]\nFROM s"
	prefs := "IF (A3 <= 5) AND FIRST THEN A2 = 0 BETTER A2 = 1[A6]\nAND\n" +
		"IF (A3 <= 5) AND PREVIOUS (A3 <= 5) AND SOME PREVIOUS (A4 <= 2) AND ALL PREVIOUS (A5 <= 7) THEN A2 = 0 BETTER A2 = 1[A6]"

	tests := []struct {
		name string
		spec operator.Spec
		want string
	}{
		{"seq", operator.NewSeq(5, 2), "SELECT " + seq + ";"},
		{"conseq", operator.NewConseq(5, 2), "SELECT SUBSEQUENCE CONSECUTIVE TIMESTAMP FROM " + seq + ";"},
		{"bestseq", operator.NewBestSeq(5, 2, rules), "SELECT " + seq + " TEMPORAL PREFERENCES\n" + prefs + ";"},
		{"topkseq", operator.NewTopKSeq(5, 2, rules, 3), "SELECT TOP(3) " + seq + " TEMPORAL PREFERENCES\n" + prefs + ";"},
		{"minseq", operator.NewMinSeq(5, 2, 4), "SELECT " + seq + "\nWHERE MINIMUM LENGTH IS 4;"},
		{"maxseq", operator.NewMaxSeq(5, 2, 4), "SELECT " + seq + "\nWHERE MAXIMUM LENGTH IS 4;"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Query(tc.spec, s)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQuery_UnknownKind(t *testing.T) {
	_, err := Query(operator.Spec{Kind: operator.Kind(42)}, schema.New(5, 0))
	assert.Error(t, err)
}

func TestRule_NoIndifferent(t *testing.T) {
	r := rule.Rule{Kind: rule.First, Preferred: 2, NonPreferred: 3, Simple: 4}
	assert.Equal(t, "IF (A3 <= 4) AND FIRST THEN A2 = 2 BETTER A2 = 3", Rule(r, schema.New(5, 0)))
}

func TestRule_TrailingIndifferentAttributes(t *testing.T) {
	r := rule.Rule{Kind: rule.First, Preferred: 0, NonPreferred: 1, Simple: 4, Indifferent: 2}
	assert.Equal(t, "IF (A3 <= 4) AND FIRST THEN A2 = 0 BETTER A2 = 1[A6, A7]", Rule(r, schema.New(7, 2)))
}

func TestPreferences_LevelBlocks(t *testing.T) {
	spec := operator.NewBestSeq(3, 1, rule.Params{Count: 4, Levels: 2, DomainMax: 8})
	text := Preferences(spec, schema.New(5, 0))
	assert.Contains(t, text, "THEN A2 = 0 BETTER A2 = 1")
	assert.Contains(t, text, "THEN A2 = 1 BETTER A2 = 2")
	assert.Equal(t, 3, strings.Count(text, "\nAND\n"))
}

