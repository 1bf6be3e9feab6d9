package relalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Portable(t *testing.T) {
	q := &Except{
		Left:  SelectAll("w1"),
		Right: SelectAll("p1"),
	}
	result := Validate(q)
	assert.True(t, result.IsPortable)
	assert.Empty(t, result.Warnings)
}

func TestValidate_StreamConstructs(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{
			name: "window",
			query: &Select{
				Columns: Cols(Star{}),
				From:    []TableRef{{Name: "s", Window: &Window{Kind: WindowRange, Range: 1}}},
			},
		},
		{name: "rstream", query: &Rstream{From: "rpos"}},
		{name: "raw", query: &Raw{Text: "SELECT SEQUENCE IDENTIFIED BY A1 FROM s;"}},
		{
			name: "window inside union",
			query: &Union{Branches: []Query{
				SelectAll("a"),
				&Select{Columns: Cols(Star{}), From: []TableRef{{Name: "s", Window: &Window{Kind: WindowNow}}}},
			}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.query)
			assert.False(t, result.IsPortable)
			assert.Len(t, result.Warnings, 1)
		})
	}
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(SelectAll("z")))

	bad := []Query{
		nil,
		&Select{From: []TableRef{From("z")}},
		&Select{Columns: Cols(Star{})},
		&Union{},
		&Except{Left: SelectAll("a")},
		&Rstream{},
		&Raw{},
	}
	for _, q := range bad {
		assert.ErrorIs(t, Check(q), ErrMalformed, "%#v", q)
	}
}

func TestRelations(t *testing.T) {
	q := &Union{Branches: []Query{
		&Select{
			Columns: Cols(Q("p", "_pos")),
			From:    []TableRef{From("z"), FromAs("p", "pc")},
		},
		&Except{Left: SelectAll("z"), Right: SelectAll("tup")},
		&Raw{Text: "x", Reads: []string{"s"}},
	}}
	assert.Equal(t, []string{"z", "p", "tup", "s"}, Relations(q))
}

func TestAllOf_Flattens(t *testing.T) {
	a := AllOf(Equal(C("a"), Int(1)), AllOf(Equal(C("b"), Int(2)), Equal(C("c"), Int(3))))
	assert.Len(t, a.Terms, 3)
}

func TestUnionOf_Single(t *testing.T) {
	q := SelectAll("d1")
	assert.Same(t, q, UnionOf(q))
	assert.IsType(t, &Union{}, UnionOf(q, SelectAll("d2")))
}
