package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNames(t *testing.T) {
	s := New(5, 0)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "A5"}, s.Names())
	assert.Equal(t, []string{"A2", "A3", "A4", "A5"}, s.ValueNames())
	assert.Equal(t, []string{"A4", "A5"}, s.NonCompletedNames())
	assert.Equal(t, "A1", s.Identifier())
}

func TestComparable(t *testing.T) {
	tests := []struct {
		name        string
		attributes  int
		indifferent int
		want        []string
	}{
		{"ten with two indifferent", 10, 2, []string{"A3", "A4", "A5", "A6", "A7", "A8"}},
		{"no indifferent", 5, 0, []string{"A3", "A4", "A5"}},
		{"nothing left", 5, 3, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(tc.attributes, tc.indifferent)
			assert.Equal(t, tc.want, s.Comparable())
		})
	}
}

func TestComparableLength(t *testing.T) {
	s := New(10, 2)
	assert.Len(t, s.Comparable(), 10-2-2)
	assert.Equal(t, []string{"A9", "A10"}, s.IndifferentNames())
}

func TestColumns(t *testing.T) {
	cols := New(3, 0).Columns()
	assert.Equal(t, []Column{{"A1", Integer}, {"A2", Integer}, {"A3", Integer}}, cols)
	assert.Equal(t, []Column{{"A2", Integer}, {"A3", Integer}}, CompletionColumns())
}
