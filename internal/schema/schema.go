// Package schema describes the attribute layout of a synthetic stream.
//
// Attribute names are position-stable: the k-th attribute is always
// named A<k>. The layout used by every compiler is fixed:
//
//	A1          sequence identifier
//	A2          preference attribute (compared by rules)
//	A3          simple / PREVIOUS condition attribute
//	A4          SOME PREVIOUS condition attribute
//	A5          ALL PREVIOUS condition attribute
//	A(n-i+1)..  indifferent attributes (i trailing attributes)
//
// Every attribute is an INTEGER. Streams additionally carry the reserved
// timestamp attribute and tables the reserved flag attribute.
package schema

import "fmt"

// Reserved attribute names understood by the engine.
const (
	TimestampAttribute = "_TS"
	FlagAttribute      = "_FL"
)

// Integer is the only semantic type used by generated streams.
const Integer = "INTEGER"

// Fixed attribute roles.
const (
	IdentifierIndex   = 1
	PreferenceIndex   = 2
	ConditionIndex    = 3
	SomePreviousIndex = 4
	AllPreviousIndex  = 5
)

// Schema is an N-attribute stream layout.
type Schema struct {
	Attributes  int `json:"attributes" yaml:"attributes"`
	Identifiers int `json:"identifiers" yaml:"identifiers"`
	Indifferent int `json:"indifferent" yaml:"indifferent"`
}

// New returns a schema with a single identifier attribute.
func New(attributes, indifferent int) Schema {
	return Schema{Attributes: attributes, Identifiers: 1, Indifferent: indifferent}
}

// Name returns the name of the k-th attribute (1-based).
func Name(k int) string {
	return fmt.Sprintf("A%d", k)
}

// Identifier is the name of the sequence identifier attribute.
func (s Schema) Identifier() string { return Name(IdentifierIndex) }

// Names returns A1..An.
func (s Schema) Names() []string {
	return s.rangeNames(1, s.Attributes)
}

// ValueNames returns every attribute except the identifier (A2..An).
func (s Schema) ValueNames() []string {
	return s.rangeNames(PreferenceIndex, s.Attributes)
}

// NonCompletedNames returns the value attributes that the tup completion
// table does not provide (A4..An).
func (s Schema) NonCompletedNames() []string {
	return s.rangeNames(SomePreviousIndex, s.Attributes)
}

// Comparable returns the ceteris-paribus attributes: every attribute
// except the identifier, the preference attribute and the trailing
// indifferent attributes. The list is empty when nothing is left to
// compare, in which case ceteris paribus holds vacuously.
func (s Schema) Comparable() []string {
	return s.rangeNames(ConditionIndex, s.Attributes-s.Indifferent)
}

// IndifferentNames returns the trailing indifferent attributes.
func (s Schema) IndifferentNames() []string {
	return s.rangeNames(s.Attributes-s.Indifferent+1, s.Attributes)
}

func (s Schema) rangeNames(from, to int) []string {
	names := []string{}
	for k := from; k <= to; k++ {
		names = append(names, Name(k))
	}
	return names
}

// Column is a declared attribute with its type.
type Column struct {
	Name string
	Type string
}

// Columns returns the declaration list of a stream with this schema.
func (s Schema) Columns() []Column {
	cols := make([]Column, 0, s.Attributes)
	for _, name := range s.Names() {
		cols = append(cols, Column{Name: name, Type: Integer})
	}
	return cols
}

// CompletionColumns returns the declaration list of the tup table.
func CompletionColumns() []Column {
	return []Column{
		{Name: Name(PreferenceIndex), Type: Integer},
		{Name: Name(ConditionIndex), Type: Integer},
	}
}
