// Package assembler turns a compiled plan into the engine's registration
// document and the list of query files it refers to.
package assembler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/schema"
)

// Relation names registered before any query.
const (
	StreamRelation     = "s"
	CompletionRelation = "tup"
)

// QueryExt is the extension of query files.
const QueryExt = ".cql"

// Separator divides relation registrations from query registrations.
var Separator = strings.Repeat("#", 80)

// Paths locate the files a document refers to.
type Paths struct {
	// Stream is the CSV file of the input stream.
	Stream string
	// Completion is the tup CSV file. Required when the plan reads tup.
	Completion string
	// QueryDir holds one <node>.cql file per plan node.
	QueryDir string
	// Output, when set, is attached to the final node.
	Output string
}

// File is a query file to be written.
type File struct {
	Path string
	Body string
}

// Document is an environment file plus its query files.
type Document struct {
	Text  string
	Files []File
}

// Errors returned by Assemble.
var (
	ErrMissingPath = errors.New("missing path")
	ErrEmptyPlan   = errors.New("plan has no nodes")
)

// Assemble builds the registration document of p. It performs no I/O.
func Assemble(p *plan.Plan, s schema.Schema, paths Paths) (*Document, error) {
	if p == nil || len(p.Nodes) == 0 {
		return nil, ErrEmptyPlan
	}
	if paths.Stream == "" {
		return nil, fmt.Errorf("%w: stream", ErrMissingPath)
	}
	if paths.QueryDir == "" {
		return nil, fmt.Errorf("%w: query directory", ErrMissingPath)
	}
	readsTup := p.Reads(CompletionRelation)
	if readsTup && paths.Completion == "" {
		return nil, fmt.Errorf("%w: %s table", ErrMissingPath, CompletionRelation)
	}

	sections := []string{register("STREAM", StreamRelation, s.Columns(), paths.Stream)}
	if readsTup {
		sections = append(sections, register("TABLE", CompletionRelation, schema.CompletionColumns(), paths.Completion))
	}
	sections = append(sections, Separator)

	doc := &Document{Files: make([]File, 0, len(p.Nodes))}
	for _, n := range p.Nodes {
		file := filepath.Join(paths.QueryDir, n.Name+QueryExt)
		entry := fmt.Sprintf("REGISTER QUERY %s\nINPUT '%s'", n.Name, file)
		if n.Name == p.Final && paths.Output != "" {
			entry += fmt.Sprintf("\nOUTPUT '%s'", paths.Output)
		}
		sections = append(sections, entry+";")
		doc.Files = append(doc.Files, File{Path: file, Body: n.Body + "\n"})
	}

	doc.Text = strings.Join(sections, "\n\n") + "\n"
	return doc, nil
}

func register(kind, name string, columns []schema.Column, input string) string {
	decl := make([]string, len(columns))
	for i, c := range columns {
		decl[i] = c.Name + " " + c.Type
	}
	return fmt.Sprintf("REGISTER %s %s (%s)\nINPUT '%s';", kind, name, strings.Join(decl, ", "), input)
}
