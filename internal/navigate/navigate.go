// Package navigate resolves an identifier occurrence to its jump targets.
//
// Resolution is driven from a cursor position: the token index supplies the
// identifier under the cursor, the section index supplies its definition and
// the token index its other references. A single remaining target is a
// direct jump; multiple targets become an ordered candidate list with the
// definition first.
package navigate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/refstorm/internal/section"
	"github.com/dshills/refstorm/internal/token"
	"github.com/dshills/refstorm/internal/vfs"
)

// Common errors returned during resolution.
var (
	ErrNoIdentifier = errors.New("no identifier at position")
	ErrNoCandidates = errors.New("identifier has no known targets")
)

// CandidateKind distinguishes jump target types.
type CandidateKind int

const (
	// KindDefinition is the section header defining the identifier.
	KindDefinition CandidateKind = iota

	// KindReference is an identifier occurrence in some file.
	KindReference
)

// String returns the candidate kind name.
func (k CandidateKind) String() string {
	switch k {
	case KindDefinition:
		return "definition"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Candidate is one jump target for an identifier.
type Candidate struct {
	Kind CandidateKind
	File string
	Line int // 0-based
	Col  int // 0-based byte offset; 0 for definitions

	// Preview is the trimmed text of the target line, empty when the file
	// could not be read.
	Preview string
}

// Result holds the resolved targets for one identifier.
type Result struct {
	ID         string
	Candidates []Candidate
}

// Single returns the lone candidate when resolution is unambiguous.
func (r Result) Single() (Candidate, bool) {
	if len(r.Candidates) == 1 {
		return r.Candidates[0], true
	}
	return Candidate{}, false
}

// DefinitionSource supplies identifier definitions.
type DefinitionSource interface {
	Definition(id string) (section.Location, bool)
}

// ReferenceSource supplies identifier occurrences.
type ReferenceSource interface {
	MatchAt(path string, line, col int) (token.Match, bool)
	References(id string) []token.Ref
}

// Resolver resolves identifiers to jump targets.
type Resolver struct {
	defs DefinitionSource
	refs ReferenceSource
	src  vfs.ContentSource
}

// New creates a resolver over the given indices and content source.
func New(defs DefinitionSource, refs ReferenceSource, src vfs.ContentSource) *Resolver {
	return &Resolver{defs: defs, refs: refs, src: src}
}

// ResolveAt resolves the identifier under a cursor position. The occurrence
// at the request position itself is excluded from the candidates, so
// resolving on a lone reference jumps straight to the definition.
func (r *Resolver) ResolveAt(path string, line, col int) (Result, error) {
	match, ok := r.refs.MatchAt(path, line, col)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s:%d:%d", ErrNoIdentifier, path, line, col)
	}

	exclude := func(ref token.Ref) bool {
		return ref.File == path && ref.Range == match.Range
	}
	return r.resolve(match.ID, exclude)
}

// ResolveID resolves an identifier by name, with no occurrence excluded.
func (r *Resolver) ResolveID(id string) (Result, error) {
	return r.resolve(id, func(token.Ref) bool { return false })
}

// resolve assembles the ordered candidate list: definition first, then
// references sorted by file, line and column.
func (r *Resolver) resolve(id string, exclude func(token.Ref) bool) (Result, error) {
	result := Result{ID: id}

	if loc, ok := r.defs.Definition(id); ok {
		result.Candidates = append(result.Candidates, Candidate{
			Kind:    KindDefinition,
			File:    loc.File,
			Line:    loc.Line,
			Preview: r.preview(loc.File, loc.Line),
		})
	}

	for _, ref := range r.refs.References(id) {
		if exclude(ref) {
			continue
		}
		result.Candidates = append(result.Candidates, Candidate{
			Kind:    KindReference,
			File:    ref.File,
			Line:    ref.Range.Line,
			Col:     ref.Range.StartCol,
			Preview: r.preview(ref.File, ref.Range.Line),
		})
	}

	if len(result.Candidates) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoCandidates, id)
	}
	return result, nil
}

// preview extracts the trimmed text of one line.
func (r *Resolver) preview(path string, line int) string {
	if r.src == nil {
		return ""
	}
	data, err := r.src.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line])
}
