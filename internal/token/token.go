// Package token maintains the cross-file index of references to known
// section identifiers.
//
// The index records every accepted occurrence of an identifier in every
// scannable file as a (line, start-column, end-column) range. It is not a
// parser: occurrences are found by substring matching with file-kind
// specific acceptance rules.
package token

import (
	"sort"
	"sync"

	"github.com/dshills/refstorm/internal/workspace"
)

// Range is a matched identifier occurrence within a line.
// Columns are byte offsets; EndCol is exclusive.
type Range struct {
	Line     int
	StartCol int
	EndCol   int
}

// Contains reports whether the position lies within the range.
func (r Range) Contains(line, col int) bool {
	return line == r.Line && col >= r.StartCol && col < r.EndCol
}

// Match is an identifier occurrence.
type Match struct {
	ID    string
	Range Range
}

// Ref is an identifier occurrence in a named file.
type Ref struct {
	File  string
	Range Range
}

// IDSource supplies the current identifier set.
// The section index satisfies it.
type IDSource interface {
	AllIDs() []string
}

// Index maps files to their identifier occurrences.
// Writes are serialized by the refresh coordinator; reads are safe at any
// time. The whole index is discarded whenever the identifier set changes,
// because an id change can alter which substrings match in any file, and is
// then rebuilt lazily file by file.
type Index struct {
	mu sync.RWMutex

	// files: path -> id -> ordered matched ranges
	files map[string]map[string][]Range

	// fingerprints: path -> last-scanned content fingerprint
	fingerprints map[string]uint64

	ids IDSource
}

// New creates a token index over the given identifier source.
func New(ids IDSource) *Index {
	return &Index{
		files:        make(map[string]map[string][]Range),
		fingerprints: make(map[string]uint64),
		ids:          ids,
	}
}

// UpdateFile rescans one file's content against the current identifier set.
// If the content fingerprint is unchanged and the file is already indexed,
// the call is a no-op and returns false.
func (i *Index) UpdateFile(path string, content []byte, kind workspace.Kind) bool {
	fp := fingerprint(content)

	i.mu.Lock()
	defer i.mu.Unlock()

	if prev, ok := i.fingerprints[path]; ok && prev == fp {
		if _, indexed := i.files[path]; indexed {
			return false
		}
	}

	i.files[path] = scanContent(content, byLengthDesc(i.ids.AllIDs()), kind)
	i.fingerprints[path] = fp
	return true
}

// InvalidateAll discards the entire index. Files are rebuilt lazily the next
// time each is scanned or rendered.
func (i *Index) InvalidateAll() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.files = make(map[string]map[string][]Range)
	i.fingerprints = make(map[string]uint64)
}

// Remove drops all state for a file.
func (i *Index) Remove(path string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.files, path)
	delete(i.fingerprints, path)
}

// FileTokens returns the id -> ranges mapping for a file.
// The second return is false when the file has no entry at all, which is
// distinct from a file indexed with zero matches.
func (i *Index) FileTokens(path string) (map[string][]Range, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	tokens, ok := i.files[path]
	if !ok {
		return nil, false
	}

	out := make(map[string][]Range, len(tokens))
	for id, ranges := range tokens {
		rs := make([]Range, len(ranges))
		copy(rs, ranges)
		out[id] = rs
	}
	return out, true
}

// HasFile reports whether the file has an index entry.
func (i *Index) HasFile(path string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	_, ok := i.files[path]
	return ok
}

// MatchAt returns the identifier occurrence containing the position, if any.
func (i *Index) MatchAt(path string, line, col int) (Match, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	tokens, ok := i.files[path]
	if !ok {
		return Match{}, false
	}

	for id, ranges := range tokens {
		for _, r := range ranges {
			if r.Contains(line, col) {
				return Match{ID: id, Range: r}, true
			}
		}
	}
	return Match{}, false
}

// References returns every indexed occurrence of an identifier, ordered by
// file, line and column.
func (i *Index) References(id string) []Ref {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var refs []Ref
	for path, tokens := range i.files {
		for _, r := range tokens[id] {
			refs = append(refs, Ref{File: path, Range: r})
		}
	}

	sort.Slice(refs, func(a, b int) bool {
		if refs[a].File != refs[b].File {
			return refs[a].File < refs[b].File
		}
		if refs[a].Range.Line != refs[b].Range.Line {
			return refs[a].Range.Line < refs[b].Range.Line
		}
		return refs[a].Range.StartCol < refs[b].Range.StartCol
	})
	return refs
}

// FileCount returns the number of indexed files.
func (i *Index) FileCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.files)
}

// byLengthDesc sorts identifiers by descending length so a longer id is
// matched in preference to a shorter id that is one of its substrings.
// Equal lengths sort lexically for determinism.
func byLengthDesc(ids []string) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(a, b int) bool {
		if len(sorted[a]) != len(sorted[b]) {
			return len(sorted[a]) > len(sorted[b])
		}
		return sorted[a] < sorted[b]
	})
	return sorted
}

// fingerprint computes a cheap content fingerprint (FNV-1a).
func fingerprint(data []byte) uint64 {
	var hash uint64 = 14695981039346656037
	for i := 0; i < len(data); i++ {
		hash ^= uint64(data[i])
		hash *= 1099511628211
	}
	return hash
}
