package token

import (
	"strings"

	"github.com/dshills/refstorm/internal/section"
	"github.com/dshills/refstorm/internal/workspace"
)

// scanContent scans every line for occurrences of the candidate identifiers.
// Candidates must already be sorted by descending length. Scanning is
// left-to-right: at each offset the longest matching candidate wins, and
// after a match at offset k the next search starts at k+1.
//
// Longest-match-first is not a true non-overlapping partition: an id that is
// a literal substring of another id can be starved of matches at offsets the
// longer id occupies. That is an accepted trade-off of this scanner.
func scanContent(content []byte, candidates []string, kind workspace.Kind) map[string][]Range {
	matches := make(map[string][]Range)
	if len(candidates) == 0 {
		return matches
	}

	for lineNum, line := range splitLines(content) {
		// In configuration files a header line declares an id; occurrences on
		// it are never references.
		if kind == workspace.KindConfig && section.IsHeaderLine(line) {
			continue
		}

		for col := 0; col < len(line); col++ {
			for _, id := range candidates {
				if id == "" || col+len(id) > len(line) {
					continue
				}
				if line[col:col+len(id)] != id {
					continue
				}
				if !accepted(line, col, col+len(id), kind) {
					continue
				}
				matches[id] = append(matches[id], Range{
					Line:     lineNum,
					StartCol: col,
					EndCol:   col + len(id),
				})
				break
			}
		}
	}
	return matches
}

// accepted applies the file kind's acceptance rule to an occurrence at
// [start, end) within line.
func accepted(line string, start, end int, kind workspace.Kind) bool {
	switch kind {
	case workspace.KindConfig, workspace.KindText:
		return true
	case workspace.KindScript:
		return bounded(line, start, end, `'"`)
	case workspace.KindTypedScript:
		return bounded(line, start, end, "'\"`")
	default:
		return false
	}
}

// bounded reports whether the occurrence is immediately preceded and
// followed by one of the delimiter characters. Occurrences touching the
// line bounds have no delimiter and are rejected.
func bounded(line string, start, end int, delims string) bool {
	if start == 0 || end >= len(line) {
		return false
	}
	return strings.IndexByte(delims, line[start-1]) >= 0 &&
		strings.IndexByte(delims, line[end]) >= 0
}

// splitLines splits content into lines without trailing newline bytes.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	s := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.Split(s, "\n")
}
