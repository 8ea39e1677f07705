package workspace

import (
	"path/filepath"
	"strings"
)

// matchPattern matches a slash-separated path against a glob pattern.
// Patterns may contain ** segments that match any number of path segments;
// a pattern without a slash matches against the base name only.
func matchPattern(pattern, path string) bool {
	pattern = filepath.ToSlash(pattern)
	path = filepath.ToSlash(path)

	if !strings.Contains(pattern, "/") && !strings.Contains(pattern, "**") {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	pSegs := splitSegments(pattern)
	tSegs := splitSegments(path)
	return matchSegments(pSegs, tSegs)
}

// matchSegments matches pattern segments against path segments.
// A "**" segment matches zero or more path segments.
func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	if pattern[0] == "**" {
		for i := 0; i <= len(path); i++ {
			if matchSegments(pattern[1:], path[i:]) {
				return true
			}
		}
		return false
	}

	if len(path) == 0 {
		return false
	}

	matched, err := filepath.Match(pattern[0], path[0])
	if err != nil || !matched {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}

// splitSegments splits a slash-separated path into segments, dropping
// leading and trailing slashes.
func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
