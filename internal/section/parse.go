package section

import (
	"regexp"
	"strings"
)

// headerRE matches a full trimmed header line of the exact shape
// "[identifier]". Partial or malformed bracket lines never match and are
// treated as ordinary content.
var headerRE = regexp.MustCompile(`^\[([A-Za-z0-9_]+)\]$`)

// HeaderID returns the identifier declared by a header line, if the line
// (trimmed) is a well-formed header.
func HeaderID(line string) (string, bool) {
	m := headerRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsHeaderLine reports whether the trimmed line is a well-formed header.
func IsHeaderLine(line string) bool {
	_, ok := HeaderID(line)
	return ok
}

// parseSections parses configuration content into section records.
// Each header starts a new record; subsequent non-blank lines up to the next
// header or end of file become its content. A later duplicate header within
// the same file replaces the earlier record.
func parseSections(path string, content []byte) []*Record {
	lines := splitLines(content)

	var records []*Record
	byID := make(map[string]int)
	var current *Record

	for lineNum, line := range lines {
		if id, ok := HeaderID(line); ok {
			rec := &Record{
				ID:       id,
				Location: Location{File: path, Line: lineNum},
			}
			if prev, dup := byID[id]; dup {
				records[prev] = rec
			} else {
				byID[id] = len(records)
				records = append(records, rec)
			}
			current = rec
			continue
		}

		if current == nil {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		current.Content = append(current.Content, line)
	}

	return records
}

// splitLines splits content into lines without the trailing newline bytes.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	s := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.Split(s, "\n")
}
