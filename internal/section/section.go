// Package section maintains the index of named sections declared in
// configuration files.
//
// A section is declared by a header line whose entire trimmed text has the
// exact shape "[identifier]". The lines that follow, up to the next header
// or end of file, form the section's content. The index owns one live record
// per identifier; when the same identifier is declared in two files, the
// most recently rescanned file's record wins.
package section

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/dshills/refstorm/internal/vfs"
	"github.com/dshills/refstorm/internal/workspace"
)

// Location identifies a definition site.
type Location struct {
	File string
	Line int // 0-based line of the header
}

// Record is a live section definition.
type Record struct {
	ID       string
	Location Location
	// Content holds the consecutive non-blank lines following the header,
	// in order, up to the next header or end of file.
	Content []string
}

// Index maps section identifiers to their definitions.
// Writes are expected to be serialized by the refresh coordinator; reads are
// safe at any time.
type Index struct {
	mu sync.RWMutex

	// records: id -> live record
	records map[string]*Record

	// owners: file -> ids declared by that file
	owners map[string][]string

	// fingerprints: file -> last-scanned content fingerprint
	fingerprints map[string]uint64

	ws     *workspace.Workspace
	src    vfs.ContentSource
	logger *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) {
		i.logger = logger
	}
}

// New creates a section index over the given workspace and content source.
func New(ws *workspace.Workspace, src vfs.ContentSource, opts ...Option) *Index {
	idx := &Index{
		records:      make(map[string]*Record),
		owners:       make(map[string][]string),
		fingerprints: make(map[string]uint64),
		ws:           ws,
		src:          src,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// RescanFile re-parses one configuration file's content.
// If the content fingerprint is unchanged from the last scan, the call is a
// no-op and returns false. Otherwise all records owned by the file are
// replaced atomically and the new fingerprint is stored.
func (i *Index) RescanFile(path string, content []byte) bool {
	fp := fingerprint(content)

	i.mu.Lock()
	defer i.mu.Unlock()

	if prev, ok := i.fingerprints[path]; ok && prev == fp {
		return false
	}

	i.dropFileLocked(path)

	records := parseSections(path, content)
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		i.records[rec.ID] = rec
		ids = append(ids, rec.ID)
	}
	i.owners[path] = ids
	i.fingerprints[path] = fp
	return true
}

// RescanWorkspace rescans every configuration file in the workspace.
// It returns true if any file's definitions changed. Unreadable files are
// logged and skipped; files that disappeared since the last scan are
// dropped.
func (i *Index) RescanWorkspace() (bool, error) {
	paths, err := i.ws.Files(workspace.KindConfig)
	if err != nil {
		return false, err
	}

	changed := false
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		seen[path] = true
		content, err := i.src.ReadFile(path)
		if err != nil {
			i.logger.Warn("skipping unreadable config file", "path", path, "error", err)
			continue
		}
		if i.RescanFile(path, content) {
			changed = true
		}
	}

	// Drop records owned by files no longer present.
	i.mu.Lock()
	for path := range i.fingerprints {
		if !seen[path] {
			i.dropFileLocked(path)
			delete(i.fingerprints, path)
			changed = true
		}
	}
	i.mu.Unlock()

	return changed, nil
}

// RemoveFile drops all records owned by a deleted file.
// Returns true if the file owned any state.
func (i *Index) RemoveFile(path string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, hadFP := i.fingerprints[path]
	_, hadOwner := i.owners[path]
	i.dropFileLocked(path)
	delete(i.fingerprints, path)
	return hadFP || hadOwner
}

// AllIDs returns every known section identifier, sorted.
func (i *Index) AllIDs() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	ids := make([]string, 0, len(i.records))
	for id := range i.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Definition returns the definition location for an identifier.
func (i *Index) Definition(id string) (Location, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	rec, ok := i.records[id]
	if !ok {
		return Location{}, false
	}
	return rec.Location, true
}

// Content returns the content lines for an identifier.
func (i *Index) Content(id string) ([]string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	rec, ok := i.records[id]
	if !ok {
		return nil, false
	}
	out := make([]string, len(rec.Content))
	copy(out, rec.Content)
	return out, true
}

// IDCount returns the number of live section records.
func (i *Index) IDCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

// dropFileLocked removes all records owned by a file (caller holds lock).
// A record is only removed when the file is still its owner; a later scan of
// another file may have taken ownership of the same id.
func (i *Index) dropFileLocked(path string) {
	for _, id := range i.owners[path] {
		if rec, ok := i.records[id]; ok && rec.Location.File == path {
			delete(i.records, id)
		}
	}
	delete(i.owners, path)
}

// fingerprint computes a cheap content fingerprint (FNV-1a).
// A collision causes a missed rescan, never corruption.
func fingerprint(data []byte) uint64 {
	var hash uint64 = 14695981039346656037
	for i := 0; i < len(data); i++ {
		hash ^= uint64(data[i])
		hash *= 1099511628211
	}
	return hash
}
