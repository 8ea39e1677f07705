// Package workspace enumerates and classifies the files eligible for
// section and reference scanning.
//
// Files are discovered by walking the workspace root through a VFS and
// matched against per-kind glob patterns, so the rest of the pipeline never
// touches the file system directly.
package workspace

import (
	"errors"
	"sort"

	"github.com/dshills/refstorm/internal/vfs"
)

// Common errors returned by workspace operations.
var (
	ErrNoRoot = errors.New("workspace root is not set")
)

// File is a discovered workspace file with its scanning kind.
type File struct {
	Path string
	Kind Kind
}

// Config holds workspace discovery settings.
type Config struct {
	// Root is the directory all scanning is relative to.
	Root string

	// ConfigGlobs match INI-style configuration files.
	ConfigGlobs []string

	// ScriptGlobs match scripting-language sources.
	ScriptGlobs []string

	// TypedScriptGlobs match superset-typed script sources.
	TypedScriptGlobs []string

	// TextGlobs match free text and markup files.
	TextGlobs []string

	// ExcludePatterns are glob patterns for paths to skip entirely.
	ExcludePatterns []string
}

// DefaultConfig returns the default discovery settings.
func DefaultConfig(root string) Config {
	return Config{
		Root:             root,
		ConfigGlobs:      []string{"**/*.ini", "**/*.cfg"},
		ScriptGlobs:      []string{"**/*.lua", "**/*.js"},
		TypedScriptGlobs: []string{"**/*.ts", "**/*.tsx"},
		TextGlobs:        []string{"**/*.txt", "**/*.md"},
		ExcludePatterns: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/vendor/**",
		},
	}
}

// Workspace discovers and classifies files under a root directory.
type Workspace struct {
	config Config
	fs     vfs.VFS
}

// New creates a workspace over the given file system.
func New(config Config, fsys vfs.VFS) *Workspace {
	return &Workspace{
		config: config,
		fs:     fsys,
	}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.config.Root
}

// KindOf classifies a path by the configured glob patterns.
// Configuration globs take precedence, then scripts, typed scripts and text.
func (w *Workspace) KindOf(path string) Kind {
	if w.Excluded(path) {
		return KindUnknown
	}

	switch {
	case matchAny(w.config.ConfigGlobs, path):
		return KindConfig
	case matchAny(w.config.ScriptGlobs, path):
		return KindScript
	case matchAny(w.config.TypedScriptGlobs, path):
		return KindTypedScript
	case matchAny(w.config.TextGlobs, path):
		return KindText
	default:
		return KindUnknown
	}
}

// Files returns all workspace files of the given kind, sorted by path.
func (w *Workspace) Files(kind Kind) ([]string, error) {
	all, err := w.AllFiles()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, f := range all {
		if f.Kind == kind {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}

// ScannableFiles returns every file that participates in reference scanning,
// sorted by path.
func (w *Workspace) ScannableFiles() ([]File, error) {
	return w.AllFiles()
}

// AllFiles walks the root and returns every classified file, sorted by path.
// Directories matching an exclude pattern are skipped without descending.
func (w *Workspace) AllFiles() ([]File, error) {
	if w.config.Root == "" {
		return nil, ErrNoRoot
	}

	var files []File
	if err := w.walk(w.config.Root, &files); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// walk recurses through directories collecting classified files.
// Unreadable directories are skipped, not fatal.
func (w *Workspace) walk(dir string, out *[]File) error {
	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		if dir == w.config.Root {
			return err
		}
		return nil
	}

	for _, entry := range entries {
		if entry.IsDir {
			if w.Excluded(entry.Path) {
				continue
			}
			if err := w.walk(entry.Path, out); err != nil {
				return err
			}
			continue
		}

		kind := w.KindOf(entry.Path)
		if !kind.Scannable() {
			continue
		}
		*out = append(*out, File{Path: entry.Path, Kind: kind})
	}
	return nil
}

// Excluded reports whether a path matches the exclude patterns.
func (w *Workspace) Excluded(path string) bool {
	for _, pattern := range w.config.ExcludePatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchAny matches a path against any of the patterns.
func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}
