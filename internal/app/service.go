// Package app wires the indexing pipeline together and exposes the
// editor-facing API: identifier queries, navigation, decorations, and the
// buffer and file-change entry points that drive refreshes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/refstorm/internal/config"
	"github.com/dshills/refstorm/internal/decoration"
	"github.com/dshills/refstorm/internal/navigate"
	"github.com/dshills/refstorm/internal/notify"
	"github.com/dshills/refstorm/internal/refresh"
	"github.com/dshills/refstorm/internal/section"
	"github.com/dshills/refstorm/internal/token"
	"github.com/dshills/refstorm/internal/vfs"
	"github.com/dshills/refstorm/internal/watcher"
	"github.com/dshills/refstorm/internal/workspace"
)

// Service owns every component of the indexing pipeline. It implements
// refresh.Indexer, so the coordinator is the only writer of the indices,
// and vfs.ContentSource, so index scans see open buffer contents instead
// of stale disk state.
type Service struct {
	cfg    config.Config
	fsys   vfs.VFS
	logger *slog.Logger

	ws          *workspace.Workspace
	sections    *section.Index
	tokens      *token.Index
	coordinator *refresh.Coordinator
	notifier    *notify.Notifier
	decorations *decoration.Cache
	resolver    *navigate.Resolver

	bufMu   sync.RWMutex
	buffers map[string][]byte

	watchMu sync.Mutex
	watch   watcher.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	sub *notify.Subscription
}

var (
	_ refresh.Indexer   = (*Service)(nil)
	_ vfs.ContentSource = (*Service)(nil)
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithFS overrides the file system, used by tests.
func WithFS(fsys vfs.VFS) Option {
	return func(s *Service) {
		s.fsys = fsys
	}
}

// New assembles a service from configuration. No scanning happens until
// Start or an explicit refresh.
func New(cfg config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		fsys:    vfs.NewOSFS(),
		logger:  slog.Default(),
		buffers: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ws = workspace.New(workspace.Config{
		Root:             cfg.Workspace.Root,
		ConfigGlobs:      cfg.Workspace.ConfigGlobs,
		ScriptGlobs:      cfg.Workspace.ScriptGlobs,
		TypedScriptGlobs: cfg.Workspace.TypedScriptGlobs,
		TextGlobs:        cfg.Workspace.TextGlobs,
		ExcludePatterns:  cfg.Workspace.ExcludePatterns,
	}, s.fsys)

	s.sections = section.New(s.ws, s, section.WithLogger(s.logger))
	s.tokens = token.New(s.sections)
	s.notifier = notify.NewNotifier()
	s.coordinator = refresh.New(s, refresh.WithLogger(s.logger))
	s.decorations = decoration.New(s.tokens, decoration.Config{
		SmallFileLines:     cfg.Decoration.SmallFileLines,
		VeryLargeFileLines: cfg.Decoration.VeryLargeFileLines,
		ChunkSize:          cfg.Decoration.ChunkSize,
		MaxChunks:          cfg.Decoration.MaxChunks,
		PreloadMargin:      cfg.Decoration.PreloadMargin,
		Debounce:           time.Duration(cfg.Decoration.DebounceMS) * time.Millisecond,
		VeryLargeDebounce:  time.Duration(cfg.Decoration.VeryLargeDebounceMS) * time.Millisecond,
	}, decoration.WithLogger(s.logger), decoration.WithRefreshRequester(s.coordinator))
	s.resolver = navigate.New(s.sections, s.tokens, s)

	s.sub = s.notifier.Subscribe(s.onIndexChange)

	return s
}

// onIndexChange keeps the decoration cache consistent with index updates.
func (s *Service) onIndexChange(change notify.Change) {
	switch change.Type {
	case notify.ChangeInvalidateAll:
		s.decorations.InvalidateAll()
	case notify.ChangeFileTokens:
		s.decorations.InvalidateFile(change.Path)
	case notify.ChangeFileRemoved:
		s.decorations.Close(change.Path)
	}
}

// ReadFile serves open buffer contents ahead of disk state.
func (s *Service) ReadFile(path string) ([]byte, error) {
	s.bufMu.RLock()
	buf, ok := s.buffers[path]
	s.bufMu.RUnlock()
	if ok {
		out := make([]byte, len(buf))
		copy(out, buf)
		return out, nil
	}
	return s.fsys.ReadFile(path)
}

// RescanDefinitions rescans all configuration files.
func (s *Service) RescanDefinitions() (bool, error) {
	return s.sections.RescanWorkspace()
}

// InvalidateTokens discards the token index after the identifier set moved.
func (s *Service) InvalidateTokens(reason string) {
	s.tokens.InvalidateAll()
	s.notifier.Publish(notify.Change{Type: notify.ChangeInvalidateAll, Reason: reason})
}

// RebuildFileTokens rescans one file against the current identifier set.
// A file that vanished is dropped from the index instead.
func (s *Service) RebuildFileTokens(path string) (bool, error) {
	kind := s.ws.KindOf(path)
	if !kind.Scannable() {
		return false, nil
	}

	content, err := s.ReadFile(path)
	if err != nil {
		s.tokens.Remove(path)
		s.notifier.Publish(notify.Change{Type: notify.ChangeFileRemoved, Path: path, Reason: "unreadable"})
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	changed := s.tokens.UpdateFile(path, content, kind)
	if changed {
		s.notifier.Publish(notify.Change{Type: notify.ChangeFileTokens, Path: path, Reason: "rescan"})
	}
	return changed, nil
}

// ScannableFiles lists every file eligible for token scanning.
func (s *Service) ScannableFiles() ([]string, error) {
	files, err := s.ws.ScannableFiles()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return paths, nil
}

// AllIDs returns every known section identifier, sorted.
func (s *Service) AllIDs() []string {
	return s.sections.AllIDs()
}

// Definition returns the defining location of an identifier.
func (s *Service) Definition(id string) (section.Location, bool) {
	return s.sections.Definition(id)
}

// SectionContent returns the body lines of a section.
func (s *Service) SectionContent(id string) ([]string, bool) {
	return s.sections.Content(id)
}

// FindMatchAt returns the identifier occurrence at a position.
func (s *Service) FindMatchAt(path string, line, col int) (token.Match, bool) {
	return s.tokens.MatchAt(path, line, col)
}

// FileTokens returns a file's indexed occurrences.
func (s *Service) FileTokens(path string) (map[string][]token.Range, bool) {
	return s.tokens.FileTokens(path)
}

// References returns every indexed occurrence of an identifier.
func (s *Service) References(id string) []token.Ref {
	return s.tokens.References(id)
}

// ResolveAt resolves the identifier under a cursor to its jump targets.
func (s *Service) ResolveAt(path string, line, col int) (navigate.Result, error) {
	return s.resolver.ResolveAt(path, line, col)
}

// ResolveID resolves an identifier by name.
func (s *Service) ResolveID(id string) (navigate.Result, error) {
	return s.resolver.ResolveID(id)
}

// CurrentDecorations returns the bounded highlight set for a file.
func (s *Service) CurrentDecorations(path string) []token.Range {
	return s.decorations.Decorations(path)
}

// ActivateFile marks a file as the active editor buffer and computes its
// decorations immediately.
func (s *Service) ActivateFile(path string, lineCount, firstVisible, lastVisible int) {
	s.decorations.Activate(path, lineCount, firstVisible, lastVisible)
}

// VisibleRange reports a scroll; decoration recompute is debounced.
func (s *Service) VisibleRange(path string, firstVisible, lastVisible int) {
	s.decorations.Scroll(path, firstVisible, lastVisible)
}

// FileOpened registers an open buffer. Subsequent index scans of the path
// see the buffer contents.
func (s *Service) FileOpened(path string, content []byte) {
	s.bufMu.Lock()
	s.buffers[path] = append([]byte(nil), content...)
	s.bufMu.Unlock()
}

// FileChanged records new buffer contents and triggers the matching
// refresh: configuration files re-derive the identifier set, other
// scannable files get a single-file token update.
func (s *Service) FileChanged(path string, content []byte) {
	s.bufMu.Lock()
	s.buffers[path] = append([]byte(nil), content...)
	s.bufMu.Unlock()

	s.triggerRefresh(path, "edit")
}

// FileSaved triggers a refresh after a buffer was written to disk.
func (s *Service) FileSaved(path string) {
	s.triggerRefresh(path, "save")
}

// FileClosed drops all cached state for a file: the buffer overlay, its
// token index entry and its decorations. A subsequent token query reports
// no entry until the file is scanned again.
func (s *Service) FileClosed(path string) {
	s.bufMu.Lock()
	delete(s.buffers, path)
	s.bufMu.Unlock()

	s.tokens.Remove(path)
	s.notifier.Publish(notify.Change{Type: notify.ChangeFileRemoved, Path: path, Reason: "close"})
}

// RefreshAll triggers a full refresh cycle.
func (s *Service) RefreshAll(reason string) {
	s.coordinator.RefreshAll(reason)
}

// RefreshFile triggers a single-file token update.
func (s *Service) RefreshFile(path string) {
	s.coordinator.RefreshFile(path)
}

// AwaitIdle blocks until the coordinator drained all refresh work.
func (s *Service) AwaitIdle(ctx context.Context) error {
	return s.coordinator.AwaitIdle(ctx)
}

// OnRefreshEvent registers a refresh progress handler.
func (s *Service) OnRefreshEvent(handler func(refresh.Event)) {
	s.coordinator.OnEvent(handler)
}

// Subscribe registers an observer for index change notifications.
func (s *Service) Subscribe(observer notify.Observer) *notify.Subscription {
	return s.notifier.Subscribe(observer)
}

// triggerRefresh routes a changed path to the right refresh type.
func (s *Service) triggerRefresh(path, reason string) {
	switch kind := s.ws.KindOf(path); {
	case kind == workspace.KindConfig:
		s.coordinator.RefreshAll(reason)
	case kind.Scannable():
		s.coordinator.RefreshFile(path)
	}
}

// Start performs the initial full scan and begins watching the workspace
// root for external changes.
func (s *Service) Start(ctx context.Context) error {
	fsw, err := watcher.NewFSWatcher(watcher.Config{
		Debounce:   time.Duration(s.cfg.Watcher.DebounceMS) * time.Millisecond,
		BufferSize: s.cfg.Watcher.BufferSize,
		SkipDir:    s.skipDir,
	})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	debounced := watcher.NewDebounced(fsw, time.Duration(s.cfg.Watcher.DebounceMS)*time.Millisecond)

	if err := debounced.WatchRecursive(s.cfg.Workspace.Root); err != nil {
		_ = debounced.Close()
		return fmt.Errorf("watching %s: %w", s.cfg.Workspace.Root, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchMu.Lock()
	s.watch = debounced
	s.cancel = cancel
	s.watchMu.Unlock()

	s.coordinator.RefreshAll("startup")

	s.wg.Add(1)
	go s.watchLoop(watchCtx, debounced)

	return nil
}

// watchLoop drives refreshes from file system events.
func (s *Service) watchLoop(ctx context.Context, w watcher.Watcher) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events():
			if !ok {
				return
			}
			s.handleFSEvent(event)

		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleFSEvent maps one file system event onto the refresh pipeline.
func (s *Service) handleFSEvent(event watcher.Event) {
	kind := s.ws.KindOf(event.Path)
	if !kind.Scannable() {
		return
	}

	switch {
	case event.Op.Gone() && kind == workspace.KindConfig:
		// Definitions vanished with the file; the identifier set changed.
		s.coordinator.RefreshAll("config-removed")
	case event.Op.Gone():
		s.tokens.Remove(event.Path)
		s.notifier.Publish(notify.Change{Type: notify.ChangeFileRemoved, Path: event.Path, Reason: "fs-remove"})
	case kind == workspace.KindConfig:
		s.coordinator.RefreshAll("fs-change")
	default:
		s.coordinator.RefreshFile(event.Path)
	}
}

// Stop halts watching and waits for in-flight work to drain.
func (s *Service) Stop(ctx context.Context) error {
	s.watchMu.Lock()
	watch := s.watch
	cancel := s.cancel
	s.watch = nil
	s.cancel = nil
	s.watchMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watch != nil {
		_ = watch.Close()
	}
	s.wg.Wait()

	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}

	return s.coordinator.AwaitIdle(ctx)
}

// skipDir keeps excluded directory trees out of the watcher.
func (s *Service) skipDir(path string) bool {
	return s.ws.Excluded(path)
}
