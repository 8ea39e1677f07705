// Package decoration produces bounded highlight sets for open files.
//
// The cache consumes token index contents per file and keeps per-scroll and
// per-keystroke cost independent of file length. Files are bucketed by line
// count into three tiers: small files render every known range, large files
// render only ranges near the viewport, and very large files partition the
// line range into fixed-size chunks of which at most a configured number is
// cached and rendered at a time.
package decoration

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dshills/refstorm/internal/token"
)

// Tier buckets a file by line count.
type Tier int

const (
	// TierSmall files render every known range.
	TierSmall Tier = iota

	// TierLarge files render only ranges intersecting the expanded viewport.
	TierLarge

	// TierVeryLarge files use a bounded sliding window of fixed-size chunks.
	TierVeryLarge
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierSmall:
		return "small"
	case TierLarge:
		return "large"
	case TierVeryLarge:
		return "verylarge"
	default:
		return "unknown"
	}
}

// Config holds decoration cache settings.
type Config struct {
	// SmallFileLines is the inclusive upper bound for the small tier.
	SmallFileLines int

	// VeryLargeFileLines is the line count at which chunking kicks in.
	VeryLargeFileLines int

	// ChunkSize is the number of lines per chunk.
	ChunkSize int

	// MaxChunks is the maximum number of cached chunks per file.
	MaxChunks int

	// PreloadMargin is the number of lines preloaded around the viewport.
	PreloadMargin int

	// Debounce is the recompute delay for small and large files.
	Debounce time.Duration

	// VeryLargeDebounce is the recompute delay for very large files. It is
	// shorter because their recompute cost is bounded by chunk count rather
	// than file size.
	VeryLargeDebounce time.Duration
}

// DefaultConfig returns the default cache settings.
func DefaultConfig() Config {
	return Config{
		SmallFileLines:     1000,
		VeryLargeFileLines: 10000,
		ChunkSize:          200,
		MaxChunks:          8,
		PreloadMargin:      100,
		Debounce:           250 * time.Millisecond,
		VeryLargeDebounce:  80 * time.Millisecond,
	}
}

// TokenSource supplies token index contents per file.
// The second return must be false when the file has no entry at all, which
// is distinct from an entry with zero matches.
type TokenSource interface {
	FileTokens(path string) (map[string][]token.Range, bool)
}

// RefreshRequester requests an on-demand index rebuild for a file whose
// token entry is missing at render time.
type RefreshRequester interface {
	RefreshFile(path string)
}

// fileState is the per-file cache partition. State for different files never
// contends; a failure for one file cannot affect another's cached set.
type fileState struct {
	lineCount int
	tier      Tier

	firstVisible int
	lastVisible  int

	// committed is the last highlight set handed to the renderer. It is
	// replaced wholesale by a successful recompute and deliberately survives
	// invalidation so a stale trigger ordering never blanks valid highlights.
	committed []token.Range

	// chunks caches built chunks for the very large tier.
	chunks map[int][]token.Range

	// active is the current active chunk index window, ascending.
	active []int
}

// Cache computes bounded highlight sets per open file.
type Cache struct {
	mu sync.Mutex

	config    Config
	tokens    TokenSource
	requester RefreshRequester
	logger    *slog.Logger

	files  map[string]*fileState
	timers map[string]*time.Timer
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithRefreshRequester sets the on-demand rebuild hook.
func WithRefreshRequester(r RefreshRequester) Option {
	return func(c *Cache) {
		c.requester = r
	}
}

// New creates a decoration cache over the given token source.
func New(tokens TokenSource, config Config, opts ...Option) *Cache {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 200
	}
	if config.MaxChunks <= 0 {
		config.MaxChunks = 8
	}

	c := &Cache{
		config: config,
		tokens: tokens,
		logger: slog.Default(),
		files:  make(map[string]*fileState),
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Activate registers (or re-registers) the active file and recomputes its
// decorations immediately. Any pending debounced recompute is cancelled.
func (c *Cache) Activate(path string, lineCount, firstVisible, lastVisible int) {
	c.mu.Lock()
	st, ok := c.files[path]
	if !ok {
		st = &fileState{chunks: make(map[int][]token.Range)}
		c.files[path] = st
	}
	st.lineCount = lineCount
	st.tier = c.tierFor(lineCount)
	st.firstVisible = firstVisible
	st.lastVisible = lastVisible
	c.cancelTimerLocked(path)
	c.mu.Unlock()

	c.recompute(path)
}

// Scroll updates the viewport for a file and schedules a debounced
// recompute. A new trigger replaces the pending timer rather than stacking.
// Files that were never activated are ignored.
func (c *Cache) Scroll(path string, firstVisible, lastVisible int) {
	c.mu.Lock()
	st, ok := c.files[path]
	if !ok {
		c.mu.Unlock()
		return
	}
	st.firstVisible = firstVisible
	st.lastVisible = lastVisible
	c.scheduleLocked(path, st.tier)
	c.mu.Unlock()
}

// Decorations returns the current committed highlight set for a file,
// ordered by line and column. The set is bounded per the file's tier.
func (c *Cache) Decorations(path string) []token.Range {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.files[path]
	if !ok {
		return nil
	}
	out := make([]token.Range, len(st.committed))
	copy(out, st.committed)
	return out
}

// InvalidateFile drops all cached chunks for a file after its token entry
// was rebuilt, and schedules a recompute if the file is open. The committed
// highlight set is kept until the recompute replaces it.
func (c *Cache) InvalidateFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.files[path]
	if !ok {
		return
	}
	st.chunks = make(map[int][]token.Range)
	st.active = nil
	c.scheduleLocked(path, st.tier)
}

// InvalidateAll drops cached chunks for every open file.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path, st := range c.files {
		st.chunks = make(map[int][]token.Range)
		st.active = nil
		c.scheduleLocked(path, st.tier)
	}
}

// Close evicts all per-file cache state for a closed file.
func (c *Cache) Close(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelTimerLocked(path)
	delete(c.files, path)
}

// Flush fires any pending debounced recompute for a file immediately.
func (c *Cache) Flush(path string) {
	c.mu.Lock()
	timer, ok := c.timers[path]
	if ok {
		timer.Stop()
		delete(c.timers, path)
	}
	c.mu.Unlock()

	if ok {
		c.recompute(path)
	}
}

// ActiveChunks returns the active chunk indices for a very large file.
func (c *Cache) ActiveChunks(path string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.files[path]
	if !ok {
		return nil
	}
	out := make([]int, len(st.active))
	copy(out, st.active)
	return out
}

// TierOf returns the tier assigned to an open file.
func (c *Cache) TierOf(path string) (Tier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.files[path]
	if !ok {
		return 0, false
	}
	return st.tier, true
}

// tierFor buckets a line count.
func (c *Cache) tierFor(lineCount int) Tier {
	switch {
	case lineCount <= c.config.SmallFileLines:
		return TierSmall
	case lineCount < c.config.VeryLargeFileLines:
		return TierLarge
	default:
		return TierVeryLarge
	}
}

// scheduleLocked replaces the pending debounce timer for a file
// (caller holds lock).
func (c *Cache) scheduleLocked(path string, tier Tier) {
	delay := c.config.Debounce
	if tier == TierVeryLarge {
		delay = c.config.VeryLargeDebounce
	}

	if timer, ok := c.timers[path]; ok {
		timer.Stop()
	}
	c.timers[path] = time.AfterFunc(delay, func() {
		c.mu.Lock()
		delete(c.timers, path)
		c.mu.Unlock()
		c.recompute(path)
	})
}

// cancelTimerLocked stops a pending debounce timer (caller holds lock).
func (c *Cache) cancelTimerLocked(path string) {
	if timer, ok := c.timers[path]; ok {
		timer.Stop()
		delete(c.timers, path)
	}
}

// recompute rebuilds the committed highlight set for one file.
//
// If the token index has no entry for the file yet, the previously committed
// set is kept and an on-demand rebuild is requested, so a stale trigger
// ordering never replaces valid highlights with nothing.
func (c *Cache) recompute(path string) {
	tokens, ok := c.tokens.FileTokens(path)
	if !ok {
		c.logger.Debug("token entry missing at render time", "path", path)
		if c.requester != nil {
			c.requester.RefreshFile(path)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st, stOK := c.files[path]
	if !stOK {
		return
	}

	all := flatten(tokens)
	switch st.tier {
	case TierSmall:
		st.committed = all
	case TierLarge:
		lo, hi := c.window(st)
		st.committed = filterRanges(all, lo, hi)
	case TierVeryLarge:
		st.committed = c.recomputeChunksLocked(st, all)
	}
}

// window returns the viewport expanded by the preload margin, clipped to
// file bounds.
func (c *Cache) window(st *fileState) (lo, hi int) {
	lo = st.firstVisible - c.config.PreloadMargin
	if lo < 0 {
		lo = 0
	}
	hi = st.lastVisible + c.config.PreloadMargin
	if max := st.lineCount - 1; hi > max {
		hi = max
	}
	return lo, hi
}

// flatten merges a token map into one slice ordered by line and column.
func flatten(tokens map[string][]token.Range) []token.Range {
	var all []token.Range
	for _, ranges := range tokens {
		all = append(all, ranges...)
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].Line != all[b].Line {
			return all[a].Line < all[b].Line
		}
		return all[a].StartCol < all[b].StartCol
	})
	return all
}

// filterRanges keeps ranges whose line lies in [lo, hi].
func filterRanges(all []token.Range, lo, hi int) []token.Range {
	var out []token.Range
	for _, r := range all {
		if r.Line >= lo && r.Line <= hi {
			out = append(out, r)
		}
	}
	return out
}
