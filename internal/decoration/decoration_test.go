package decoration

import (
	"sync"
	"testing"
	"time"

	"github.com/dshills/refstorm/internal/token"
)

// fakeTokens is a controllable token source.
type fakeTokens struct {
	mu    sync.Mutex
	calls int
	data  map[string]map[string][]token.Range
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{data: make(map[string]map[string][]token.Range)}
}

func (f *fakeTokens) set(path string, tokens map[string][]token.Range) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[path] = tokens
}

func (f *fakeTokens) drop(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, path)
}

func (f *fakeTokens) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTokens) FileTokens(path string) (map[string][]token.Range, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	tokens, ok := f.data[path]
	if !ok {
		return nil, false
	}
	return tokens, true
}

// fakeRequester records on-demand rebuild requests.
type fakeRequester struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeRequester) RefreshFile(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeRequester) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.paths))
	copy(out, f.paths)
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	// Long debounce so tests drive recomputes explicitly via Flush.
	cfg.Debounce = time.Hour
	cfg.VeryLargeDebounce = time.Hour
	return cfg
}

func TestSmallFileRendersEveryRange(t *testing.T) {
	src := newFakeTokens()
	src.set("/ws/a.lua", map[string][]token.Range{
		"player_unit": {{Line: 2, StartCol: 5, EndCol: 16}},
		"enemy_unit":  {{Line: 40, StartCol: 0, EndCol: 10}},
	})
	c := New(src, testConfig())

	c.Activate("/ws/a.lua", 100, 0, 30)

	got := c.Decorations("/ws/a.lua")
	if len(got) != 2 {
		t.Fatalf("len(Decorations) = %d, want 2: %v", len(got), got)
	}
	if got[0].Line != 2 || got[1].Line != 40 {
		t.Errorf("decorations out of order: %v", got)
	}

	if tier, _ := c.TierOf("/ws/a.lua"); tier != TierSmall {
		t.Errorf("TierOf = %v, want small", tier)
	}
}

func TestLargeFileRendersViewportWindowOnly(t *testing.T) {
	src := newFakeTokens()
	src.set("/ws/big.lua", map[string][]token.Range{
		"player_unit": {
			{Line: 10, StartCol: 0, EndCol: 11},
			{Line: 1500, StartCol: 0, EndCol: 11},
			{Line: 4000, StartCol: 0, EndCol: 11},
		},
	})
	cfg := testConfig()
	cfg.PreloadMargin = 100
	c := New(src, cfg)

	// 5000 lines: above the small bound, below the very large bound.
	c.Activate("/ws/big.lua", 5000, 1450, 1490)

	got := c.Decorations("/ws/big.lua")
	if len(got) != 1 || got[0].Line != 1500 {
		t.Fatalf("Decorations = %v, want only line 1500", got)
	}

	if tier, _ := c.TierOf("/ws/big.lua"); tier != TierLarge {
		t.Errorf("TierOf = %v, want large", tier)
	}
}

func TestVeryLargeFileChunkWindowIsBounded(t *testing.T) {
	src := newFakeTokens()
	src.set("/ws/huge.lua", map[string][]token.Range{
		"player_unit": {
			{Line: 10, StartCol: 0, EndCol: 11},
			{Line: 1050, StartCol: 0, EndCol: 11},
			{Line: 1250, StartCol: 0, EndCol: 11},
			{Line: 9000, StartCol: 0, EndCol: 11},
		},
	})
	cfg := testConfig()
	cfg.ChunkSize = 200
	cfg.MaxChunks = 2
	cfg.PreloadMargin = 300
	c := New(src, cfg)

	// Window 700..1400 spans five chunks; it must truncate to two around
	// the chunk containing the visible midpoint (line 1050, chunk 5).
	c.Activate("/ws/huge.lua", 20000, 1000, 1100)

	active := c.ActiveChunks("/ws/huge.lua")
	if len(active) != 2 || active[0] != 5 || active[1] != 6 {
		t.Fatalf("ActiveChunks = %v, want [5 6]", active)
	}

	got := c.Decorations("/ws/huge.lua")
	if len(got) != 2 || got[0].Line != 1050 || got[1].Line != 1250 {
		t.Errorf("Decorations = %v, want lines 1050 and 1250", got)
	}
}

func TestVeryLargeFileRecentersAndEvictsOnScroll(t *testing.T) {
	src := newFakeTokens()
	src.set("/ws/huge.lua", map[string][]token.Range{
		"player_unit": {
			{Line: 50, StartCol: 0, EndCol: 11},
			{Line: 9010, StartCol: 0, EndCol: 11},
		},
	})
	cfg := testConfig()
	cfg.ChunkSize = 200
	cfg.MaxChunks = 2
	cfg.PreloadMargin = 0
	c := New(src, cfg)

	c.Activate("/ws/huge.lua", 20000, 0, 40)
	if got := c.Decorations("/ws/huge.lua"); len(got) != 1 || got[0].Line != 50 {
		t.Fatalf("Decorations = %v, want line 50", got)
	}

	// Jump far away: the old chunks must be evicted, not accumulated.
	c.Scroll("/ws/huge.lua", 9000, 9040)
	c.Flush("/ws/huge.lua")

	active := c.ActiveChunks("/ws/huge.lua")
	if len(active) > cfg.MaxChunks {
		t.Errorf("ActiveChunks = %v, want at most %d", active, cfg.MaxChunks)
	}
	got := c.Decorations("/ws/huge.lua")
	if len(got) != 1 || got[0].Line != 9010 {
		t.Errorf("Decorations = %v, want line 9010", got)
	}
}

func TestScrollTriggersCollapseIntoOneRecompute(t *testing.T) {
	src := newFakeTokens()
	src.set("/ws/a.lua", map[string][]token.Range{})
	c := New(src, testConfig())

	c.Activate("/ws/a.lua", 5000, 0, 40)
	after := src.callCount()

	c.Scroll("/ws/a.lua", 100, 140)
	c.Scroll("/ws/a.lua", 200, 240)
	c.Scroll("/ws/a.lua", 300, 340)
	c.Flush("/ws/a.lua")

	if got := src.callCount(); got != after+1 {
		t.Errorf("recomputes after three scrolls = %d, want 1", got-after)
	}

	// Nothing pending: Flush must not recompute again.
	c.Flush("/ws/a.lua")
	if got := src.callCount(); got != after+1 {
		t.Errorf("Flush with no pending timer recomputed (calls = %d)", got)
	}
}

func TestMissingTokenEntryKeepsPriorDecorations(t *testing.T) {
	src := newFakeTokens()
	src.set("/ws/a.lua", map[string][]token.Range{
		"player_unit": {{Line: 3, StartCol: 0, EndCol: 11}},
	})
	req := &fakeRequester{}
	c := New(src, testConfig(), WithRefreshRequester(req))

	c.Activate("/ws/a.lua", 100, 0, 40)
	if got := c.Decorations("/ws/a.lua"); len(got) != 1 {
		t.Fatalf("Decorations = %v, want one range", got)
	}

	// The token entry vanished (whole-index invalidation) before the next
	// render trigger. Prior highlights must survive and a rebuild must be
	// requested instead of rendering empty.
	src.drop("/ws/a.lua")
	c.Scroll("/ws/a.lua", 10, 50)
	c.Flush("/ws/a.lua")

	if got := c.Decorations("/ws/a.lua"); len(got) != 1 || got[0].Line != 3 {
		t.Errorf("Decorations = %v, want prior range kept", got)
	}
	if got := req.requested(); len(got) != 1 || got[0] != "/ws/a.lua" {
		t.Errorf("requested rebuilds = %v, want [/ws/a.lua]", got)
	}
}

func TestInvalidateFileDropsChunksAndRecomputes(t *testing.T) {
	src := newFakeTokens()
	src.set("/ws/a.lua", map[string][]token.Range{
		"player_unit": {{Line: 3, StartCol: 0, EndCol: 11}},
	})
	c := New(src, testConfig())

	c.Activate("/ws/a.lua", 100, 0, 40)

	src.set("/ws/a.lua", map[string][]token.Range{
		"enemy_unit": {{Line: 7, StartCol: 0, EndCol: 10}},
	})
	c.InvalidateFile("/ws/a.lua")

	// Committed set survives until the scheduled recompute replaces it.
	if got := c.Decorations("/ws/a.lua"); len(got) != 1 || got[0].Line != 3 {
		t.Fatalf("Decorations before recompute = %v, want prior range", got)
	}

	c.Flush("/ws/a.lua")
	if got := c.Decorations("/ws/a.lua"); len(got) != 1 || got[0].Line != 7 {
		t.Errorf("Decorations after recompute = %v, want line 7", got)
	}
}

func TestCloseEvictsFileState(t *testing.T) {
	src := newFakeTokens()
	src.set("/ws/a.lua", map[string][]token.Range{
		"player_unit": {{Line: 3, StartCol: 0, EndCol: 11}},
	})
	c := New(src, testConfig())

	c.Activate("/ws/a.lua", 100, 0, 40)
	c.Close("/ws/a.lua")

	if got := c.Decorations("/ws/a.lua"); got != nil {
		t.Errorf("Decorations after Close = %v, want nil", got)
	}

	// Scrolling a closed file is a no-op.
	before := src.callCount()
	c.Scroll("/ws/a.lua", 10, 50)
	c.Flush("/ws/a.lua")
	if src.callCount() != before {
		t.Error("scroll on closed file recomputed")
	}
}

func TestTierString(t *testing.T) {
	if TierSmall.String() != "small" || TierLarge.String() != "large" || TierVeryLarge.String() != "verylarge" {
		t.Error("unexpected tier names")
	}
	if Tier(9).String() != "unknown" {
		t.Error("unexpected name for invalid tier")
	}
}
