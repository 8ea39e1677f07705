package token

import (
	"testing"

	"github.com/dshills/refstorm/internal/workspace"
)

// staticIDs is a fixed identifier source for tests.
type staticIDs []string

func (s staticIDs) AllIDs() []string { return s }

func TestScriptQuoteBoundedAcceptance(t *testing.T) {
	idx := New(staticIDs{"player_unit"})

	src := "CreateUnit(\"player_unit\", 1, 2)\nlocal player_unit = 5\n"
	idx.UpdateFile("/ws/spawn.lua", []byte(src), workspace.KindScript)

	tokens, ok := idx.FileTokens("/ws/spawn.lua")
	if !ok {
		t.Fatal("FileTokens not found")
	}
	ranges := tokens["player_unit"]
	if len(ranges) != 1 {
		t.Fatalf("len(ranges) = %d, want 1: %v", len(ranges), ranges)
	}
	want := Range{Line: 0, StartCol: 12, EndCol: 23}
	if ranges[0] != want {
		t.Errorf("ranges[0] = %+v, want %+v", ranges[0], want)
	}
}

func TestTypedScriptAcceptsBackticks(t *testing.T) {
	idx := New(staticIDs{"player_unit"})

	src := "const a = `player_unit`;\nconst b = player_unit;\n"
	idx.UpdateFile("/ws/ui.ts", []byte(src), workspace.KindTypedScript)

	tokens, _ := idx.FileTokens("/ws/ui.ts")
	if len(tokens["player_unit"]) != 1 {
		t.Errorf("ranges = %v, want one backtick-bounded match", tokens["player_unit"])
	}
}

func TestScriptRejectsBackticks(t *testing.T) {
	idx := New(staticIDs{"player_unit"})

	idx.UpdateFile("/ws/a.lua", []byte("x = `player_unit`\n"), workspace.KindScript)

	tokens, _ := idx.FileTokens("/ws/a.lua")
	if len(tokens["player_unit"]) != 0 {
		t.Errorf("backtick bounds accepted in script kind: %v", tokens["player_unit"])
	}
}

func TestConfigHeaderLinesYieldNoMatches(t *testing.T) {
	idx := New(staticIDs{"player_unit"})

	src := "[player_unit]\nspawn = player_unit\n"
	idx.UpdateFile("/ws/config.ini", []byte(src), workspace.KindConfig)

	tokens, _ := idx.FileTokens("/ws/config.ini")
	ranges := tokens["player_unit"]
	if len(ranges) != 1 {
		t.Fatalf("len(ranges) = %d, want 1: %v", len(ranges), ranges)
	}
	if ranges[0].Line != 1 {
		t.Errorf("match on line %d, want 1 (never on the header line)", ranges[0].Line)
	}
}

func TestTextAcceptsUnconditionally(t *testing.T) {
	idx := New(staticIDs{"player_unit"})

	idx.UpdateFile("/ws/notes.md", []byte("see player_unit for stats\n"), workspace.KindText)

	tokens, _ := idx.FileTokens("/ws/notes.md")
	if len(tokens["player_unit"]) != 1 {
		t.Errorf("ranges = %v, want one unconditional match", tokens["player_unit"])
	}
}

func TestLongerIDWinsOverSubstring(t *testing.T) {
	idx := New(staticIDs{"a", "ab"})

	idx.UpdateFile("/ws/n.txt", []byte("ab\n"), workspace.KindText)

	tokens, _ := idx.FileTokens("/ws/n.txt")
	if len(tokens["ab"]) != 1 {
		t.Errorf(`ranges for "ab" = %v, want 1`, tokens["ab"])
	}
	if len(tokens["a"]) != 0 {
		t.Errorf(`ranges for "a" = %v, want none (starved by "ab")`, tokens["a"])
	}
}

func TestNextSearchStartsAfterMatchOffset(t *testing.T) {
	idx := New(staticIDs{"aa"})

	idx.UpdateFile("/ws/n.txt", []byte("aaa\n"), workspace.KindText)

	tokens, _ := idx.FileTokens("/ws/n.txt")
	ranges := tokens["aa"]
	if len(ranges) != 2 {
		t.Fatalf("len(ranges) = %d, want 2 (search restarts at k+1): %v", len(ranges), ranges)
	}
	if ranges[0].StartCol != 0 || ranges[1].StartCol != 1 {
		t.Errorf("ranges = %v", ranges)
	}
}

func TestUpdateFileFingerprintNoOp(t *testing.T) {
	idx := New(staticIDs{"x"})

	content := []byte("x y x\n")
	if !idx.UpdateFile("/ws/n.txt", content, workspace.KindText) {
		t.Fatal("first UpdateFile changed = false")
	}
	if idx.UpdateFile("/ws/n.txt", content, workspace.KindText) {
		t.Error("identical UpdateFile changed = true, want false")
	}
}

func TestInvalidateAllForcesRebuild(t *testing.T) {
	idx := New(staticIDs{"x"})

	content := []byte("x\n")
	idx.UpdateFile("/ws/n.txt", content, workspace.KindText)
	idx.InvalidateAll()

	if _, ok := idx.FileTokens("/ws/n.txt"); ok {
		t.Error("file entry survived InvalidateAll")
	}
	// Same content must rescan after invalidation.
	if !idx.UpdateFile("/ws/n.txt", content, workspace.KindText) {
		t.Error("UpdateFile after InvalidateAll changed = false")
	}
}

func TestRemoveDropsFileState(t *testing.T) {
	idx := New(staticIDs{"x"})

	idx.UpdateFile("/ws/n.txt", []byte("x\n"), workspace.KindText)
	idx.Remove("/ws/n.txt")

	if _, ok := idx.FileTokens("/ws/n.txt"); ok {
		t.Error("FileTokens found after Remove")
	}
	if idx.FileCount() != 0 {
		t.Errorf("FileCount() = %d, want 0", idx.FileCount())
	}
}

func TestMatchAt(t *testing.T) {
	idx := New(staticIDs{"player_unit"})
	idx.UpdateFile("/ws/n.txt", []byte("see player_unit here\n"), workspace.KindText)

	m, ok := idx.MatchAt("/ws/n.txt", 0, 8)
	if !ok {
		t.Fatal("MatchAt miss inside a match")
	}
	if m.ID != "player_unit" || m.Range.StartCol != 4 {
		t.Errorf("MatchAt = %+v", m)
	}

	if _, ok := idx.MatchAt("/ws/n.txt", 0, 0); ok {
		t.Error("MatchAt hit outside any match")
	}
	if _, ok := idx.MatchAt("/ws/other.txt", 0, 0); ok {
		t.Error("MatchAt hit for unindexed file")
	}
}

func TestReferencesOrdered(t *testing.T) {
	idx := New(staticIDs{"hero"})
	idx.UpdateFile("/ws/b.txt", []byte("hero\nhero hero\n"), workspace.KindText)
	idx.UpdateFile("/ws/a.txt", []byte("the hero\n"), workspace.KindText)

	refs := idx.References("hero")
	if len(refs) != 4 {
		t.Fatalf("len(refs) = %d, want 4: %v", len(refs), refs)
	}
	if refs[0].File != "/ws/a.txt" {
		t.Errorf("refs[0].File = %q, want /ws/a.txt", refs[0].File)
	}
	if refs[1].File != "/ws/b.txt" || refs[1].Range.Line != 0 {
		t.Errorf("refs[1] = %+v", refs[1])
	}
	if refs[2].Range.Line != 1 || refs[2].Range.StartCol != 0 {
		t.Errorf("refs[2] = %+v", refs[2])
	}
	if refs[3].Range.StartCol != 5 {
		t.Errorf("refs[3] = %+v", refs[3])
	}
}
