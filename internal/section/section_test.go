package section

import (
	"testing"

	"github.com/dshills/refstorm/internal/vfs"
	"github.com/dshills/refstorm/internal/workspace"
)

const unitsINI = `[player_unit]
name = "Player"
hp = 100
[enemy_unit]
hp = 50
`

func newTestIndex(files map[string]string) (*Index, *vfs.MemFS) {
	fs := vfs.NewMemFS()
	for path, content := range files {
		fs.AddFile(path, content)
	}
	ws := workspace.New(workspace.DefaultConfig("/ws"), fs)
	return New(ws, fs), fs
}

func TestRescanWorkspaceParsesSections(t *testing.T) {
	idx, _ := newTestIndex(map[string]string{
		"/ws/config.ini": unitsINI,
	})

	changed, err := idx.RescanWorkspace()
	if err != nil {
		t.Fatalf("RescanWorkspace() error = %v", err)
	}
	if !changed {
		t.Error("RescanWorkspace() changed = false, want true")
	}

	ids := idx.AllIDs()
	if len(ids) != 2 || ids[0] != "enemy_unit" || ids[1] != "player_unit" {
		t.Errorf("AllIDs() = %v", ids)
	}

	content, ok := idx.Content("player_unit")
	if !ok {
		t.Fatal("Content(player_unit) not found")
	}
	want := []string{`name = "Player"`, "hp = 100"}
	if len(content) != len(want) {
		t.Fatalf("Content() = %v, want %v", content, want)
	}
	for i := range want {
		if content[i] != want[i] {
			t.Errorf("Content()[%d] = %q, want %q", i, content[i], want[i])
		}
	}

	loc, ok := idx.Definition("enemy_unit")
	if !ok {
		t.Fatal("Definition(enemy_unit) not found")
	}
	if loc.File != "/ws/config.ini" || loc.Line != 3 {
		t.Errorf("Definition(enemy_unit) = %+v", loc)
	}
}

func TestRescanFileIdenticalContentIsNoOp(t *testing.T) {
	idx, _ := newTestIndex(nil)

	if changed := idx.RescanFile("/ws/a.ini", []byte(unitsINI)); !changed {
		t.Fatal("first RescanFile changed = false")
	}
	if changed := idx.RescanFile("/ws/a.ini", []byte(unitsINI)); changed {
		t.Error("identical RescanFile changed = true, want false (no-op)")
	}
}

func TestRescanFileReplacesOwnedRecords(t *testing.T) {
	idx, _ := newTestIndex(nil)

	idx.RescanFile("/ws/a.ini", []byte("[old_section]\nvalue = 1\n"))
	idx.RescanFile("/ws/a.ini", []byte("[new_section]\nvalue = 2\n"))

	if _, ok := idx.Definition("old_section"); ok {
		t.Error("old_section still defined after rescan")
	}
	if _, ok := idx.Definition("new_section"); !ok {
		t.Error("new_section not defined after rescan")
	}
}

func TestDuplicateIDLastScannedWins(t *testing.T) {
	idx, _ := newTestIndex(nil)

	idx.RescanFile("/ws/a.ini", []byte("[shared]\nfrom = a\n"))
	idx.RescanFile("/ws/b.ini", []byte("[shared]\nfrom = b\n"))

	loc, ok := idx.Definition("shared")
	if !ok {
		t.Fatal("shared not defined")
	}
	if loc.File != "/ws/b.ini" {
		t.Errorf("Definition(shared).File = %q, want /ws/b.ini", loc.File)
	}

	// Rescanning the loser must not clobber the winner's record when the
	// loser drops the id.
	idx.RescanFile("/ws/a.ini", []byte("[other]\n"))
	if _, ok := idx.Definition("shared"); !ok {
		t.Error("shared lost after rescanning non-owner file")
	}
}

func TestMalformedHeadersAreContent(t *testing.T) {
	idx, _ := newTestIndex(nil)

	src := "[good]\n[bad\nnot[a]header\n[also bad]\n[\"quoted\"]\n"
	idx.RescanFile("/ws/a.ini", []byte(src))

	ids := idx.AllIDs()
	if len(ids) != 1 || ids[0] != "good" {
		t.Fatalf("AllIDs() = %v, want [good]", ids)
	}

	content, _ := idx.Content("good")
	want := []string{"[bad", "not[a]header", "[also bad]", `["quoted"]`}
	if len(content) != len(want) {
		t.Fatalf("Content() = %v, want %v", content, want)
	}
}

func TestContentSkipsBlankLines(t *testing.T) {
	idx, _ := newTestIndex(nil)

	idx.RescanFile("/ws/a.ini", []byte("[s]\nfirst\n\n   \nsecond\n"))

	content, _ := idx.Content("s")
	if len(content) != 2 || content[0] != "first" || content[1] != "second" {
		t.Errorf("Content() = %v", content)
	}
}

func TestRemoveFileDropsRecords(t *testing.T) {
	idx, _ := newTestIndex(nil)

	idx.RescanFile("/ws/a.ini", []byte("[gone]\n"))
	if !idx.RemoveFile("/ws/a.ini") {
		t.Error("RemoveFile returned false for a known file")
	}
	if _, ok := idx.Definition("gone"); ok {
		t.Error("gone still defined after RemoveFile")
	}

	// A removed file's fingerprint must be forgotten so re-adding rescans.
	if changed := idx.RescanFile("/ws/a.ini", []byte("[gone]\n")); !changed {
		t.Error("RescanFile after RemoveFile changed = false")
	}
}

func TestRescanWorkspaceDropsDeletedFiles(t *testing.T) {
	idx, fs := newTestIndex(map[string]string{
		"/ws/a.ini": "[alpha]\n",
		"/ws/b.ini": "[beta]\n",
	})

	if _, err := idx.RescanWorkspace(); err != nil {
		t.Fatalf("RescanWorkspace() error = %v", err)
	}

	fs.RemoveFile("/ws/b.ini")
	changed, err := idx.RescanWorkspace()
	if err != nil {
		t.Fatalf("RescanWorkspace() error = %v", err)
	}
	if !changed {
		t.Error("changed = false after file deletion")
	}
	if _, ok := idx.Definition("beta"); ok {
		t.Error("beta still defined after its file was deleted")
	}
}

func TestHeaderID(t *testing.T) {
	tests := []struct {
		line   string
		wantID string
		ok     bool
	}{
		{"[player_unit]", "player_unit", true},
		{"  [player_unit]  ", "player_unit", true},
		{"[Unit42]", "Unit42", true},
		{"[bad", "", false},
		{"bad]", "", false},
		{"[two words]", "", false},
		{"[x] trailing", "", false},
		{"[]", "", false},
	}

	for _, tt := range tests {
		id, ok := HeaderID(tt.line)
		if ok != tt.ok || id != tt.wantID {
			t.Errorf("HeaderID(%q) = (%q, %v), want (%q, %v)", tt.line, id, ok, tt.wantID, tt.ok)
		}
	}
}
