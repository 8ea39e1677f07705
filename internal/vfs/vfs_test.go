package vfs

import (
	"errors"
	"testing"
)

func TestMemFSReadFile(t *testing.T) {
	fs := NewMemFS()
	fs.AddFile("/ws/config.ini", "[player_unit]\nhp = 100\n")

	data, err := fs.ReadFile("/ws/config.ini")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "[player_unit]\nhp = 100\n" {
		t.Errorf("ReadFile() = %q", data)
	}
}

func TestMemFSReadFileNotExist(t *testing.T) {
	fs := NewMemFS()

	_, err := fs.ReadFile("/missing.txt")
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("ReadFile() error = %v, want ErrNotExist", err)
	}
}

func TestMemFSReadFileReturnsCopy(t *testing.T) {
	fs := NewMemFS()
	fs.AddFile("/a.txt", "abc")

	data, _ := fs.ReadFile("/a.txt")
	data[0] = 'x'

	again, _ := fs.ReadFile("/a.txt")
	if string(again) != "abc" {
		t.Errorf("stored content mutated: %q", again)
	}
}

func TestMemFSStat(t *testing.T) {
	fs := NewMemFS()
	fs.AddFile("/ws/scripts/main.lua", "print(1)")

	info, err := fs.Stat("/ws/scripts/main.lua")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Name != "main.lua" {
		t.Errorf("Name = %q, want main.lua", info.Name)
	}
	if info.Size != 8 {
		t.Errorf("Size = %d, want 8", info.Size)
	}
	if info.IsDir {
		t.Error("IsDir = true for a file")
	}

	dirInfo, err := fs.Stat("/ws/scripts")
	if err != nil {
		t.Fatalf("Stat(dir) error = %v", err)
	}
	if !dirInfo.IsDir {
		t.Error("IsDir = false for a directory")
	}
}

func TestMemFSReadDir(t *testing.T) {
	fs := NewMemFS()
	fs.AddFile("/ws/config.ini", "")
	fs.AddFile("/ws/scripts/a.lua", "")
	fs.AddFile("/ws/scripts/b.lua", "")

	entries, err := fs.ReadDir("/ws")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Name != "config.ini" || entries[0].IsDir {
		t.Errorf("entries[0] = %+v, want config.ini file", entries[0])
	}
	if entries[1].Name != "scripts" || !entries[1].IsDir {
		t.Errorf("entries[1] = %+v, want scripts dir", entries[1])
	}
}

func TestMemFSRemoveFile(t *testing.T) {
	fs := NewMemFS()
	fs.AddFile("/a.txt", "x")
	fs.RemoveFile("/a.txt")

	if fs.Exists("/a.txt") {
		t.Error("file still exists after RemoveFile")
	}
}

func TestMemFSExists(t *testing.T) {
	fs := NewMemFS()
	fs.AddFile("/ws/data/units.ini", "")

	tests := []struct {
		path string
		want bool
	}{
		{"/ws/data/units.ini", true},
		{"/ws/data", true},
		{"/ws", true},
		{"/ws/other", false},
	}
	for _, tt := range tests {
		if got := fs.Exists(tt.path); got != tt.want {
			t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
