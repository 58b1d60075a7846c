package atomicwrite

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile_ReplacesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "a.json")

	if err := WriteFile(path, []byte("one"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFile(path, []byte("two"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "two" {
		t.Fatalf("got %q err=%v", got, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.json")
	if err := WriteJSON(path, map[string]int{"n": 1}, 0o600); err != nil {
		t.Fatalf("write json: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "{\n  \"n\": 1\n}\n" {
		t.Fatalf("unexpected content %q", got)
	}
}
