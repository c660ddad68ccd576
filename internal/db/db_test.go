package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenCreatesWorkspace(t *testing.T) {
	dir := t.TempDir()
	conn, err := Open(Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if _, err := os.Stat(filepath.Join(dir, ".homeworks")); err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}
	var fk int
	if err := conn.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}
	var mode string
	if err := conn.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("pragma journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}

func TestPath(t *testing.T) {
	if got := Path(""); got != filepath.Join(".", ".homeworks", "homeworks.db") {
		t.Fatalf("Path(\"\") = %s", got)
	}
}
