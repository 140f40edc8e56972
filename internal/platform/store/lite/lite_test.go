package lite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDSN_Defaults(t *testing.T) {
	dsn := DSN(Config{})
	if !strings.HasPrefix(dsn, "file::memory:?") {
		t.Fatalf("dsn = %q", dsn)
	}
	if !strings.Contains(dsn, "busy_timeout%285000%29") {
		t.Fatalf("expected default busy timeout in %q", dsn)
	}
	if strings.Contains(dsn, "journal_mode") {
		t.Fatalf("memory dsn should not request WAL: %q", dsn)
	}
}

func TestDSN_FileUsesWAL(t *testing.T) {
	dsn := DSN(Config{Path: "/tmp/runs.db", BusyTimeout: time.Second})
	if !strings.Contains(dsn, "journal_mode%28WAL%29") || !strings.Contains(dsn, "busy_timeout%281000%29") {
		t.Fatalf("dsn = %q", dsn)
	}
}

func TestOpen_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`create table x (id integer)`); err != nil {
		t.Fatalf("exec: %v", err)
	}
	var mode string
	if err := db.QueryRow(`pragma journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}

func TestOpen_MissingDirectoryFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "journal.db")
	if _, err := Open(context.Background(), Config{Path: path}); err == nil {
		t.Fatal("expected ping failure for a missing directory")
	}
}
