package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestOpen_RunsMigrations(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"stats_snapshots", "rating_history", "sessions"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}

	var cols int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('sessions') WHERE name = 'token'`).Scan(&cols); err != nil {
		t.Fatalf("failed to inspect sessions: %v", err)
	}
	if cols != 0 {
		t.Error("sessions must not keep a raw token column")
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('sessions') WHERE name = 'token_hash'`).Scan(&cols); err != nil || cols != 1 {
		t.Errorf("expected sessions.token_hash, got %d (%v)", cols, err)
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	first.Close()

	second, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	second.Close()
}
