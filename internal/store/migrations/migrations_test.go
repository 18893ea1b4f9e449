package migrations

import (
	"bytes"
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestUp_LogsThroughSlog(t *testing.T) {
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(nil) })

	if err := Up(db, SQLite); err != nil {
		t.Fatalf("Up: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "successfully migrated") {
		t.Errorf("expected migration summary in slog output, got %q", out)
	}
	if !strings.Contains(out, "component=migrations") || strings.Contains(out, "goose: ") {
		t.Errorf("unexpected log format %q", out)
	}
}

func TestDialect_Unknown(t *testing.T) {
	if _, err := Dialect("mysql").gooseDialect(); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}
