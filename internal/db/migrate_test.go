package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/careerprep/db"
	"github.com/garnizeh/careerprep/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, "file:migrateidem?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	versions, err := db.Applied(ctx, d)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(versions) < 1 || versions[0] != "0001_init" {
		t.Fatalf("expected 0001_init recorded, got %v", versions)
	}

	for _, table := range []string{"users", "resumes", "interview_sessions", "interview_questions", "interview_reports"} {
		var name string
		r := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)
		if err := r.Scan(&name); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}
}

func TestMigrate_BrokenScriptIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, "file:migratebroken?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	fsys := fstest.MapFS{
		"migrations/0001_ok.sql":     {Data: []byte(`CREATE TABLE a (v INTEGER);`)},
		"migrations/0002_broken.sql": {Data: []byte(`CREATE TABLE oops (`)},
	}
	if err := db.Migrate(ctx, d, fsys); err == nil {
		t.Fatalf("expected error for broken migration")
	}
	versions, err := db.Applied(ctx, d)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(versions) != 1 || versions[0] != "0001_ok" {
		t.Fatalf("expected only 0001_ok recorded, got %v", versions)
	}
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.db")

	d, err := db.New(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := d.Exec(ctx, `INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1', 'alice', 'x', 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	bak := filepath.Join(dir, "app.db.bak")
	if err := db.Backup(ctx, d, bak); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := db.Backup(ctx, d, bak); err == nil {
		t.Fatalf("expected error when backup target exists")
	}
	d.Close()

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := db.Restore(bak, path); err != nil {
		t.Fatalf("restore: %v", err)
	}

	d2, err := db.New(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()
	var name string
	if err := d2.QueryRow(ctx, `SELECT username FROM users WHERE id = 'u1'`).Scan(&name); err != nil {
		t.Fatalf("select after restore: %v", err)
	}
	if name != "alice" {
		t.Fatalf("expected alice, got %q", name)
	}
}
