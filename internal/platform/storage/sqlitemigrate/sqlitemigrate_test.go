package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func file(body string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(body)} }

func TestApplyMigrationsInVersionOrder(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"m/010_index.sql":  file("-- +migrate Up\nCREATE INDEX idx_items_name ON items(name);\n-- +migrate Down\nDROP INDEX idx_items_name;"),
		"m/002_create.sql": file("CREATE TABLE items(id TEXT PRIMARY KEY, name TEXT);"),
		"m/README.md":      file("ignored"),
	}
	if err := ApplyMigrations(context.Background(), db, fsys, "m"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	names, err := Applied(context.Background(), db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if strings.Join(names, ",") != "m/002_create.sql,m/010_index.sql" {
		t.Fatalf("unexpected applied list %v", names)
	}

	if err := ApplyMigrations(context.Background(), db, fsys, "m"); err != nil {
		t.Fatalf("second apply should be a no-op: %v", err)
	}
}

func TestApplyMigrationsDetectsEditedFile(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	if err := ApplyMigrations(ctx, db, fstest.MapFS{"001_a.sql": file("CREATE TABLE a(id INTEGER);")}, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	err := ApplyMigrations(ctx, db, fstest.MapFS{"001_a.sql": file("CREATE TABLE a(id INTEGER, x TEXT);")}, "")
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}

func TestApplyMigrationsRollsBackFailure(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"001_ok.sql":  file("CREATE TABLE ok(id INTEGER);"),
		"002_bad.sql": file("CREATE TABLE broken(;"),
	}
	if err := ApplyMigrations(context.Background(), db, fsys, ""); err == nil {
		t.Fatal("expected broken migration to fail")
	}
	names, err := Applied(context.Background(), db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(names) != 1 || names[0] != "001_ok.sql" {
		t.Fatalf("expected only the first migration recorded, got %v", names)
	}
}

func TestLoadRejectsBadNames(t *testing.T) {
	for name, fsys := range map[string]fstest.MapFS{
		"no version":       {"create.sql": file("")},
		"zero version":     {"000_create.sql": file("")},
		"shared version":   {"001_a.sql": file(""), "1_b.sql": file("")},
		"missing dir root": {},
	} {
		dir := "."
		if name == "missing dir root" {
			dir = "nope"
		}
		if _, err := Load(fsys, dir); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestUpSection(t *testing.T) {
	got := UpSection("-- header\n-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;")
	if strings.TrimSpace(got) != "SELECT 1;" {
		t.Fatalf("unexpected up section %q", got)
	}
	if UpSection("SELECT 3;") != "SELECT 3;" {
		t.Fatal("expected file without markers to be all up")
	}
}

func TestApplyMigrationsRequiresDB(t *testing.T) {
	if err := ApplyMigrations(context.Background(), nil, fstest.MapFS{}, ""); err == nil {
		t.Fatal("expected nil db to fail")
	}
}
