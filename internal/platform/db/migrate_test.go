package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrations(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	writeMigrations(t, dir, map[string]string{
		"001_users.sql":    "CREATE TABLE users (id UUID PRIMARY KEY);",
		"002_datasets.sql": "CREATE TABLE datasets (id UUID PRIMARY KEY);",
		"003_exports.sql":  "CREATE TABLE exports (id UUID PRIMARY KEY);",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	first := migrations[0]
	if first.Version != 1 || first.Name != "001_users.sql" {
		t.Errorf("unexpected first migration: %+v", first)
	}
	if first.SQL != "CREATE TABLE users (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", first.SQL)
	}
	if migrations[1].Version != 2 || migrations[2].Version != 3 {
		t.Errorf("versions out of order: %d, %d", migrations[1].Version, migrations[2].Version)
	}
}

func TestLoadMigrations_SortsNumerically(t *testing.T) {
	dir := t.TempDir()
	writeMigrations(t, dir, map[string]string{
		"010_audit.sql":    "SELECT 10;",
		"002_datasets.sql": "SELECT 2;",
		"001_users.sql":    "SELECT 1;",
		"005_billing.sql":  "SELECT 5;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	want := []int{1, 2, 5, 10}
	if len(migrations) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migrations))
	}
	for i, v := range want {
		if migrations[i].Version != v {
			t.Errorf("migration[%d]: expected version %d, got %d", i, v, migrations[i].Version)
		}
	}
}

func TestLoadMigrations_SkipsUnversionedFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigrations(t, dir, map[string]string{
		"001_users.sql":    "SELECT 1;",
		"002_datasets.sql": "SELECT 2;",
		"readme.sql":       "-- no version prefix",
		"abc_bad.sql":      "-- non-numeric prefix",
		"notes.txt":        "not sql",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 valid migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("unexpected versions: %d, %d", migrations[0].Version, migrations[1].Version)
	}
}

func TestLoadMigrations_EmptyDir(t *testing.T) {
	migrations, err := NewMigrator(nil, t.TempDir()).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("expected no migrations, got %d", len(migrations))
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	if _, err := NewMigrator(nil, "/no/such/dir").LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestMigrationStatus_AppliedFlag(t *testing.T) {
	dir := t.TempDir()
	writeMigrations(t, dir, map[string]string{
		"001_users.sql":    "SELECT 1;",
		"002_datasets.sql": "SELECT 2;",
		"003_exports.sql":  "SELECT 3;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	applied := map[int]bool{1: true}
	var statuses []MigrationStatus
	for _, mig := range migrations {
		statuses = append(statuses, MigrationStatus{
			Version: mig.Version,
			Name:    mig.Name,
			Applied: applied[mig.Version],
		})
	}

	if !statuses[0].Applied {
		t.Error("expected migration 001 to be applied")
	}
	for _, s := range statuses[1:] {
		if s.Applied {
			t.Errorf("expected migration %s to be pending", s.Name)
		}
		if s.AppliedAt != nil {
			t.Errorf("expected nil AppliedAt for pending %s", s.Name)
		}
	}
}

func TestNewMigrator(t *testing.T) {
	m := NewMigrator(nil, "./migrations")
	if m == nil {
		t.Fatal("expected non-nil Migrator")
	}
	if m.dir != "./migrations" {
		t.Errorf("unexpected dir: %s", m.dir)
	}
	if m.pool != nil {
		t.Error("expected nil pool")
	}
}
