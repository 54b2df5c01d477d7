package migrations

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMigrationVersion(t *testing.T) {
	if got := MigrationVersion("migrations/002_add_favorites.sql"); got != "002" {
		t.Fatalf("MigrationVersion = %q", got)
	}
}

func TestSortedSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := SortedSQLFiles(entries)
	if !reflect.DeepEqual(got, []string{"001_a.sql", "002_b.sql"}) {
		t.Fatalf("SortedSQLFiles = %v", got)
	}
}

func TestSchemaMigrationsPresent(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("..", "..", "..", "migrations"))
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	files := SortedSQLFiles(entries)
	if len(files) == 0 || MigrationVersion(files[0]) != "001" {
		t.Fatalf("expected 001 migration first, got %v", files)
	}
}
