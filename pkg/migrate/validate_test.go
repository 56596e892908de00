package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

const validSQL = "-- +goose Up\nCREATE TABLE t (id int);\n-- +goose Down\nDROP TABLE t;\n"

func TestValidateDir_Valid(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250818094500_create_t.sql", validSQL)

	if err := ValidateDir(dir); err != nil {
		t.Fatalf("expected valid dir, got %v", err)
	}
}

func TestValidateDir_BadFilename(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "create_t.sql", validSQL)

	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected filename error")
	}
}

func TestValidateDir_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250818094500_first.sql", validSQL)
	writeMigration(t, dir, "20250818094500_second.sql", validSQL)

	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestValidateDir_MissingGooseHeaders(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250818094500_broken.sql", "CREATE TABLE t (id int);")

	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected missing header error")
	}
}

func TestValidateDir_ShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations must validate: %v", err)
	}
}
