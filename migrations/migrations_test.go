package migrations

import (
	"strings"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := FS.ReadDir(".")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("Expected at least one embedded migration")
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			t.Errorf("Unexpected embedded file %s", entry.Name())
		}
	}

	data, err := FS.ReadFile("00001_init.sql")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "+goose Up") {
		t.Error("Expected goose Up directive in initial migration")
	}
}
