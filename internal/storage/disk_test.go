package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	inv := filepath.Join(dir, "inventories.json")
	if err := os.WriteFile(inv, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(inv)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("single file: got %d bytes, want 3", got)
	}

	sub := filepath.Join(dir, "db")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(sub)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("dir: got %d bytes, want 3", got)
	}

	got, err = DiskUsageBytes(inv, "", filepath.Join(dir, "missing"), sub)
	if err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Errorf("mixed: got %d bytes, want 6", got)
	}
}
