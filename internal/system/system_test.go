package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindLatestLayout(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		filepath.Join(dir, "home.yaml"),
		filepath.Join(dir, "pricing.YML"),
		filepath.Join(dir, "notes.txt"),
	}
	for i, f := range files {
		if err := os.WriteFile(f, []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}

	latest, err := FindLatestLayout(dir)
	if err != nil {
		t.Fatalf("FindLatestLayout failed: %v", err)
	}
	if latest != files[1] {
		t.Errorf("Expected %s, got %s", files[1], latest)
	}
}

func TestFindLatestEmpty(t *testing.T) {
	if _, err := FindLatestLayout(t.TempDir()); err == nil {
		t.Error("Expected error for empty directory")
	}
}
