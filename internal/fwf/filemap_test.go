package fwf

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.fwf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestOpenFileMapReadsWholeFile(t *testing.T) {
	path := writeTempFile(t, "AAAA\nBBBB\n")
	fm, err := OpenFileMap(path)
	if err != nil {
		t.Fatalf("OpenFileMap: %v", err)
	}
	defer func() { _ = fm.Close() }()

	if fm.Len() != 10 {
		t.Fatalf("expected length 10, got %d", fm.Len())
	}
	if string(fm.Bytes()) != "AAAA\nBBBB\n" {
		t.Fatalf("unexpected contents: %q", fm.Bytes())
	}
}

func TestFileMapSliceBoundsChecked(t *testing.T) {
	path := writeTempFile(t, "AAAA\n")
	fm, err := OpenFileMap(path)
	if err != nil {
		t.Fatalf("OpenFileMap: %v", err)
	}
	defer func() { _ = fm.Close() }()

	if _, err := fm.Slice(0, 5); err != nil {
		t.Fatalf("unexpected error for an in-bounds slice: %v", err)
	}
	if _, err := fm.Slice(0, 6); err == nil {
		t.Fatal("expected an error for a slice past the mapped length")
	}
	if _, err := fm.Slice(3, 1); err == nil {
		t.Fatal("expected an error when start > end")
	}
}

func TestOpenFileMapMissingFile(t *testing.T) {
	if _, err := OpenFileMap(filepath.Join(t.TempDir(), "missing.fwf")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
