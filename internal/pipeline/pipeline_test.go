package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// --- Discover tests ---

func TestDiscover_FiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.tif")
	touch(t, dir, "b.TIFF")
	touch(t, dir, ".hidden.png")
	touch(t, dir, "notes.txt")

	refs, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"a.tif", "b.TIFF"}
	got := basenames(refs)
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDiscover_AllImageExtensions(t *testing.T) {
	dir := t.TempDir()
	exts := []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"}
	for _, ext := range exts {
		touch(t, dir, "plate"+ext)
	}
	touch(t, dir, "plate.bmp")
	touch(t, dir, "plate.csv")

	refs, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != len(exts) {
		t.Errorf("got %d refs, want %d", len(refs), len(exts))
	}
}

func TestDiscover_CaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "PLATE.TIF")
	touch(t, dir, "Plate.Png")

	refs, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("got %d refs, want 2 (case-insensitive ext matching)", len(refs))
	}
}

func TestDiscover_NonRecursive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "top.tif")
	os.MkdirAll(filepath.Join(dir, "nested"), 0o755)
	touch(t, filepath.Join(dir, "nested"), "inner.tif")

	refs, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("got %d refs, want 1 (no recursion)", len(refs))
	}
}

func TestDiscover_SortedAndReproducible(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.tif", "a.tif", "b.tif"} {
		touch(t, dir, name)
	}

	first, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	for i := 1; i < len(first); i++ {
		if first[i].Path < first[i-1].Path {
			t.Errorf("not sorted: %q before %q", first[i-1].Path, first[i].Path)
		}
	}

	second, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !sliceEqual(basenames(first), basenames(second)) {
		t.Errorf("two runs differ: %v vs %v", basenames(first), basenames(second))
	}
}

func TestDiscover_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	refs, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("got %d refs, want 0", len(refs))
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrNotDirectory) {
		t.Errorf("got %v, want ErrNotDirectory", err)
	}
}

func TestDiscover_FileNotDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "plate.tif")
	_, err := Discover(filepath.Join(dir, "plate.tif"))
	if !errors.Is(err, ErrNotDirectory) {
		t.Errorf("got %v, want ErrNotDirectory", err)
	}
}

func TestImageRef_Stem(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "plate_01.final.tif")

	refs, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if refs[0].Stem != "plate_01.final" {
		t.Errorf("stem: got %q, want %q", refs[0].Stem, "plate_01.final")
	}
	if refs[0].Ext != ".tif" {
		t.Errorf("ext: got %q, want %q", refs[0].Ext, ".tif")
	}
}

// --- RunStats tests ---

func TestRunStats_MeanCount(t *testing.T) {
	s := RunStats{Counted: 4, TotalColonies: 100}
	if got := s.MeanCount(); got != 25 {
		t.Errorf("MeanCount: got %v, want 25", got)
	}

	var empty RunStats
	if got := empty.MeanCount(); got != 0 {
		t.Errorf("MeanCount (empty): got %v, want 0", got)
	}
}

// --- helpers ---

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func basenames(refs []ImageRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Name()
	}
	return out
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
