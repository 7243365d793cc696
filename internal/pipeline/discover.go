package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Recognized plate image extensions (lowercase, with leading dot).
var imageExtensions = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ErrNotDirectory is returned when the input folder is missing or not a
// directory. It is fatal for the run; no output is written.
var ErrNotDirectory = errors.New("folder does not exist")

// ImageRef is one discovered plate image. The stem (filename without
// extension) is the stable identifier for this plate across all outputs.
// Refs are created here and never mutated by the runner.
type ImageRef struct {
	Path string
	Stem string
	Ext  string
}

// Name returns the base filename, for log lines.
func (r ImageRef) Name() string { return filepath.Base(r.Path) }

// Discover lists inputDir (flat, no recursion), keeps regular files with a
// recognized image extension, excludes hidden dot-files, and returns the
// refs sorted lexicographically by path. The ordering governs processing
// order and result-table row order, so it must be reproducible for
// identical folder contents.
func Discover(inputDir string) ([]ImageRef, error) {
	fi, err := os.Stat(inputDir)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, inputDir)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", inputDir, err)
	}

	var refs []ImageRef
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !imageExtensions[ext] {
			continue
		}
		refs = append(refs, ImageRef{
			Path: filepath.Join(inputDir, name),
			Stem: strings.TrimSuffix(name, filepath.Ext(name)),
			Ext:  ext,
		})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}
