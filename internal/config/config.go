// Package config holds runtime configuration: defaults, CLI flag parsing,
// optional YAML profile loading, and validation. Defaults match the original
// CFU counting script so existing result tables stay comparable.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// --- Enum types for validated string fields ---

// AccelMode selects the segmentation device, or lets the engine pick one.
type AccelMode string

const (
	AccelAuto AccelMode = "auto" // Try cuda, then mps, then cpu (default).
	AccelCUDA AccelMode = "cuda" // Require a discrete CUDA device.
	AccelMPS  AccelMode = "mps"  // Require Apple Metal (integrated).
	AccelCPU  AccelMode = "cpu"  // Force general-purpose fallback.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by [ParseFlags] before being passed (by pointer) to packages
// that need it. Fields are grouped by concern with inline documentation of
// defaults and fixed values.
type Config struct {
	// Paths (set from positional args). OutputDir falls back to InputDir
	// when the second positional arg is absent or empty.
	InputDir  string
	OutputDir string

	// Segmentation.
	Model     string    // Default: "cpsam". Overridden by CFU_MODEL or --model.
	Accel     AccelMode // Default: "auto".
	PythonBin string    // Default: "python3". Overridden by CFU_PYTHON or --python.
	Downscale float64   // Default: 0.5. Applied before inference to bound memory.
	Channels  [2]int    // Fixed: [0, 0] (single channel, no secondary).

	// Artifacts.
	VisualsDirName string  // Default: "cp_visuals".
	OverlayAlpha   float64 // Default: 0.5. Mask transparency in the overlay.
	OverlayEdge    int     // Default: 1000. Long-edge pixel bound of the overlay PNG.
	SaveMasks      bool    // Also persist raw label masks next to the overlays.

	// Behavior flags.
	DryRun bool // List the worklist only; no model load, no artifacts.

	// Display and logging.
	Verbose     bool
	ColorMode   ColorMode // Default: "auto".
	LogFile     string    // Optional log file path.
	CheckOnly   bool      // Run --check diagnostics and exit.
	ProfileFile string    // Optional YAML profile applied before flags.
}

// DefaultConfig returns a Config with defaults matching the original counting
// script. CFU_PYTHON and CFU_MODEL env vars (optionally from .env, loaded in
// main) override the python binary and model name.
func DefaultConfig() Config {
	python := os.Getenv("CFU_PYTHON")
	if python == "" {
		python = "python3"
	}
	model := os.Getenv("CFU_MODEL")
	if model == "" {
		model = "cpsam"
	}
	return Config{
		Model:          model,
		Accel:          AccelAuto,
		PythonBin:      python,
		Downscale:      0.5,
		Channels:       [2]int{0, 0},
		VisualsDirName: "cp_visuals",
		OverlayAlpha:   0.5,
		OverlayEdge:    1000,
		SaveMasks:      false,
		DryRun:         false,
		Verbose:        false,
		ColorMode:      ColorAuto,
		CheckOnly:      false,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. When not in CheckOnly mode
// it also requires a non-empty input directory.
func (c *Config) Validate() error {
	switch c.Accel {
	case AccelAuto, AccelCUDA, AccelMPS, AccelCPU:
		// valid
	default:
		return errors.New("invalid accel mode (use 'auto', 'cuda', 'mps' or 'cpu')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Model == "" {
		return errors.New("model name must not be empty")
	}
	if c.PythonBin == "" {
		return errors.New("python binary must not be empty")
	}
	if c.Downscale <= 0 || c.Downscale > 1 {
		return fmt.Errorf("downscale must be in (0, 1], got %v", c.Downscale)
	}
	if c.OverlayAlpha < 0 || c.OverlayAlpha > 1 {
		return fmt.Errorf("overlay alpha must be in [0, 1], got %v", c.OverlayAlpha)
	}
	if c.OverlayEdge <= 0 {
		return fmt.Errorf("overlay edge must be positive, got %d", c.OverlayEdge)
	}
	if c.VisualsDirName == "" || strings.ContainsAny(c.VisualsDirName, `/\`) {
		return fmt.Errorf("visuals dir must be a plain directory name, got %q", c.VisualsDirName)
	}

	if c.CheckOnly {
		return nil
	}
	if c.InputDir == "" {
		return errors.New("need an input folder")
	}
	return nil
}
