// Command cfucount is the CLI entrypoint for the CFU Counter batch pipeline.
//
// It parses flags, validates configuration and paths, and either runs
// system diagnostics (--check) or the counting pipeline: discover plate
// images, segment each one with Cellpose, write colony_counts.csv plus one
// overlay PNG per image.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/IAmABurntToast/Cell-Count/internal/check"
	"github.com/IAmABurntToast/Cell-Count/internal/config"
	"github.com/IAmABurntToast/Cell-Count/internal/display"
	"github.com/IAmABurntToast/Cell-Count/internal/logging"
	"github.com/IAmABurntToast/Cell-Count/internal/pipeline"
)

// version and commit are injected at build time via -ldflags.
// When built with plain "go build" (no make), these retain their defaults.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap — the logger doesn't exist yet, so errors go
	// directly to stderr via fmt. Once NewLogger succeeds, all output
	// goes through the logger for consistent formatting and log-file capture.
	// .env (when present) provides CFU_PYTHON / CFU_MODEL defaults.
	_ = godotenv.Load()

	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, version); err != nil {
		fmt.Fprintf(os.Stderr, "cfucount: %v\n", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "cfucount: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cfucount: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available — all output goes through log from here on.
	display.PrintBanner()

	if cfg.CheckOnly {
		if !check.RunCheck(&cfg, log) {
			return 1
		}
		return 0
	}

	// Resolve paths: input must exist and be a directory; the output
	// directory is created if needed (it defaults to the input folder).
	if _, err := absPath(cfg.InputDir); err != nil {
		log.Error("Folder does not exist: %s", cfg.InputDir)
		return 1
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error("Cannot create output directory: %s", cfg.OutputDir)
		return 1
	}

	log.Info("=== CFU Counter v%s (%s) ===", version, commit)
	log.Info("In:  %s", cfg.InputDir)
	log.Info("Out: %s", cfg.OutputDir)
	if cfg.DryRun {
		log.Warn("DRY RUN — no files will be written")
	}
	log.Info("")

	// Fail fast if the python environment can't run the worker at all.
	if !cfg.DryRun {
		if err := check.CheckDeps(&cfg); err != nil {
			log.Error("%v", err)
			return 1
		}
	}

	// Phase 3: Signal handling — cancel context on SIGINT/SIGTERM so the
	// pipeline can stop between images; rows completed so far still land
	// in the result table.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, finishing current image…")
		cancel()
	}()

	// Phase 4: Run pipeline (discover → segment → count → overlay → table).
	// Per-image failures are absorbed inside; only configuration or
	// segmenter-initialization errors reach here, and only those are fatal.
	if _, err := pipeline.Run(ctx, &cfg, log); err != nil {
		log.Error("%v", err)
		return 1
	}
	return 0
}

// absPath returns the absolute, symlink-resolved path; it fails when the
// path does not exist, which is the fatal input-folder check.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
