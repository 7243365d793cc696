package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/IAmABurntToast/Cell-Count/internal/config"
	"github.com/IAmABurntToast/Cell-Count/internal/display"
	"github.com/IAmABurntToast/Cell-Count/internal/logging"
	"github.com/IAmABurntToast/Cell-Count/internal/overlay"
	"github.com/IAmABurntToast/Cell-Count/internal/segment"
)

// Standard plate-counting convention treats 30-300 CFU as the reliable
// countable range. Counts outside it are flagged at OUTLIER level so a
// human takes a look; the row is still recorded.
const (
	countableLow  = 30
	countableHigh = 300
)

// renderOverlay is swapped out in tests so the runner's isolation and
// determinism behavior can be exercised without OpenCV or real plate images.
var renderOverlay = overlay.Render

// Run is the top-level batch entry point: discover, acquire the segmenter,
// process each image sequentially, write the result table. The returned
// error is fatal (bad input folder, segmenter init, unwritable output);
// per-image failures are absorbed into stats and do not surface here.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger) (RunStats, error) {
	return run(ctx, cfg, log, nil)
}

// RunWithSegmenter is Run with segmenter acquisition skipped in favor of the
// given instance. It exists so pipeline behavior can be tested against a
// deterministic stub without the real model.
func RunWithSegmenter(ctx context.Context, cfg *config.Config, log *logging.Logger, seg segment.Segmenter) (RunStats, error) {
	return run(ctx, cfg, log, seg)
}

func run(ctx context.Context, cfg *config.Config, log *logging.Logger, seg segment.Segmenter) (RunStats, error) {
	var stats RunStats

	refs, err := Discover(cfg.InputDir)
	if err != nil {
		return stats, err
	}
	stats.Total = len(refs)

	log.Info("Found %d images in %s", len(refs), cfg.InputDir)
	for i, ref := range refs {
		log.Info("  [%d] %s", i+1, ref.Name())
	}

	// Empty worklist: successful no-op. No result table, no overlay dir.
	if len(refs) == 0 {
		return stats, nil
	}

	if cfg.DryRun {
		log.Warn("DRY RUN: would process %d images, writing %s and %s/",
			len(refs), ResultFileName, cfg.VisualsDirName)
		return stats, nil
	}

	visualsDir := filepath.Join(cfg.OutputDir, cfg.VisualsDirName)
	if err := os.MkdirAll(visualsDir, 0o755); err != nil {
		return stats, fmt.Errorf("create visuals directory: %w", err)
	}
	log.Info("Saving overlay images to: %s", visualsDir)

	if seg == nil {
		eng, err := acquireSegmenter(ctx, cfg, log)
		if err != nil {
			return stats, err
		}
		defer eng.Close()
		seg = eng
	}

	opts := segment.Options{
		Channels:  cfg.Channels,
		Diameter:  0, // automatic diameter estimation
		Downscale: cfg.Downscale,
	}

	records := make([]CountRecord, 0, len(refs))
	for i, ref := range refs {
		stats.Current = i + 1

		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}

		rec, err := processImage(ctx, cfg, log, seg, ref, visualsDir, opts, &stats)
		if err != nil {
			// The failure boundary: log and move on. No row, no overlay.
			log.Error("ERROR processing %s: %v", ref.Name(), err)
			stats.Failed++
			continue
		}
		records = append(records, rec)
		stats.Counted++
		stats.TotalColonies += rec.Count
	}

	tablePath := filepath.Join(cfg.OutputDir, ResultFileName)
	if err := WriteCounts(tablePath, records); err != nil {
		return stats, err
	}

	logSummary(log, &stats, tablePath, visualsDir)
	return stats, nil
}

// acquireSegmenter starts the Cellpose engine once for the whole run and
// reports the chosen execution mode. Initialization failure is fatal; there
// is no per-image fallback.
func acquireSegmenter(ctx context.Context, cfg *config.Config, log *logging.Logger) (*segment.Engine, error) {
	var pinned segment.Device
	if cfg.Accel != config.AccelAuto {
		pinned = segment.Device(cfg.Accel)
	}

	log.Info("Loading %s model (accel=%s)...", cfg.Model, cfg.Accel)
	eng, err := segment.Start(ctx, segment.StartConfig{
		Python: cfg.PythonBin,
		Model:  cfg.Model,
		Device: pinned,
	})
	if err != nil {
		return nil, err
	}

	if eng.Accelerated() {
		log.Success("Segmenter ready: %s on %s (accelerated)", eng.Model(), eng.Device())
	} else {
		log.Info("Segmenter ready: %s on %s", eng.Model(), eng.Device())
		log.Warn("No GPU in use. Processing on CPU will be slow for large images!")
	}
	return eng, nil
}

// processImage handles one plate inside the failure boundary:
// infer -> count -> overlay -> record. Any error aborts this image only.
func processImage(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	seg segment.Segmenter,
	ref ImageRef,
	visualsDir string,
	opts segment.Options,
	stats *RunStats,
) (CountRecord, error) {
	log.Info("[%d/%d] Processing %s ...", stats.Current, stats.Total, ref.Name())
	start := time.Now()

	res, err := seg.Infer(ctx, ref.Path, opts)
	if err != nil {
		return CountRecord{}, fmt.Errorf("inference: %w", err)
	}

	count := res.Mask.MaxLabel()
	log.Info("  shape: %s", res.ShapeString())
	log.Info("  -> predicted %d colonies", count)
	logCountOutlier(log, ref.Name(), count)

	overlayPath := filepath.Join(visualsDir, ref.Stem+"_overlay.png")
	renderOpts := overlay.Options{Alpha: cfg.OverlayAlpha, LongEdge: cfg.OverlayEdge}
	if err := renderOverlay(ref.Path, res.Mask, overlayPath, renderOpts); err != nil {
		return CountRecord{}, fmt.Errorf("render overlay: %w", err)
	}
	log.Render("  saved overlay: %s", filepath.Base(overlayPath))

	if fi, err := os.Stat(overlayPath); err == nil {
		stats.OverlayBytes += fi.Size()
	}

	if cfg.SaveMasks {
		maskPath := filepath.Join(visualsDir, ref.Stem+"_mask.png")
		if err := copyFile(res.MaskPath, maskPath); err != nil {
			return CountRecord{}, fmt.Errorf("save mask: %w", err)
		}
		log.Render("  saved mask: %s", filepath.Base(maskPath))
	}

	log.Debug(cfg.Verbose, "  done in %s", display.FormatDuration(time.Since(start)))
	return CountRecord{Stem: ref.Stem, Count: count}, nil
}

// logCountOutlier flags counts outside the 30-300 countable range. Advisory
// only; the recorded count is unchanged.
func logCountOutlier(log *logging.Logger, name string, count int) {
	switch {
	case count == 0:
		log.Outlier("  No colonies detected in %s", name)
	case count < countableLow:
		log.Outlier("  Count below countable range: %d < %d (%s)", count, countableLow, name)
	case count > countableHigh:
		log.Outlier("  Count above countable range (TNTC): %d > %d (%s)", count, countableHigh, name)
	}
}

func logSummary(log *logging.Logger, stats *RunStats, tablePath, visualsDir string) {
	log.Info("==============================")
	log.Info("Done: %d counted, %d failed", stats.Counted, stats.Failed)
	if stats.Counted > 0 {
		log.Info("  Colonies: %d total, %.1f per plate", stats.TotalColonies, stats.MeanCount())
		log.Info("  Overlays: %s written", display.FormatBytes(stats.OverlayBytes))
	}
	log.Success("Done. Wrote %s", tablePath)
	log.Success("Overlay images saved in: %s", visualsDir)
}

// copyFile copies the worker's mask file out of the per-run temp dir into
// the visuals directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
