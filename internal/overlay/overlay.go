// Package overlay renders the per-image visual artifact: the original plate
// photo with the label mask drawn on top semi-transparently, background
// excluded, written as a PNG with a bounded long edge.
package overlay

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/IAmABurntToast/Cell-Count/internal/segment"
)

// Options controls overlay rendering. Zero values fall back to the fixed
// defaults used by the original figures.
type Options struct {
	Alpha    float64 // Mask transparency; default 0.5.
	LongEdge int     // Output long-edge pixel bound; default 1000.
}

func (o Options) withDefaults() Options {
	if o.Alpha <= 0 || o.Alpha > 1 {
		o.Alpha = 0.5
	}
	if o.LongEdge <= 0 {
		o.LongEdge = 1000
	}
	return o
}

// Render decodes the original image, colors the mask labels, alpha-blends
// them over the base where the mask is non-zero, bounds the long edge, and
// writes the PNG. The mask is nearest-neighbor resized to the base image
// when their dimensions differ (the mask may come from downscaled inference).
func Render(imagePath string, mask *segment.LabelMask, outPath string, opts Options) error {
	opts = opts.withDefaults()

	base := gocv.IMRead(imagePath, gocv.IMReadColor)
	if base.Empty() {
		return fmt.Errorf("cannot decode image %s", imagePath)
	}
	defer base.Close()

	colored, binary, err := colorize(mask)
	if err != nil {
		return err
	}
	defer colored.Close()
	defer binary.Close()

	if colored.Rows() != base.Rows() || colored.Cols() != base.Cols() {
		size := image.Pt(base.Cols(), base.Rows())
		resizedColor := gocv.NewMat()
		gocv.Resize(colored, &resizedColor, size, 0, 0, gocv.InterpolationNearestNeighbor)
		colored.Close()
		colored = resizedColor

		resizedBin := gocv.NewMat()
		gocv.Resize(binary, &resizedBin, size, 0, 0, gocv.InterpolationNearestNeighbor)
		binary.Close()
		binary = resizedBin
	}

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(base, 1-opts.Alpha, colored, opts.Alpha, 0, &blended)

	out := base.Clone()
	defer out.Close()
	blended.CopyToWithMask(&out, binary)

	if long := maxInt(out.Cols(), out.Rows()); long > opts.LongEdge {
		scale := float64(opts.LongEdge) / float64(long)
		size := image.Pt(int(float64(out.Cols())*scale), int(float64(out.Rows())*scale))
		shrunk := gocv.NewMat()
		defer shrunk.Close()
		gocv.Resize(out, &shrunk, size, 0, 0, gocv.InterpolationArea)
		if !gocv.IMWrite(outPath, shrunk) {
			return fmt.Errorf("cannot write overlay %s", outPath)
		}
		return nil
	}

	if !gocv.IMWrite(outPath, out) {
		return fmt.Errorf("cannot write overlay %s", outPath)
	}
	return nil
}

// colorize builds a BGR image with each positive label painted its palette
// color, plus a binary mask of the non-background pixels for blending.
func colorize(mask *segment.LabelMask) (gocv.Mat, gocv.Mat, error) {
	colored := gocv.NewMatWithSize(mask.Rows, mask.Cols, gocv.MatTypeCV8UC3)
	binary := gocv.NewMatWithSize(mask.Rows, mask.Cols, gocv.MatTypeCV8U)

	cdata, err := colored.DataPtrUint8()
	if err != nil {
		colored.Close()
		binary.Close()
		return gocv.Mat{}, gocv.Mat{}, fmt.Errorf("access overlay buffer: %w", err)
	}
	bdata, err := binary.DataPtrUint8()
	if err != nil {
		colored.Close()
		binary.Close()
		return gocv.Mat{}, gocv.Mat{}, fmt.Errorf("access overlay buffer: %w", err)
	}

	for i, label := range mask.Labels {
		if label == 0 {
			cdata[i*3], cdata[i*3+1], cdata[i*3+2] = 0, 0, 0
			bdata[i] = 0
			continue
		}
		b, g, r := colorFor(label)
		cdata[i*3], cdata[i*3+1], cdata[i*3+2] = b, g, r
		bdata[i] = 255
	}
	return colored, binary, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
