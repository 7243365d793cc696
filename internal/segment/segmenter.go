package segment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Options carries the fixed per-run inference settings. The runner uses one
// Options value for the whole batch; nothing here is tunable per image.
type Options struct {
	Channels  [2]int  // Channel configuration; [0, 0] = single channel, no secondary.
	Diameter  float64 // 0 = automatic diameter estimation.
	Downscale float64 // Applied before inference to bound memory and time.
}

// Result is one successful inference: the label mask, the worker-owned path
// of the raw mask PNG, and the input image shape as the worker saw it.
type Result struct {
	Mask     *LabelMask
	MaskPath string
	Shape    []int // [height, width] or [height, width, channels].
}

// ShapeString renders the input shape for progress lines, e.g. "1024x1024x3".
func (r *Result) ShapeString() string {
	if len(r.Shape) == 0 {
		return "unknown"
	}
	parts := make([]string, len(r.Shape))
	for i, d := range r.Shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

// Segmenter is the capability the batch runner depends on: one image in,
// one label mask out. Implementations are not assumed reentrant; the runner
// calls Infer strictly sequentially.
type Segmenter interface {
	Infer(ctx context.Context, imagePath string, opts Options) (*Result, error)
}

// Device identifies a segmentation execution device.
type Device string

const (
	DeviceCUDA Device = "cuda" // Discrete accelerator.
	DeviceMPS  Device = "mps"  // Integrated accelerator (Apple Metal).
	DeviceCPU  Device = "cpu"  // General-purpose fallback.
)

// Accelerated reports whether the device is a hardware accelerator.
func (d Device) Accelerated() bool { return d == DeviceCUDA || d == DeviceMPS }

func (d Device) String() string { return string(d) }

// ParseDevice validates a device name.
func ParseDevice(s string) (Device, error) {
	switch Device(strings.ToLower(s)) {
	case DeviceCUDA:
		return DeviceCUDA, nil
	case DeviceMPS:
		return DeviceMPS, nil
	case DeviceCPU:
		return DeviceCPU, nil
	}
	return "", fmt.Errorf("unknown device %q", s)
}
