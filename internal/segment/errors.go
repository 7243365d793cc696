package segment

import (
	"errors"
	"regexp"
	"strings"
)

// Sentinel errors returned during engine startup.
var (
	ErrPythonNotFound = errors.New("python interpreter not found")
	ErrNoDevice       = errors.New("segmentation model failed to initialize on every device")
	ErrWorkerProtocol = errors.New("unexpected output from segmentation worker")
)

// Pre-compiled regexes for classifying worker stderr into known failure
// categories. Checked in order by [Classify]; the first match wins.
var (
	reOutOfMemory = regexp.MustCompile(
		`(?i)CUDA out of memory|MPS backend out of memory|` +
			`cannot allocate memory|Killed|MemoryError`)

	reMissingModule = regexp.MustCompile(
		`(?i)ModuleNotFoundError: No module named '(cellpose|torch|numpy|cv2)'`)

	reDeviceUnavailable = regexp.MustCompile(
		`(?i)CUDA (driver|device|error|unavailable)|` +
			`Torch not compiled with CUDA|` +
			`MPS (backend )?is not available|no kernel image`)

	reImageDecode = regexp.MustCompile(
		`(?i)cannot identify image file|could not (read|load) image|` +
			`truncated|corrupt|not a TIFF`)
)

// Classify maps worker stderr to a short human hint, or "" when nothing
// matches. Hints are advisory text for log lines, never control flow.
func Classify(stderr string) string {
	switch {
	case reMissingModule.MatchString(stderr):
		return "python environment is missing a required module"
	case reOutOfMemory.MatchString(stderr):
		return "out of memory (try a smaller --downscale)"
	case reDeviceUnavailable.MatchString(stderr):
		return "requested device is unavailable"
	case reImageDecode.MatchString(stderr):
		return "image could not be decoded"
	}
	return ""
}

// lastStderrLines returns up to n trailing non-empty lines of captured
// stderr for error messages.
func lastStderrLines(stderr string, n int) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			kept = append([]string{s}, kept...)
		}
	}
	return strings.Join(kept, "; ")
}
