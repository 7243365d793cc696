// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation (CheckDeps) for the python interpreter, the cellpose
// module, torch devices, and the OpenCV bindings.
package check

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"gocv.io/x/gocv"

	"github.com/IAmABurntToast/Cell-Count/internal/config"
)

// Sentinel errors returned by CheckDeps when a required piece is missing.
var (
	ErrPythonNotFound   = errors.New("python interpreter not found on PATH")
	ErrCellposeMissing  = errors.New("cellpose is not importable in the selected python environment")
	ErrWorkerDepMissing = errors.New("python environment is missing a worker dependency (torch, numpy or cv2)")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck runs the interactive --check flow: python version, cellpose
// import, torch device availability, and the OpenCV bindings backing overlay
// rendering. Informational only; it reports problems but checks everything.
// Returns false when any required piece is missing.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")

	ok := checkPython(cfg, log)
	if ok {
		ok = checkCellpose(cfg, log) && ok
		checkDevices(cfg, log)
	}
	checkOpenCV(log)
	return ok
}

// checkPython verifies the interpreter is runnable and logs its version.
func checkPython(cfg *config.Config, log Logger) bool {
	if _, err := exec.LookPath(cfg.PythonBin); err != nil {
		log.Error("python not found: %s", cfg.PythonBin)
		return false
	}
	out, err := exec.Command(cfg.PythonBin, "--version").CombinedOutput()
	if err != nil {
		log.Error("%s --version failed: %v", cfg.PythonBin, err)
		return false
	}
	log.Success("python: %s", strings.TrimSpace(string(out)))
	return true
}

// checkCellpose imports cellpose and reports its version.
func checkCellpose(cfg *config.Config, log Logger) bool {
	out, err := exec.Command(cfg.PythonBin, "-c",
		"import cellpose; print(cellpose.version)").Output()
	if err != nil {
		log.Error("cellpose not importable (pip install cellpose)")
		return false
	}
	log.Success("cellpose: %s", strings.TrimSpace(string(out)))
	return true
}

// checkDevices queries torch for accelerator availability in the same
// preference order the engine uses.
func checkDevices(cfg *config.Config, log Logger) {
	out, err := exec.Command(cfg.PythonBin, "-c",
		"import torch;"+
			"print('cuda' if torch.cuda.is_available() else '-');"+
			"print('mps' if torch.backends.mps.is_available() else '-')").Output()
	if err != nil {
		log.Error("torch not importable (pip install torch)")
		return
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	cuda := len(lines) > 0 && strings.TrimSpace(lines[0]) == "cuda"
	mps := len(lines) > 1 && strings.TrimSpace(lines[1]) == "mps"

	switch {
	case cuda:
		log.Success("GPU detected (CUDA)")
	case mps:
		log.Success("GPU detected (MPS/Mac)")
	default:
		log.Warn("No GPU detected; inference will run on CPU")
	}
	log.Debug(cfg.Verbose, "device probe: cuda=%v mps=%v", cuda, mps)
}

// checkOpenCV reports the OpenCV version linked into the overlay renderer.
func checkOpenCV(log Logger) {
	log.Success("OpenCV bindings: %s", gocv.OpenCVVersion())
}

// CheckDeps is the pre-pipeline validation: the interpreter must exist and
// the worker's imports must succeed, so the run fails fast instead of at
// model-load time. Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.PythonBin); err != nil {
		return fmt.Errorf("%w: %s", ErrPythonNotFound, cfg.PythonBin)
	}
	if !runSilent(cfg.PythonBin, "-c", "import cellpose") {
		return ErrCellposeMissing
	}
	if !runSilent(cfg.PythonBin, "-c", "import torch, numpy, cv2") {
		return ErrWorkerDepMissing
	}
	return nil
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
