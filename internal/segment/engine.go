package segment

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

//go:embed worker.py
var workerScript []byte

// devicePreference is the fixed acquisition order: discrete accelerator,
// integrated accelerator, general-purpose fallback.
var devicePreference = []Device{DeviceCUDA, DeviceMPS, DeviceCPU}

// StartConfig configures engine startup.
type StartConfig struct {
	Python string // Python interpreter binary.
	Model  string // Cellpose pretrained model name.
	Device Device // Empty = try the preference order.
}

// Engine drives the Cellpose worker subprocess. It implements [Segmenter].
// The model is loaded once at Start; Infer sends one request per image.
// Not safe for concurrent Infer calls by design; the batch runner is
// strictly sequential.
type Engine struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	stderr  *bytes.Buffer

	device  Device
	model   string
	workDir string
	seq     int
}

// Start materializes the embedded worker script into a per-run temp
// directory and launches the worker, trying devices in the fixed preference
// order unless cfg.Device pins one. The returned engine has a loaded model
// and a reported device; any startup failure is fatal for the whole run.
func Start(ctx context.Context, cfg StartConfig) (*Engine, error) {
	workDir, err := os.MkdirTemp("", "cfucount-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	script := filepath.Join(workDir, "worker.py")
	if err := os.WriteFile(script, workerScript, 0o644); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("write worker script: %w", err)
	}

	candidates := devicePreference
	if cfg.Device != "" {
		candidates = []Device{cfg.Device}
	}

	var attempts []error
	for _, dev := range candidates {
		eng, err := startWorker(ctx, cfg, script, dev)
		if err == nil {
			eng.workDir = workDir
			return eng, nil
		}
		// A missing interpreter cannot succeed on any device.
		if errors.Is(err, ErrPythonNotFound) {
			os.RemoveAll(workDir)
			return nil, err
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", dev, err))
	}

	os.RemoveAll(workDir)
	return nil, fmt.Errorf("%w: %w", ErrNoDevice, errors.Join(attempts...))
}

// startWorker launches one worker process for a single device and waits for
// its handshake. The timing depends on model load, which can take minutes on
// CPU; there is deliberately no timeout here.
func startWorker(ctx context.Context, cfg StartConfig, script string, dev Device) (*Engine, error) {
	cmd := exec.CommandContext(ctx, cfg.Python, script,
		"--model", cfg.Model,
		"--device", string(dev),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrBuf := &bytes.Buffer{}
	cmd.Stderr = stderrBuf

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPythonNotFound, cfg.Python)
		}
		return nil, fmt.Errorf("start worker: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		_ = cmd.Wait()
		return nil, handshakeError(stderrBuf.String())
	}
	ev, err := ParseEvent(scanner.Bytes())
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	switch ev.Event {
	case "ready":
		return &Engine{
			cmd:     cmd,
			stdin:   stdin,
			scanner: scanner,
			stderr:  stderrBuf,
			device:  dev,
			model:   cfg.Model,
		}, nil
	case "fatal":
		_ = cmd.Wait()
		return nil, fmt.Errorf("model init: %s", ev.Error)
	}
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	return nil, fmt.Errorf("%w: handshake event %q", ErrWorkerProtocol, ev.Event)
}

func handshakeError(stderr string) error {
	if hint := Classify(stderr); hint != "" {
		return fmt.Errorf("worker exited before handshake (%s): %s", hint, lastStderrLines(stderr, 3))
	}
	if tail := lastStderrLines(stderr, 3); tail != "" {
		return fmt.Errorf("worker exited before handshake: %s", tail)
	}
	return errors.New("worker exited before handshake")
}

// Device returns the device the model was loaded on.
func (e *Engine) Device() Device { return e.device }

// Accelerated reports whether the engine runs on accelerator hardware.
func (e *Engine) Accelerated() bool { return e.device.Accelerated() }

// Model returns the loaded model name.
func (e *Engine) Model() string { return e.model }

// Infer sends one image to the worker and reads the resulting label mask back
// from disk. Errors here are per-image: the engine stays usable for the next
// call unless the worker process itself died.
func (e *Engine) Infer(ctx context.Context, imagePath string, opts Options) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.seq++
	maskPath := filepath.Join(e.workDir, fmt.Sprintf("mask_%04d.png", e.seq))
	req := inferRequest{
		Image:     imagePath,
		Mask:      maskPath,
		Channels:  opts.Channels[:],
		Diameter:  opts.Diameter,
		Downscale: opts.Downscale,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := e.stdin.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write to worker: %w", err)
	}

	if !e.scanner.Scan() {
		if hint := Classify(e.stderr.String()); hint != "" {
			return nil, fmt.Errorf("worker died (%s): %s", hint, lastStderrLines(e.stderr.String(), 3))
		}
		return nil, fmt.Errorf("worker died: %s", lastStderrLines(e.stderr.String(), 3))
	}
	ev, err := ParseEvent(e.scanner.Bytes())
	if err != nil {
		return nil, err
	}
	if ev.Event != "result" {
		return nil, fmt.Errorf("%w: expected result, got %q", ErrWorkerProtocol, ev.Event)
	}
	if !ev.OK {
		if hint := Classify(ev.Error); hint != "" {
			return nil, fmt.Errorf("inference: %s (%s)", ev.Error, hint)
		}
		return nil, fmt.Errorf("inference: %s", ev.Error)
	}

	mask, err := ReadMask(ev.Mask)
	if err != nil {
		return nil, err
	}
	return &Result{Mask: mask, MaskPath: ev.Mask, Shape: ev.Shape}, nil
}

// Close shuts the worker down (stdin EOF ends its request loop) and removes
// the per-run work directory, including all intermediate mask files.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var closeErr error
	if e.stdin != nil {
		closeErr = e.stdin.Close()
		e.stdin = nil
	}
	if e.cmd != nil {
		waitErr := e.cmd.Wait()
		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) && closeErr == nil {
			closeErr = waitErr
		}
		e.cmd = nil
	}
	if e.workDir != "" {
		if err := os.RemoveAll(e.workDir); err != nil && closeErr == nil {
			closeErr = err
		}
		e.workDir = ""
	}
	return closeErr
}
