package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IAmABurntToast/Cell-Count/internal/config"
)

func testConfig(logFile string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.LogFile = logFile
	return &cfg
}

func TestNewLogger_NoFile(t *testing.T) {
	log, err := NewLogger(testConfig(""))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer log.Close()

	if log.file != nil {
		t.Error("expected no file sink")
	}
	// Must not panic without a sink.
	log.Info("processing %d images", 3)
	log.Error("boom")
}

func TestNewLogger_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewLogger(testConfig(path))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	log.Info("hello")
	log.Warn("careful")
	log.Success("done")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	for _, want := range []string{"[INFO] hello", "[WARN] careful", "[SUCCESS] done"} {
		if !strings.Contains(content, want) {
			t.Errorf("log missing %q in:\n%s", want, content)
		}
	}
	if strings.Contains(content, "\x1b[") {
		t.Error("file sink must not contain ANSI escapes")
	}
}

func TestNewLogger_CreatesLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "run.log")
	log, err := NewLogger(testConfig(path))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("line")
	log.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestDebug_GatedByVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewLogger(testConfig(path))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Debug(false, "hidden")
	log.Debug(true, "shown")
	log.Close()

	data, _ := os.ReadFile(path)
	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Error("non-verbose debug line leaked into log")
	}
	if !strings.Contains(content, "[DEBUG] shown") {
		t.Errorf("verbose debug line missing in:\n%s", content)
	}
}

func TestClose_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewLogger(testConfig(path))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	// Logging after close must not panic; terminal output still works.
	log.Info("after close")
}
