package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into segmentation, artifacts, behavior, display, and utility.
// Negated flags (e.g. --no-color) are applied after Parse so Config defaults hold unless set.

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// ParseFlags parses os.Args into cfg. On --help or --version it prints and exits.
// On error it returns non-nil (e.g. unknown flag, missing positional args).
// A --profile file, when given, is applied before flag parsing so explicit
// flags always win over profile values.
func ParseFlags(cfg *Config, version string) error {
	if path := profileArg(os.Args[1:]); path != "" {
		cfg.ProfileFile = path
		if err := ApplyProfile(cfg, path); err != nil {
			return err
		}
	}

	fs := flag.NewFlagSet("cfucount", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs, version) }

	// Negated/override flags: we capture bools then apply to cfg after Parse,
	// so that defaults from DefaultConfig() hold unless the user passes the flag.
	var negated negatedFlags

	defineSegmentationFlags(fs, cfg)
	defineArtifactFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, cfg, &negated)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(fs, version)
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "cfucount v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(fs, cfg)
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default (e.g. noColor -> ColorMode=never) or trigger exit (showHelp, showVersion).
type negatedFlags struct {
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineSegmentationFlags registers --model, --accel, --python, --downscale.
func defineSegmentationFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Cellpose pretrained model name")
	fs.StringVar(&cfg.Model, "m", cfg.Model, "Same as --model")
	fs.Var(&accelModeValue{&cfg.Accel}, "accel", "Device: auto | cuda | mps | cpu")
	fs.Var(&accelModeValue{&cfg.Accel}, "a", "Same as --accel")
	fs.StringVar(&cfg.PythonBin, "python", cfg.PythonBin, "Python interpreter running the worker")
	fs.Float64Var(&cfg.Downscale, "downscale", cfg.Downscale, "Downscale factor applied before inference")
}

// defineArtifactFlags registers --alpha, --overlay-edge, --visuals-dir, --save-masks.
func defineArtifactFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Float64Var(&cfg.OverlayAlpha, "alpha", cfg.OverlayAlpha, "Overlay mask transparency (0..1)")
	fs.IntVar(&cfg.OverlayEdge, "overlay-edge", cfg.OverlayEdge, "Overlay PNG long-edge pixel bound")
	fs.StringVar(&cfg.VisualsDirName, "visuals-dir", cfg.VisualsDirName, "Overlay subdirectory name")
	fs.BoolVar(&cfg.SaveMasks, "save-masks", cfg.SaveMasks, "Also save raw label masks")
}

// defineBehaviorFlags registers --dry-run and --profile.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "List images only; do not count or render")
	fs.BoolVar(&cfg.DryRun, "d", cfg.DryRun, "Same as --dry-run")
	// Registered so flag.Parse accepts it; the value was consumed by profileArg.
	fs.String("profile", "", "YAML profile file with setting defaults")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
}

// defineUtilityFlags registers --version and --help (exit after printing).
func defineUtilityFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated flag values into cfg (e.g. noColor -> ColorMode=never).
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets InputDir and OutputDir from the positional args
// when not in CheckOnly mode. The output folder is optional and defaults to
// the input folder when absent or empty.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if cfg.CheckOnly {
		return nil
	}
	switch len(args) {
	case 1:
		cfg.InputDir = NormalizeDirArg(args[0])
		cfg.OutputDir = cfg.InputDir
	case 2:
		cfg.InputDir = NormalizeDirArg(args[0])
		cfg.OutputDir = NormalizeDirArg(args[1])
		if cfg.OutputDir == "" {
			cfg.OutputDir = cfg.InputDir
		}
	default:
		return fmt.Errorf("need input_dir and optional output_dir")
	}
	return nil
}

// profileArg scans raw args for --profile before the flag set is parsed, so
// profile values can be applied first and explicit flags still override them.
func profileArg(args []string) string {
	for i, a := range args {
		switch {
		case a == "--profile" || a == "-profile":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "--profile="):
			return strings.TrimPrefix(a, "--profile=")
		case strings.HasPrefix(a, "-profile="):
			return strings.TrimPrefix(a, "-profile=")
		}
	}
	return ""
}

// printUsage writes the help text to stderr. Column-aligned for readability.
func printUsage(fs *flag.FlagSet, version string) {
	const col1 = 28 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "cfucount v" + version + " - Cellpose colony counter"},
		{"", ""},
		{"  cfucount [OPTIONS] <input_dir> [output_dir]", ""},
		{"", ""},
		{"Segmentation", ""},
		{"  -m, --model <name>", "Cellpose pretrained model (default: cpsam)"},
		{"  -a, --accel <mode>", "Device: auto | cuda | mps | cpu (default: auto)"},
		{"  --python <bin>", "Python interpreter for the worker (default: python3)"},
		{"  --downscale <f>", "Downscale factor before inference (default: 0.5)"},
		{"", ""},
		{"Artifacts", ""},
		{"  --alpha <f>", "Overlay mask transparency (default: 0.5)"},
		{"  --overlay-edge <px>", "Overlay long-edge bound (default: 1000)"},
		{"  --visuals-dir <name>", "Overlay subdirectory (default: cp_visuals)"},
		{"  --save-masks", "Also save raw label masks"},
		{"", ""},
		{"Behavior", ""},
		{"  -d, --dry-run", "List images only; do not count or render"},
		{"  --profile <path>", "YAML profile with setting defaults"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "System diagnostics (python, cellpose, devices)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapter so the AccelMode enum can be used with flag.Var.

type accelModeValue struct{ p *AccelMode }

func (a *accelModeValue) String() string {
	if a.p == nil {
		return ""
	}
	return string(*a.p)
}

func (a *accelModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "auto":
		*a.p = AccelAuto
	case "cuda":
		*a.p = AccelCUDA
	case "mps":
		*a.p = AccelMPS
	case "cpu":
		*a.p = AccelCPU
	default:
		return fmt.Errorf("invalid accel mode %q (use 'auto', 'cuda', 'mps' or 'cpu')", s)
	}
	return nil
}
