package config

// Optional YAML profile support. A profile carries setting defaults for a
// lab or machine (model, device, downscale, overlay tuning) so runs stay
// comparable without repeating flags. Profile values sit between built-in
// defaults and explicit CLI flags in precedence.

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// profileFile is the YAML schema. Pointer fields distinguish "absent" from
// zero values so a profile only overrides what it actually sets.
type profileFile struct {
	Model       string   `yaml:"model"`
	Accel       string   `yaml:"accel"`
	Python      string   `yaml:"python"`
	Downscale   *float64 `yaml:"downscale"`
	Alpha       *float64 `yaml:"overlay_alpha"`
	OverlayEdge *int     `yaml:"overlay_edge"`
	VisualsDir  string   `yaml:"visuals_dir"`
	SaveMasks   *bool    `yaml:"save_masks"`
}

// ApplyProfile reads a YAML profile and merges its values into cfg.
// Unknown keys are rejected so typos surface instead of silently doing nothing.
func ApplyProfile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}

	var p profileFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("parse profile %s: %w", path, err)
	}

	if p.Model != "" {
		cfg.Model = p.Model
	}
	if p.Accel != "" {
		v := accelModeValue{&cfg.Accel}
		if err := v.Set(p.Accel); err != nil {
			return fmt.Errorf("profile %s: %w", path, err)
		}
	}
	if p.Python != "" {
		cfg.PythonBin = p.Python
	}
	if p.Downscale != nil {
		cfg.Downscale = *p.Downscale
	}
	if p.Alpha != nil {
		cfg.OverlayAlpha = *p.Alpha
	}
	if p.OverlayEdge != nil {
		cfg.OverlayEdge = *p.OverlayEdge
	}
	if p.VisualsDir != "" {
		cfg.VisualsDirName = p.VisualsDir
	}
	if p.SaveMasks != nil {
		cfg.SaveMasks = *p.SaveMasks
	}
	return nil
}
