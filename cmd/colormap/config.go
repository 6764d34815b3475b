package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// runConfig is the YAML configuration of a run. Flags override values loaded from the file.
type runConfig struct {
	Scene        sceneConfig            `yaml:"scene"`
	Iterations   int                    `yaml:"iterations"`
	NonRigidOnly bool                   `yaml:"non_rigid_only"`
	LogFile      string                 `yaml:"log_file"`
	Options      map[string]interface{} `yaml:"options"`
}

type sceneConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	Frames       int     `yaml:"frames"`
	Perturbation float64 `yaml:"perturbation"`
}

func defaultRunConfig() *runConfig {
	return &runConfig{
		Scene: sceneConfig{
			Width:        160,
			Height:       120,
			Frames:       5,
			Perturbation: 1,
		},
		Iterations: 5,
	}
}

// loadRunConfig reads a YAML file over cfg. Keys missing from the file keep their current values.
func loadRunConfig(path string, cfg *runConfig) error {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parsing config %q", path)
	}
	return nil
}

func (cfg *runConfig) validate() error {
	if cfg.Scene.Width < 16 || cfg.Scene.Height < 16 {
		return errors.Errorf("scene must be at least 16x16 pixels, got %dx%d", cfg.Scene.Width, cfg.Scene.Height)
	}
	if cfg.Scene.Frames < 1 {
		return errors.Errorf("scene needs at least one frame, got %d", cfg.Scene.Frames)
	}
	if cfg.Iterations < 0 {
		return errors.Errorf("iterations must be non-negative, got %d", cfg.Iterations)
	}
	return nil
}
