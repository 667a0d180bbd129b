// Package config loads the optional YAML run-configuration file.
//
// Every field has a default; command-line flags that were set explicitly
// override file values.
//
//	renderer: default
//	scenes: test_scenes
//	test_scenes: geometry
//	output: out
//	comparison_methods: [ssim, psnr]
//	thresholds: [0.95, 30]
//	workers: 4
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the run configuration.
type File struct {
	Library           string    `yaml:"library"`
	Device            string    `yaml:"device"`
	Renderer          string    `yaml:"renderer" validate:"required"`
	Scenes            string    `yaml:"scenes" validate:"required"`
	TestScenes        string    `yaml:"test_scenes" validate:"required"`
	Output            string    `yaml:"output" validate:"required"`
	ComparisonMethods []string  `yaml:"comparison_methods" validate:"min=1,dive,oneof=ssim psnr"`
	Thresholds        []float64 `yaml:"thresholds" validate:"dive,gte=0"`
	Variants          bool      `yaml:"variants"`
	Workers           int       `yaml:"workers" validate:"gte=1,lte=64"`
	ViewDistance      float64   `yaml:"view_distance" validate:"gt=0"`
	Database          string    `yaml:"database"`
	Metrics           string    `yaml:"metrics"`
	LogFile           string    `yaml:"log_file" validate:"required"`
	Report            string    `yaml:"report" validate:"oneof=console json none"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() File {
	return File{
		Renderer:          "default",
		Scenes:            "test_scenes",
		TestScenes:        "all",
		Output:            ".",
		ComparisonMethods: []string{"ssim"},
		Workers:           1,
		ViewDistance:      1,
		LogFile:           "ANARI.log",
		Report:            "console",
	}
}

var validate = validator.New()

// Validate checks field constraints and that no more thresholds than
// comparison methods are given.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return err
	}
	if len(f.Thresholds) > len(f.ComparisonMethods) {
		return fmt.Errorf("%d thresholds given for %d comparison methods", len(f.Thresholds), len(f.ComparisonMethods))
	}
	return nil
}

// ThresholdMap pairs thresholds with comparison methods by position.
// Methods without a threshold are absent from the map.
func (f *File) ThresholdMap() map[string]float64 {
	out := make(map[string]float64, len(f.Thresholds))
	for i, th := range f.Thresholds {
		if i < len(f.ComparisonMethods) {
			out[f.ComparisonMethods[i]] = th
		}
	}
	return out
}

// Load reads path over the defaults. Unknown fields are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	f := Defaults()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &f, nil
}
