// Correction parameters, presets and YAML overrides
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"batch-color-correction/internal/algorithms"
)

// Preset names one of the two fixed correction pipelines
type Preset string

const (
	// PresetGrayWorld: gray-world white balance, green tint, mean exposure
	PresetGrayWorld Preset = "grayworld"
	// PresetLabEnhance: LAB white balance, green tint, CLAHE, contrast, saturation
	PresetLabEnhance Preset = "lab-enhance"
)

// Presets lists the known presets in display order
var Presets = []Preset{PresetGrayWorld, PresetLabEnhance}

type WhiteBalance struct {
	Method   algorithms.WhiteBalanceMethod `yaml:"method"`
	WeightB  float64                       `yaml:"weight_b"`
	WeightG  float64                       `yaml:"weight_g"`
	WeightR  float64                       `yaml:"weight_r"`
	Epsilon  float64                       `yaml:"epsilon"`
	DampingA float64                       `yaml:"damping_a"`
	DampingB float64                       `yaml:"damping_b"`
}

type GreenTint struct {
	Scale float64 `yaml:"scale"`
}

type Exposure struct {
	Method     algorithms.ExposureMethod `yaml:"method"`
	TargetMean float64                   `yaml:"target_mean"`
	ClipLimit  float64                   `yaml:"clip_limit"`
	TileGrid   int                       `yaml:"tile_grid"`
}

// Adjustment is an optional scale-based refinement stage
type Adjustment struct {
	Enabled bool    `yaml:"enabled"`
	Scale   float64 `yaml:"scale"`
}

type Output struct {
	Prefix string `yaml:"prefix"`
}

// Params is the full, fixed parameterization of one correction pipeline
type Params struct {
	Preset       Preset       `yaml:"preset"`
	WhiteBalance WhiteBalance `yaml:"white_balance"`
	GreenTint    GreenTint    `yaml:"green_tint"`
	Exposure     Exposure     `yaml:"exposure"`
	Contrast     Adjustment   `yaml:"contrast"`
	Saturation   Adjustment   `yaml:"saturation"`
	Output       Output       `yaml:"output"`
}

func baseParams() Params {
	return Params{
		WhiteBalance: WhiteBalance{
			WeightB:  0.3,
			WeightG:  0.4,
			WeightR:  0.3,
			Epsilon:  1e-6,
			DampingA: 0.2,
			DampingB: 1.0,
		},
		GreenTint: GreenTint{Scale: 0.7},
		Exposure: Exposure{
			TargetMean: 180,
			ClipLimit:  3.0,
			TileGrid:   8,
		},
		Contrast:   Adjustment{Scale: 0.8},
		Saturation: Adjustment{Scale: 2.0},
	}
}

// Default returns the gray-world preset
func Default() Params {
	p, _ := ForPreset(PresetGrayWorld)
	return p
}

// ForPreset returns the parameters of a named preset
func ForPreset(preset Preset) (Params, error) {
	p := baseParams()
	p.Preset = preset

	switch preset {
	case PresetGrayWorld:
		p.WhiteBalance.Method = algorithms.WhiteBalanceGrayWorld
		p.Exposure.Method = algorithms.ExposureMeanTarget
	case PresetLabEnhance:
		p.WhiteBalance.Method = algorithms.WhiteBalanceLAB
		p.Exposure.Method = algorithms.ExposureCLAHE
		p.Contrast.Enabled = true
		p.Saturation.Enabled = true
		p.Output.Prefix = "processed_"
	default:
		return Params{}, fmt.Errorf("unknown preset: %q", string(preset))
	}

	return p, nil
}

// Load reads a YAML parameter file. Keys present in the file override the
// preset named by its "preset" key, or fallback when the key is absent.
func Load(path string, fallback Preset) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, fallback)
}

// Parse is Load over an in-memory document
func Parse(data []byte, fallback Preset) (Params, error) {
	var head struct {
		Preset Preset `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Params{}, fmt.Errorf("parse config: %w", err)
	}

	preset := fallback
	if head.Preset != "" {
		preset = head.Preset
	}

	return overlay(data, preset)
}

// LoadForPreset reads a YAML document over the given preset. A preset key
// in the document is ignored; the caller's choice wins.
func LoadForPreset(path string, preset Preset) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read config: %w", err)
	}
	return overlay(data, preset)
}

// overlay decodes data on top of the preset defaults. Keys that match no
// parameter are rejected.
func overlay(data []byte, preset Preset) (Params, error) {
	p, err := ForPreset(preset)
	if err != nil {
		return Params{}, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Params{}, fmt.Errorf("parse config: %w", err)
	}
	p.Preset = preset

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate rejects unknown strategies and out-of-range constants. Zero
// targets, clip limits and scales are accepted.
func (p Params) Validate() error {
	var errs []error

	if err := p.WhiteBalance.Method.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := p.Exposure.Method.Validate(); err != nil {
		errs = append(errs, err)
	}

	wb := p.WhiteBalance
	for name, v := range map[string]float64{
		"white_balance.weight_b": wb.WeightB,
		"white_balance.weight_g": wb.WeightG,
		"white_balance.weight_r": wb.WeightR,
		"green_tint.scale":       p.GreenTint.Scale,
		"exposure.target_mean":   p.Exposure.TargetMean,
		"exposure.clip_limit":    p.Exposure.ClipLimit,
		"contrast.scale":         p.Contrast.Scale,
		"saturation.scale":       p.Saturation.Scale,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			errs = append(errs, fmt.Errorf("%s must be a finite value >= 0, got %v", name, v))
		}
	}

	for name, v := range map[string]float64{
		"white_balance.damping_a": wb.DampingA,
		"white_balance.damping_b": wb.DampingB,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite, got %v", name, v))
		}
	}

	if !(wb.Epsilon > 0) || math.IsInf(wb.Epsilon, 0) {
		errs = append(errs, fmt.Errorf("white_balance.epsilon must be > 0, got %v", wb.Epsilon))
	}
	if p.Exposure.TargetMean > 255 {
		errs = append(errs, fmt.Errorf("exposure.target_mean must be <= 255, got %v", p.Exposure.TargetMean))
	}
	if p.Exposure.TileGrid < 1 {
		errs = append(errs, fmt.Errorf("exposure.tile_grid must be >= 1, got %d", p.Exposure.TileGrid))
	}

	return errors.Join(errs...)
}

// WhiteBalanceOptions maps the parameters onto the stage constructor options
func (p Params) WhiteBalanceOptions() algorithms.WhiteBalanceOptions {
	wb := p.WhiteBalance
	return algorithms.WhiteBalanceOptions{
		Weights:  [3]float64{wb.WeightB, wb.WeightG, wb.WeightR},
		Epsilon:  wb.Epsilon,
		DampingA: wb.DampingA,
		DampingB: wb.DampingB,
	}
}

// ExposureOptions maps the parameters onto the stage constructor options
func (p Params) ExposureOptions() algorithms.ExposureOptions {
	return algorithms.ExposureOptions{
		TargetMean: p.Exposure.TargetMean,
		ClipLimit:  p.Exposure.ClipLimit,
		TileGrid:   p.Exposure.TileGrid,
	}
}

// OutputName is the file name a corrected copy of name is written under
func (p Params) OutputName(name string) string {
	return p.Output.Prefix + name
}

// YAML renders the effective parameters
func (p Params) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}
