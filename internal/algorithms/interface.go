// Correction stage contract and strategy selection
package algorithms

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"batch-color-correction/internal/colorspace"
)

// Stage is one per-image correction step. Apply must not modify input and
// returns a new buffer owned by the caller.
type Stage interface {
	Name() string
	Apply(input gocv.Mat) (gocv.Mat, error)
	Params() map[string]interface{}
}

// WhiteBalanceMethod selects the colour cast estimate
type WhiteBalanceMethod string

const (
	WhiteBalanceGrayWorld WhiteBalanceMethod = "grayworld"
	WhiteBalanceLAB       WhiteBalanceMethod = "lab"
)

func (m WhiteBalanceMethod) Validate() error {
	switch m {
	case WhiteBalanceGrayWorld, WhiteBalanceLAB:
		return nil
	}
	return fmt.Errorf("unknown white balance method: %q", string(m))
}

// ExposureMethod selects the brightness normalization
type ExposureMethod string

const (
	ExposureMeanTarget ExposureMethod = "mean"
	ExposureCLAHE      ExposureMethod = "clahe"
)

func (m ExposureMethod) Validate() error {
	switch m {
	case ExposureMeanTarget, ExposureCLAHE:
		return nil
	}
	return fmt.Errorf("unknown exposure method: %q", string(m))
}

// WhiteBalanceOptions carries the constants of both white balance strategies
type WhiteBalanceOptions struct {
	Weights  [3]float64 // B, G, R
	Epsilon  float64
	DampingA float64
	DampingB float64
}

// ExposureOptions carries the constants of both exposure strategies
type ExposureOptions struct {
	TargetMean float64
	ClipLimit  float64
	TileGrid   int
}

// NewWhiteBalance returns the stage implementing method
func NewWhiteBalance(method WhiteBalanceMethod, opts WhiteBalanceOptions) (Stage, error) {
	switch method {
	case WhiteBalanceGrayWorld:
		return NewGrayWorld(opts.Weights, opts.Epsilon), nil
	case WhiteBalanceLAB:
		return NewLabBalance(opts.DampingA, opts.DampingB), nil
	}
	return nil, method.Validate()
}

// NewExposure returns the stage implementing method
func NewExposure(method ExposureMethod, opts ExposureOptions) (Stage, error) {
	switch method {
	case ExposureMeanTarget:
		return NewMeanExposure(opts.TargetMean), nil
	case ExposureCLAHE:
		return NewCLAHEExposure(opts.ClipLimit, opts.TileGrid), nil
	}
	return nil, method.Validate()
}

// saturate rounds v to the nearest integer and clamps it to [0,255]
func saturate(v float64) uint8 {
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// scalePlane multiplies every value of a single-channel plane in place
func scalePlane(plane gocv.Mat, factor float64) error {
	data, err := colorspace.Pixels(plane)
	if err != nil {
		return err
	}
	for i, v := range data {
		data[i] = saturate(float64(v) * factor)
	}
	return nil
}

func requireInput(input gocv.Mat) error {
	if input.Empty() {
		return fmt.Errorf("input image is empty")
	}
	return nil
}
