// Exposure normalization: global value-channel targeting and CLAHE
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"batch-color-correction/internal/colorspace"
)

// MeanExposure rescales the HSV value channel so its mean lands on target
type MeanExposure struct {
	targetMean float64
}

func NewMeanExposure(targetMean float64) *MeanExposure {
	return &MeanExposure{targetMean: targetMean}
}

func (m *MeanExposure) Name() string {
	return "exposure_mean"
}

func (m *MeanExposure) Params() map[string]interface{} {
	return map[string]interface{}{"target_mean": m.targetMean}
}

func (m *MeanExposure) Apply(input gocv.Mat) (gocv.Mat, error) {
	if err := requireInput(input); err != nil {
		return gocv.NewMat(), err
	}

	hsv, err := colorspace.ToHSV(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer func() { hsv.Close() }()

	current := hsv[2].Mean().Val1
	if current == 0 {
		// black frame: nothing to scale
		return input.Clone(), nil
	}

	alpha := m.targetMean / current
	value := gocv.NewMat()
	if err := gocv.ConvertScaleAbs(hsv[2], &value, alpha, 0); err != nil {
		value.Close()
		return gocv.NewMat(), fmt.Errorf("value channel scaling failed: %w", err)
	}
	hsv[2].Close()
	hsv[2] = value

	return colorspace.FromHSV(hsv)
}

// CLAHEExposure equalizes lightness locally with a bounded contrast gain
type CLAHEExposure struct {
	clipLimit float64
	tileGrid  int
}

func NewCLAHEExposure(clipLimit float64, tileGrid int) *CLAHEExposure {
	return &CLAHEExposure{clipLimit: clipLimit, tileGrid: tileGrid}
}

func (c *CLAHEExposure) Name() string {
	return "exposure_clahe"
}

func (c *CLAHEExposure) Params() map[string]interface{} {
	return map[string]interface{}{
		"clip_limit": c.clipLimit,
		"tile_grid":  c.tileGrid,
	}
}

func (c *CLAHEExposure) Apply(input gocv.Mat) (gocv.Mat, error) {
	if err := requireInput(input); err != nil {
		return gocv.NewMat(), err
	}

	lab, err := colorspace.ToLAB(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer func() { lab.Close() }()

	clahe := gocv.NewCLAHEWithParams(c.clipLimit, image.Point{X: c.tileGrid, Y: c.tileGrid})
	defer clahe.Close()

	lightness := gocv.NewMat()
	if err := clahe.Apply(lab[0], &lightness); err != nil {
		lightness.Close()
		return gocv.NewMat(), fmt.Errorf("CLAHE on lightness failed: %w", err)
	}
	lab[0].Close()
	lab[0] = lightness

	return colorspace.FromLAB(lab)
}
