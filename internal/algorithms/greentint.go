package algorithms

import (
	"gocv.io/x/gocv"

	"batch-color-correction/internal/colorspace"
)

// GreenTint damps the green channel against a known equipment tint.
// It has to run after white balance so the tint does not skew its statistics.
type GreenTint struct {
	scale float64
}

func NewGreenTint(scale float64) *GreenTint {
	return &GreenTint{scale: scale}
}

func (g *GreenTint) Name() string {
	return "green_tint"
}

func (g *GreenTint) Params() map[string]interface{} {
	return map[string]interface{}{"scale": g.scale}
}

func (g *GreenTint) Apply(input gocv.Mat) (gocv.Mat, error) {
	if err := requireInput(input); err != nil {
		return gocv.NewMat(), err
	}

	planes, err := colorspace.Split(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer planes.Close()

	if err := scalePlane(planes[1], g.scale); err != nil {
		return gocv.NewMat(), err
	}

	return colorspace.Merge(planes)
}
