// White balance: gray-world and LAB chrominance statistics
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"

	"batch-color-correction/internal/colorspace"
)

// GrayWorld scales each channel so its mean meets a weighted gray target
type GrayWorld struct {
	weights [3]float64
	epsilon float64
}

func NewGrayWorld(weights [3]float64, epsilon float64) *GrayWorld {
	return &GrayWorld{weights: weights, epsilon: epsilon}
}

func (g *GrayWorld) Name() string {
	return "white_balance_grayworld"
}

func (g *GrayWorld) Params() map[string]interface{} {
	return map[string]interface{}{
		"weight_b": g.weights[0],
		"weight_g": g.weights[1],
		"weight_r": g.weights[2],
		"epsilon":  g.epsilon,
	}
}

func (g *GrayWorld) Apply(input gocv.Mat) (gocv.Mat, error) {
	if err := requireInput(input); err != nil {
		return gocv.NewMat(), err
	}

	planes, err := colorspace.Split(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer planes.Close()

	var means [3]float64
	for i := range planes {
		means[i] = planes[i].Mean().Val1
	}

	target := g.weights[0]*means[0] + g.weights[1]*means[1] + g.weights[2]*means[2]

	for i := range planes {
		scale := target / (means[i] + g.epsilon)
		if err := scalePlane(planes[i], scale); err != nil {
			return gocv.NewMat(), fmt.Errorf("scale channel %d: %w", i, err)
		}
	}

	return colorspace.Merge(planes)
}

// LabBalance pulls the average a/b chrominance back toward neutral (128),
// weighting each pixel's correction by its own lightness.
type LabBalance struct {
	dampingA float64
	dampingB float64
}

func NewLabBalance(dampingA, dampingB float64) *LabBalance {
	return &LabBalance{dampingA: dampingA, dampingB: dampingB}
}

func (l *LabBalance) Name() string {
	return "white_balance_lab"
}

func (l *LabBalance) Params() map[string]interface{} {
	return map[string]interface{}{
		"damping_a": l.dampingA,
		"damping_b": l.dampingB,
	}
}

func (l *LabBalance) Apply(input gocv.Mat) (gocv.Mat, error) {
	if err := requireInput(input); err != nil {
		return gocv.NewMat(), err
	}

	lab, err := colorspace.ToLAB(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer lab.Close()

	lightness, err := colorspace.Pixels(lab[0])
	if err != nil {
		return gocv.NewMat(), err
	}
	chromaA, err := colorspace.Pixels(lab[1])
	if err != nil {
		return gocv.NewMat(), err
	}
	chromaB, err := colorspace.Pixels(lab[2])
	if err != nil {
		return gocv.NewMat(), err
	}

	shiftA := (lab[1].Mean().Val1 - 128) * l.dampingA
	shiftB := (lab[2].Mean().Val1 - 128) * l.dampingB

	for i, lv := range lightness {
		frac := float64(lv) / 255.0
		chromaA[i] = saturate(float64(chromaA[i]) - shiftA*frac)
		chromaB[i] = saturate(float64(chromaB[i]) - shiftB*frac)
	}

	return colorspace.FromLAB(lab)
}
