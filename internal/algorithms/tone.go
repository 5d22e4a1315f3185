// Tonal refinements: LAB contrast and HSV saturation
package algorithms

import (
	"gocv.io/x/gocv"

	"batch-color-correction/internal/colorspace"
)

// Contrast remaps lightness linearly around the image's own mean
type Contrast struct {
	scale float64
}

func NewContrast(scale float64) *Contrast {
	return &Contrast{scale: scale}
}

func (c *Contrast) Name() string {
	return "contrast"
}

func (c *Contrast) Params() map[string]interface{} {
	return map[string]interface{}{"scale": c.scale}
}

func (c *Contrast) Apply(input gocv.Mat) (gocv.Mat, error) {
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

	mean := lab[0].Mean().Val1
	for i, lv := range lightness {
		lightness[i] = saturate(c.scale*(float64(lv)-mean) + mean)
	}

	return colorspace.FromLAB(lab)
}

// Saturation multiplies the HSV saturation channel
type Saturation struct {
	scale float64
}

func NewSaturation(scale float64) *Saturation {
	return &Saturation{scale: scale}
}

func (s *Saturation) Name() string {
	return "saturation"
}

func (s *Saturation) Params() map[string]interface{} {
	return map[string]interface{}{"scale": s.scale}
}

func (s *Saturation) Apply(input gocv.Mat) (gocv.Mat, error) {
	if err := requireInput(input); err != nil {
		return gocv.NewMat(), err
	}

	hsv, err := colorspace.ToHSV(input)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer hsv.Close()

	if err := scalePlane(hsv[1], s.scale); err != nil {
		return gocv.NewMat(), err
	}

	return colorspace.FromHSV(hsv)
}
