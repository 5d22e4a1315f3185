// Colour space views over 8-bit BGR buffers
package colorspace

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrNotBGR is returned for buffers that are not 3-channel 8-bit images
var ErrNotBGR = errors.New("buffer is not an 8-bit 3-channel image")

// Planes holds the three single-channel views of one image. Index order
// follows the colour space: B,G,R / H,S,V / L,A,B.
type Planes [3]gocv.Mat

// Close releases all three planes
func (p Planes) Close() {
	for i := range p {
		p[i].Close()
	}
}

// Split separates a BGR buffer into its B, G and R planes
func Split(buf gocv.Mat) (Planes, error) {
	if err := checkBGR(buf); err != nil {
		return Planes{}, err
	}
	return split(buf)
}

// Merge combines three 8-bit planes into one 3-channel buffer
func Merge(p Planes) (gocv.Mat, error) {
	for i := range p {
		if p[i].Empty() {
			return gocv.NewMat(), fmt.Errorf("plane %d is empty", i)
		}
		if p[i].Type() != gocv.MatTypeCV8UC1 {
			return gocv.NewMat(), fmt.Errorf("plane %d has type %v, want CV_8UC1", i, p[i].Type())
		}
		if p[i].Rows() != p[0].Rows() || p[i].Cols() != p[0].Cols() {
			return gocv.NewMat(), fmt.Errorf("plane %d is %dx%d, want %dx%d",
				i, p[i].Cols(), p[i].Rows(), p[0].Cols(), p[0].Rows())
		}
	}

	dst := gocv.NewMat()
	gocv.Merge(p[:], &dst)
	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("merge produced an empty buffer")
	}
	return dst, nil
}

// ToHSV converts a BGR buffer to H, S, V planes (H in [0,180))
func ToHSV(buf gocv.Mat) (Planes, error) {
	return convertAndSplit(buf, gocv.ColorBGRToHSV)
}

// FromHSV merges H, S, V planes back into a BGR buffer
func FromHSV(p Planes) (gocv.Mat, error) {
	return mergeAndConvert(p, gocv.ColorHSVToBGR)
}

// ToLAB converts a BGR buffer to L, a, b planes (8-bit OpenCV scaling,
// chrominance centred on 128)
func ToLAB(buf gocv.Mat) (Planes, error) {
	return convertAndSplit(buf, gocv.ColorBGRToLab)
}

// FromLAB merges L, a, b planes back into a BGR buffer
func FromLAB(p Planes) (gocv.Mat, error) {
	return mergeAndConvert(p, gocv.ColorLabToBGR)
}

// Pixels exposes the backing bytes of a continuous 8-bit mat. Writes to the
// slice modify the mat.
func Pixels(m gocv.Mat) ([]uint8, error) {
	if m.Empty() {
		return nil, fmt.Errorf("mat is empty")
	}
	if !m.IsContinuous() {
		return nil, fmt.Errorf("mat is not continuous")
	}
	return m.DataPtrUint8()
}

func convertAndSplit(buf gocv.Mat, code gocv.ColorConversionCode) (Planes, error) {
	if err := checkBGR(buf); err != nil {
		return Planes{}, err
	}

	converted := gocv.NewMat()
	defer converted.Close()

	if err := gocv.CvtColor(buf, &converted, code); err != nil {
		return Planes{}, fmt.Errorf("colour conversion %v failed: %w", code, err)
	}

	return split(converted)
}

func mergeAndConvert(p Planes, code gocv.ColorConversionCode) (gocv.Mat, error) {
	merged, err := Merge(p)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer merged.Close()

	dst := gocv.NewMat()
	if err := gocv.CvtColor(merged, &dst, code); err != nil {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("colour conversion %v failed: %w", code, err)
	}
	return dst, nil
}

func split(buf gocv.Mat) (Planes, error) {
	channels := gocv.Split(buf)
	if len(channels) != 3 {
		for _, ch := range channels {
			ch.Close()
		}
		return Planes{}, fmt.Errorf("split produced %d planes, want 3", len(channels))
	}
	return Planes{channels[0], channels[1], channels[2]}, nil
}

func checkBGR(buf gocv.Mat) error {
	if buf.Empty() {
		return fmt.Errorf("%w: empty", ErrNotBGR)
	}
	if buf.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: type %v", ErrNotBGR, buf.Type())
	}
	return nil
}
