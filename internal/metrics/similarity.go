package metrics

import (
	"fmt"

	"gocv.io/x/gocv"
)

// SSIM computes a global structural similarity index on the luminance of
// two equally sized BGR buffers. Identical buffers give 1.
func SSIM(original, processed gocv.Mat) (float64, error) {
	if original.Empty() || processed.Empty() {
		return 0, fmt.Errorf("empty images")
	}
	if original.Rows() != processed.Rows() || original.Cols() != processed.Cols() {
		return 0, fmt.Errorf("dimension mismatch")
	}

	f1, err := luminance(original)
	if err != nil {
		return 0, err
	}
	defer f1.Close()

	f2, err := luminance(processed)
	if err != nil {
		return 0, err
	}
	defer f2.Close()

	const c1, c2 = 6.5025, 58.5225

	mu1 := f1.Mean().Val1
	mu2 := f2.Mean().Val1

	f1Sq, f2Sq, f1f2 := gocv.NewMat(), gocv.NewMat(), gocv.NewMat()
	defer f1Sq.Close()
	defer f2Sq.Close()
	defer f1f2.Close()

	if err := gocv.Multiply(f1, f1, &f1Sq); err != nil {
		return 0, err
	}
	if err := gocv.Multiply(f2, f2, &f2Sq); err != nil {
		return 0, err
	}
	if err := gocv.Multiply(f1, f2, &f1f2); err != nil {
		return 0, err
	}

	sigma1Sq := f1Sq.Mean().Val1 - mu1*mu1
	sigma2Sq := f2Sq.Mean().Val1 - mu2*mu2
	sigma12 := f1f2.Mean().Val1 - mu1*mu2

	num := (2*mu1*mu2 + c1) * (2*sigma12 + c2)
	den := (mu1*mu1 + mu2*mu2 + c1) * (sigma1Sq + sigma2Sq + c2)
	if den == 0 {
		return 1.0, nil
	}
	return num / den, nil
}

// luminance returns a CV_32F grayscale copy of a BGR buffer
func luminance(m gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	defer gray.Close()

	if err := gocv.CvtColor(m, &gray, gocv.ColorBGRToGray); err != nil {
		return gocv.NewMat(), fmt.Errorf("grayscale conversion failed: %w", err)
	}

	f := gocv.NewMat()
	gray.ConvertTo(&f, gocv.MatTypeCV32F)
	if f.Empty() {
		f.Close()
		return gocv.NewMat(), fmt.Errorf("float conversion failed")
	}
	return f, nil
}
