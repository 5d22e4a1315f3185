package metrics

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"batch-color-correction/internal/colorspace"
)

// Stats summarises one channel
type Stats struct {
	Mean   float64
	StdDev float64
}

// ChannelStats returns mean and standard deviation of every channel of an
// 8-bit buffer, in the buffer's channel order.
func ChannelStats(mat gocv.Mat) ([]Stats, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	data, err := colorspace.Pixels(mat)
	if err != nil {
		return nil, err
	}

	channels := mat.Channels()
	pixels := len(data) / channels
	samples := make([][]float64, channels)
	for c := range samples {
		samples[c] = make([]float64, 0, pixels)
	}
	for i, v := range data {
		samples[i%channels] = append(samples[i%channels], float64(v))
	}

	result := make([]Stats, channels)
	for c, s := range samples {
		mean, std := stat.MeanStdDev(s, nil)
		if len(s) < 2 {
			std = 0
		}
		result[c] = Stats{Mean: mean, StdDev: std}
	}
	return result, nil
}

// PSNR computes the peak signal-to-noise ratio over all channels.
// Identical buffers give +Inf.
func PSNR(original, processed gocv.Mat) (float64, error) {
	if original.Empty() || processed.Empty() {
		return 0, fmt.Errorf("empty images")
	}
	if original.Rows() != processed.Rows() || original.Cols() != processed.Cols() ||
		original.Channels() != processed.Channels() {
		return 0, fmt.Errorf("image dimensions mismatch")
	}

	a, err := colorspace.Pixels(original)
	if err != nil {
		return 0, err
	}
	b, err := colorspace.Pixels(processed)
	if err != nil {
		return 0, err
	}

	sumSquaredDiff := 0.0
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sumSquaredDiff += diff * diff
	}

	mse := sumSquaredDiff / float64(len(a))
	if mse == 0 {
		return math.Inf(1), nil
	}

	maxVal := 255.0
	return 20 * math.Log10(maxVal/math.Sqrt(mse)), nil
}
