// Correction quality metrics
package metrics

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// Evaluator compares a buffer before and after a correction step
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvaluateStep reports PSNR, SSIM and per-channel mean shifts between
// before and after. Channel keys follow the buffer order: mean_shift_0 is blue for BGR.
func (e *Evaluator) EvaluateStep(before, after gocv.Mat) (map[string]float64, error) {
	result := make(map[string]float64)

	psnr, err := PSNR(before, after)
	if err != nil {
		return nil, err
	}
	result["psnr"] = psnr

	if ssim, err := SSIM(before, after); err == nil {
		result["ssim"] = ssim
	}

	beforeStats, err := ChannelStats(before)
	if err != nil {
		return nil, err
	}
	afterStats, err := ChannelStats(after)
	if err != nil {
		return nil, err
	}

	for i := range beforeStats {
		result[fmt.Sprintf("mean_shift_%d", i)] = afterStats[i].Mean - beforeStats[i].Mean
	}

	return result, nil
}

// FormatPSNR renders a PSNR value, mapping identical images to "inf"
func FormatPSNR(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f dB", v)
}
