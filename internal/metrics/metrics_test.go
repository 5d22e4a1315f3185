package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func filled(b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), 10, 10, gocv.MatTypeCV8UC3)
}

func TestPSNR(t *testing.T) {
	a := filled(100, 100, 100)
	defer a.Close()
	b := filled(110, 100, 100)
	defer b.Close()

	same, err := PSNR(a, a)
	require.NoError(t, err)
	assert.True(t, math.IsInf(same, 1))

	// one channel off by 10: mse = 100/3
	got, err := PSNR(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(255/math.Sqrt(100.0/3)), got, 1e-9)
}

func TestPSNRRejectsMismatch(t *testing.T) {
	a := filled(1, 2, 3)
	defer a.Close()
	small := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 2, 3, 0), 5, 5, gocv.MatTypeCV8UC3)
	defer small.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := PSNR(a, small)
	assert.Error(t, err)
	_, err = PSNR(a, empty)
	assert.Error(t, err)
}

func TestChannelStats(t *testing.T) {
	m := filled(10, 20, 30)
	defer m.Close()

	// make blue alternate 0 and 20
	data, err := m.DataPtrUint8()
	require.NoError(t, err)
	for i := 0; i < len(data); i += 3 {
		if (i/3)%2 == 0 {
			data[i] = 0
		} else {
			data[i] = 20
		}
	}

	stats, err := ChannelStats(m)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.InDelta(t, 10, stats[0].Mean, 1e-9)
	assert.Greater(t, stats[0].StdDev, 9.0)
	assert.Equal(t, Stats{Mean: 20, StdDev: 0}, stats[1])
	assert.Equal(t, Stats{Mean: 30, StdDev: 0}, stats[2])
}

func TestSSIM(t *testing.T) {
	a := filled(90, 120, 150)
	defer a.Close()
	b := filled(20, 40, 60)
	defer b.Close()

	same, err := SSIM(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-6)

	diff, err := SSIM(a, b)
	require.NoError(t, err)
	assert.Less(t, diff, 1.0)
}

func TestEvaluateStep(t *testing.T) {
	before := filled(100, 100, 100)
	defer before.Close()
	after := filled(100, 70, 120)
	defer after.Close()

	result, err := NewEvaluator().EvaluateStep(before, after)
	require.NoError(t, err)

	assert.InDelta(t, 0, result["mean_shift_0"], 1e-9)
	assert.InDelta(t, -30, result["mean_shift_1"], 1e-9)
	assert.InDelta(t, 20, result["mean_shift_2"], 1e-9)
	assert.Contains(t, result, "psnr")
	assert.Contains(t, result, "ssim")
}

func TestFormatPSNR(t *testing.T) {
	assert.Equal(t, "inf", FormatPSNR(math.Inf(1)))
	assert.Equal(t, "31.25 dB", FormatPSNR(31.2549))
}
