package core

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"batch-color-correction/internal/algorithms"
	"batch-color-correction/internal/config"
	"batch-color-correction/internal/metrics"
)

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func sample() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(60, 140, 90, 0), 24, 32, gocv.MatTypeCV8UC3)
}

func bytesOf(t *testing.T, m gocv.Mat) []uint8 {
	t.Helper()
	data, err := m.DataPtrUint8()
	require.NoError(t, err)
	return append([]uint8(nil), data...)
}

// failingStage always errors
type failingStage struct{}

func (failingStage) Name() string                     { return "broken" }
func (failingStage) Params() map[string]interface{}   { return nil }
func (failingStage) Apply(gocv.Mat) (gocv.Mat, error) { return gocv.NewMat(), errors.New("boom") }

// shrinkingStage returns a buffer of a different size
type shrinkingStage struct{}

func (shrinkingStage) Name() string                   { return "shrink" }
func (shrinkingStage) Params() map[string]interface{} { return nil }
func (shrinkingStage) Apply(gocv.Mat) (gocv.Mat, error) {
	return gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3), nil
}

func TestPresetStageOrder(t *testing.T) {
	gw, err := NewCorrectionPipeline(config.Default(), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"white_balance_grayworld", "green_tint", "exposure_mean"}, gw.StageNames())

	params, err := config.ForPreset(config.PresetLabEnhance)
	require.NoError(t, err)
	lab, err := NewCorrectionPipeline(params, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"white_balance_lab", "green_tint", "exposure_clahe", "contrast", "saturation"}, lab.StageNames())
	assert.Equal(t, config.PresetLabEnhance, lab.Params().Preset)
}

func TestNewCorrectionPipelineRejectsInvalidParams(t *testing.T) {
	params := config.Default()
	params.Exposure.TileGrid = 0

	_, err := NewCorrectionPipeline(params, quietLogger())
	assert.Error(t, err)
}

func TestProcessLeavesInputUntouched(t *testing.T) {
	for _, preset := range config.Presets {
		t.Run(string(preset), func(t *testing.T) {
			params, err := config.ForPreset(preset)
			require.NoError(t, err)
			cp, err := NewCorrectionPipeline(params, quietLogger())
			require.NoError(t, err)

			input := sample()
			defer input.Close()
			before := bytesOf(t, input)

			out, err := cp.Process(context.Background(), input)
			require.NoError(t, err)
			defer out.Close()

			assert.Equal(t, before, bytesOf(t, input))
			assert.True(t, SameShape(input, out))
		})
	}
}

func TestProcessRejectsInvalidBuffers(t *testing.T) {
	cp, err := NewCorrectionPipeline(config.Default(), quietLogger())
	require.NoError(t, err)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = cp.Process(context.Background(), empty)
	assert.ErrorIs(t, err, ErrInvalidImage)

	gray := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC1)
	defer gray.Close()
	_, err = cp.Process(context.Background(), gray)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestProcessStopsOnCancelledContext(t *testing.T) {
	cp, err := NewCorrectionPipeline(config.Default(), quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := sample()
	defer input.Close()

	out, err := cp.Process(ctx, input)
	defer out.Close()
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, out.Empty())
}

func TestProcessReportsFailingStage(t *testing.T) {
	cp := &CorrectionPipeline{
		params: config.Default(),
		steps: []ProcessingStep{
			{Stage: algorithms.NewGreenTint(0.7), Enabled: true},
			{Stage: failingStage{}, Enabled: true},
		},
		metricsEval: metrics.NewEvaluator(),
		logger:      quietLogger(),
	}

	input := sample()
	defer input.Close()

	out, err := cp.Process(context.Background(), input)
	defer out.Close()
	require.Error(t, err)
	assert.True(t, out.Empty())

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "broken", stageErr.Stage)
	assert.EqualError(t, err, "stage broken: boom")
}

func TestProcessRejectsGeometryChange(t *testing.T) {
	cp := &CorrectionPipeline{
		params:      config.Default(),
		steps:       []ProcessingStep{{Stage: shrinkingStage{}, Enabled: true}},
		metricsEval: metrics.NewEvaluator(),
		logger:      quietLogger(),
	}

	input := sample()
	defer input.Close()

	_, err := cp.Process(context.Background(), input)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "shrink", stageErr.Stage)
}

func TestProcessSkipsDisabledSteps(t *testing.T) {
	cp := &CorrectionPipeline{
		params: config.Default(),
		steps: []ProcessingStep{
			{Stage: failingStage{}, Enabled: false},
			{Stage: algorithms.NewGreenTint(0.5), Enabled: true},
		},
		metricsEval: metrics.NewEvaluator(),
		logger:      quietLogger(),
	}

	input := sample()
	defer input.Close()

	out, err := cp.Process(context.Background(), input)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 70.0, out.Mean().Val2)
}

func TestProcessLogsStepsAtDebug(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cp, err := NewCorrectionPipeline(config.Default(), logger)
	require.NoError(t, err)

	input := sample()
	defer input.Close()

	out, err := cp.Process(context.Background(), input)
	require.NoError(t, err)
	defer out.Close()

	var steps []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "PIPELINE: Step completed" {
			steps = append(steps, e)
		}
	}
	require.Len(t, steps, 3)
	assert.Equal(t, "white_balance_grayworld", steps[0].Data["stage"])
	assert.Contains(t, steps[1].Data, "psnr")
	assert.Contains(t, steps[1].Data, "param_scale")
}

func TestValidateImage(t *testing.T) {
	ok := sample()
	defer ok.Close()
	assert.NoError(t, ValidateImage(ok))

	four := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC4)
	defer four.Close()
	assert.ErrorIs(t, ValidateImage(four), ErrInvalidImage)

	wide := gocv.NewMatWithSize(1, MaxDimension+1, gocv.MatTypeCV8UC3)
	defer wide.Close()
	assert.ErrorIs(t, ValidateImage(wide), ErrInvalidImage)
}

func TestMetadataOf(t *testing.T) {
	m := sample()
	defer m.Close()

	meta := MetadataOf(m, "/tmp/Shot.JPG")
	assert.Equal(t, 32, meta.Width)
	assert.Equal(t, 24, meta.Height)
	assert.Equal(t, 3, meta.Channels)
	assert.Equal(t, "jpg", meta.Format)
	assert.Equal(t, "unknown", MetadataOf(m, "noext").Format)
}
