// Correction pipeline: a fixed, ordered list of stages applied to one image
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"batch-color-correction/internal/algorithms"
	"batch-color-correction/internal/config"
	"batch-color-correction/internal/metrics"
)

// ProcessingStep is one stage slot of the pipeline
type ProcessingStep struct {
	Stage   algorithms.Stage
	Enabled bool
}

// CorrectionPipeline applies white balance, green tint reduction, exposure
// and the optional tonal refinements, in that order. It holds no per-image
// state and is safe for concurrent use.
type CorrectionPipeline struct {
	params      config.Params
	steps       []ProcessingStep
	metricsEval *metrics.Evaluator
	logger      *logrus.Logger
}

func NewCorrectionPipeline(params config.Params, logger *logrus.Logger) (*CorrectionPipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	whiteBalance, err := algorithms.NewWhiteBalance(params.WhiteBalance.Method, params.WhiteBalanceOptions())
	if err != nil {
		return nil, err
	}

	exposure, err := algorithms.NewExposure(params.Exposure.Method, params.ExposureOptions())
	if err != nil {
		return nil, err
	}

	steps := []ProcessingStep{
		{Stage: whiteBalance, Enabled: true},
		{Stage: algorithms.NewGreenTint(params.GreenTint.Scale), Enabled: true},
		{Stage: exposure, Enabled: true},
		{Stage: algorithms.NewContrast(params.Contrast.Scale), Enabled: params.Contrast.Enabled},
		{Stage: algorithms.NewSaturation(params.Saturation.Scale), Enabled: params.Saturation.Enabled},
	}

	cp := &CorrectionPipeline{
		params:      params,
		steps:       steps,
		metricsEval: metrics.NewEvaluator(),
		logger:      logger,
	}

	logger.WithFields(logrus.Fields{
		"preset": params.Preset,
		"stages": cp.StageNames(),
	}).Debug("PIPELINE: Correction pipeline built")

	return cp, nil
}

// Params returns the parameters the pipeline was built from
func (cp *CorrectionPipeline) Params() config.Params {
	return cp.params
}

// StageNames lists the enabled stages in execution order
func (cp *CorrectionPipeline) StageNames() []string {
	names := make([]string, 0, len(cp.steps))
	for _, step := range cp.steps {
		if step.Enabled {
			names = append(names, step.Stage.Name())
		}
	}
	return names
}

// Process corrects one image. The input is left untouched; the returned Mat
// belongs to the caller. The first failing stage aborts the run with a
// *StageError and no partial result.
func (cp *CorrectionPipeline) Process(ctx context.Context, input gocv.Mat) (gocv.Mat, error) {
	if err := ValidateImage(input); err != nil {
		return gocv.NewMat(), err
	}

	current := input.Clone()
	debug := cp.logger.IsLevelEnabled(logrus.DebugLevel)

	for i, step := range cp.steps {
		select {
		case <-ctx.Done():
			current.Close()
			return gocv.NewMat(), ctx.Err()
		default:
		}

		if !step.Enabled {
			continue
		}

		name := step.Stage.Name()
		start := time.Now()

		result, err := step.Stage.Apply(current)
		if err != nil {
			result.Close()
			current.Close()
			return gocv.NewMat(), &StageError{Stage: name, Err: err}
		}

		if result.Empty() || !SameShape(current, result) {
			result.Close()
			current.Close()
			return gocv.NewMat(), &StageError{Stage: name, Err: fmt.Errorf("stage changed the image geometry or type")}
		}

		if debug {
			cp.logStep(i, step.Stage, current, result, time.Since(start))
		}

		current.Close()
		current = result
	}

	return current, nil
}

func (cp *CorrectionPipeline) logStep(index int, stage algorithms.Stage, before, after gocv.Mat, elapsed time.Duration) {
	fields := logrus.Fields{
		"step":        index,
		"stage":       stage.Name(),
		"duration_ms": elapsed.Milliseconds(),
	}
	for k, v := range stage.Params() {
		fields["param_"+k] = v
	}

	stepMetrics, err := cp.metricsEval.EvaluateStep(before, after)
	if err != nil {
		cp.logger.WithFields(fields).WithError(err).Debug("PIPELINE: Step metrics unavailable")
		return
	}
	for k, v := range stepMetrics {
		fields[k] = v
	}
	// +Inf is not valid JSON
	fields["psnr"] = metrics.FormatPSNR(stepMetrics["psnr"])

	cp.logger.WithFields(fields).Debug("PIPELINE: Step completed")
}
