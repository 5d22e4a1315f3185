// Batch runner: corrects every image of a directory into another directory
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"batch-color-correction/internal/core"
	"batch-color-correction/internal/io"
	"batch-color-correction/internal/metrics"
)

// Options tunes a Runner
type Options struct {
	// Workers bounds concurrent images; 0 selects DefaultWorkers.
	Workers int
	// OnOutcome, when set, is called once per recorded outcome. Calls are
	// serialized but come from worker goroutines.
	OnOutcome func(Outcome)
}

// Runner applies one CorrectionPipeline to a directory of images
type Runner struct {
	pipeline  *core.CorrectionPipeline
	loader    *io.ImageLoader
	logger    *logrus.Logger
	workers   int
	onOutcome func(Outcome)
}

// DefaultWorkers sizes the pool from the CPU count, capped at 16
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	if n > 16 {
		n = 16
	}
	return n
}

func NewRunner(pipeline *core.CorrectionPipeline, logger *logrus.Logger, opts Options) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	return &Runner{
		pipeline:  pipeline,
		loader:    io.NewImageLoader(logger),
		logger:    logger,
		workers:   workers,
		onOutcome: opts.OnOutcome,
	}
}

// Run corrects every image in inputDir into outputDir.
//
// A returned error wrapping core.ErrLocation means nothing was processed.
// Per-file failures never stop the run; they are counted and listed in the
// report. When ctx is cancelled no further files are started, files already
// in flight are finished, and the partial report is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}

	log := r.logger.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"input":  inputDir,
		"output": outputDir,
		"preset": r.pipeline.Params().Preset,
	})

	if err := PrepareOutput(outputDir); err != nil {
		log.WithError(err).Error("BATCH: Output location unusable")
		return nil, err
	}

	images, others, err := Scan(inputDir)
	if err != nil {
		log.WithError(err).Error("BATCH: Input location unusable")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"images":  len(images),
		"skipped": len(others),
		"workers": r.workers,
	}).Info("BATCH: Starting run")

	var (
		mu        sync.Mutex
		processed atomic.Int64
		failed    atomic.Int64
		skipped   atomic.Int64
	)

	record := func(o Outcome) {
		switch {
		case o.Status == StatusProcessed:
			processed.Add(1)
		case o.Status == StatusSkipped:
			skipped.Add(1)
		case o.Status.Failed():
			failed.Add(1)
		}

		mu.Lock()
		defer mu.Unlock()
		report.Outcomes = append(report.Outcomes, o)
		if r.onOutcome != nil {
			r.onOutcome(o)
		}
	}

	for _, name := range others {
		record(Outcome{
			Name:   name,
			Input:  filepath.Join(inputDir, name),
			Status: StatusSkipped,
		})
	}

	// in-flight files run to completion even after ctx is cancelled
	fileCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(r.workers)

	for _, name := range images {
		if ctx.Err() != nil {
			break
		}

		input := filepath.Join(inputDir, name)
		output := filepath.Join(outputDir, r.pipeline.Params().OutputName(name))
		g.Go(func() error {
			o := r.ProcessFile(fileCtx, input, output)
			r.logOutcome(log, o)
			record(o)
			return nil
		})
	}

	g.Wait()

	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Name < report.Outcomes[j].Name
	})
	report.Processed = int(processed.Load())
	report.Failed = int(failed.Load())
	report.Skipped = int(skipped.Load())
	report.Duration = time.Since(start)

	summary := log.WithFields(logrus.Fields{
		"processed":   report.Processed,
		"failed":      report.Failed,
		"skipped":     report.Skipped,
		"duration_ms": report.Duration.Milliseconds(),
	})

	if err := ctx.Err(); err != nil {
		summary.WithError(err).Warn("BATCH: Run cancelled")
		return report, err
	}

	summary.Info("BATCH: Run completed")
	return report, nil
}

// ProcessFile decodes input, corrects it and writes the result to output.
// Errors and Go panics raised while handling the file are folded into the
// Outcome. A native OpenCV abort (SIGABRT, segfault) cannot be recovered and
// still terminates the process.
func (r *Runner) ProcessFile(ctx context.Context, input, output string) (outcome Outcome) {
	start := time.Now()
	outcome = Outcome{
		Name:   filepath.Base(input),
		Input:  input,
		Output: output,
	}

	defer func() {
		if rec := recover(); rec != nil {
			outcome.Status = StatusProcessFailed
			outcome.Err = fmt.Errorf("panic while processing %s: %v", input, rec)
		}
		outcome.Duration = time.Since(start)
	}()

	img, err := r.loader.LoadImage(input)
	if err != nil {
		outcome.Status = StatusDecodeFailed
		outcome.Err = err
		return outcome
	}
	defer img.Close()

	corrected, err := r.pipeline.Process(ctx, img)
	if err != nil {
		outcome.Status = StatusProcessFailed
		outcome.Err = err
		return outcome
	}
	defer corrected.Close()

	if psnr, err := metrics.PSNR(img, corrected); err == nil {
		outcome.PSNR = psnr
	}

	if err := r.loader.SaveImage(corrected, output); err != nil {
		outcome.Status = StatusEncodeFailed
		outcome.Err = err
		return outcome
	}

	outcome.Status = StatusProcessed
	return outcome
}

func (r *Runner) logOutcome(log *logrus.Entry, o Outcome) {
	entry := log.WithFields(logrus.Fields{
		"file":        o.Name,
		"status":      o.Status,
		"duration_ms": o.Duration.Milliseconds(),
	})

	if o.Status.Failed() {
		entry.WithError(o.Err).Error("BATCH: File failed")
		return
	}

	entry.WithField("psnr", metrics.FormatPSNR(o.PSNR)).Info("BATCH: File processed")
}
