package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/k0kubun/go-ansi"
	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"

	"batch-color-correction/internal/batch"
	"batch-color-correction/internal/metrics"
)

// progressReporter advances a terminal bar once per processed image.
// A nil reporter ignores every call.
type progressReporter struct {
	bar *progressbar.ProgressBar
}

func newProgressReporter(total int) *progressReporter {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(ansi.NewAnsiStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][CC][reset] Correcting"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	return &progressReporter{bar: bar}
}

func (p *progressReporter) observe(o batch.Outcome) {
	if p == nil || o.Status == batch.StatusSkipped {
		return
	}
	p.bar.Add(1)
}

func (p *progressReporter) finish() {
	if p == nil {
		return
	}
	p.bar.Finish()
	fmt.Fprintln(ansi.NewAnsiStderr())
}

func printLocationFailure(err error) {
	color.Output = ansi.NewAnsiStdout()
	color.Red("Location error: %v", err)
}

func printSummary(report *batch.Report) {
	if report == nil {
		return
	}

	color.Output = ansi.NewAnsiStdout()
	colorstring.Fprintf(ansi.NewAnsiStdout(),
		"\nProcessed: [green]%d[reset], Failed: [red]%d[reset], Skipped: [yellow]%d[reset] in %s\n",
		report.Processed, report.Failed, report.Skipped, report.Duration.Round(time.Millisecond))

	for _, o := range report.Outcomes {
		switch o.Status {
		case batch.StatusProcessed:
			color.Green("  %-40s %s (psnr %s)", o.Name, o.Status, metrics.FormatPSNR(o.PSNR))
		case batch.StatusSkipped:
			color.Yellow("  %-40s %s", o.Name, o.Status)
		}
	}

	failures := report.Failures()
	if len(failures) == 0 {
		return
	}

	color.Red("\nFailed files:")
	for _, o := range failures {
		color.Red("  %-40s %s: %v", o.Name, o.Status, o.Err)
	}
	for _, tally := range report.FailureTallies() {
		colorstring.Fprintf(ansi.NewAnsiStdout(), "  [red]%s[reset]: %d\n", tally.Status, tally.Count)
	}
}
