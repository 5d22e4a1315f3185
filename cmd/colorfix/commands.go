package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"batch-color-correction/internal/batch"
	"batch-color-correction/internal/config"
	"batch-color-correction/internal/core"
)

type rootOptions struct {
	debug      bool
	preset     string
	configPath string
	prefix     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           AppName,
		Short:         "Automatic white balance, green tint and exposure correction for image folders",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug mode with verbose logging")
	flags.StringVar(&opts.preset, "preset", string(config.PresetGrayWorld), "Correction preset: grayworld or lab-enhance")
	flags.StringVar(&opts.configPath, "config", "", "YAML file overriding preset parameters")
	flags.StringVar(&opts.prefix, "prefix", "", "Prefix for output file names (overrides the preset)")

	root.AddCommand(newRunCommand(opts), newPreviewCommand(opts), newParamsCommand(opts))
	return root
}

// resolveParams merges preset, config file and flags. An explicit --preset
// beats the preset named in the config file.
func (o *rootOptions) resolveParams(cmd *cobra.Command) (config.Params, error) {
	var (
		params config.Params
		err    error
	)

	preset := config.Preset(o.preset)
	switch {
	case o.configPath != "" && cmd.Flags().Changed("preset"):
		params, err = config.LoadForPreset(o.configPath, preset)
	case o.configPath != "":
		params, err = config.Load(o.configPath, preset)
	default:
		params, err = config.ForPreset(preset)
	}
	if err != nil {
		return config.Params{}, err
	}

	if cmd.Flags().Changed("prefix") {
		params.Output.Prefix = o.prefix
	}

	return params, params.Validate()
}

func (o *rootOptions) buildPipeline(cmd *cobra.Command, logger *logrus.Logger) (*core.CorrectionPipeline, error) {
	params, err := o.resolveParams(cmd)
	if err != nil {
		return nil, err
	}
	return core.NewCorrectionPipeline(params, logger)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRunCommand(root *rootOptions) *cobra.Command {
	var (
		input      string
		output     string
		workers    int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Correct every image of an input directory into an output directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := initLogger(root.debug)
			logger.WithFields(logrus.Fields{
				"version":    AppVersion,
				"debug_mode": root.debug,
			}).Info("Starting batch colour correction")

			pipeline, err := root.buildPipeline(cmd, logger)
			if err != nil {
				return err
			}

			images, _, err := batch.Scan(input)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			var progress *progressReporter
			if !noProgress {
				progress = newProgressReporter(len(images))
			}

			runner := batch.NewRunner(pipeline, logger, batch.Options{
				Workers:   workers,
				OnOutcome: progress.observe,
			})

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			report, err := runner.Run(ctx, input, output)
			progress.finish()

			if errors.Is(err, core.ErrLocation) {
				printLocationFailure(err)
				return &exitError{code: 2, err: err}
			}

			printSummary(report)

			if err != nil {
				return &exitError{code: 130, err: err}
			}
			if report.Failed > 0 {
				return &exitError{code: 1, err: fmt.Errorf("%d file(s) failed", report.Failed)}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (created if missing)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent images (0 = number of CPUs, max 16)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

func newPreviewCommand(root *rootOptions) *cobra.Command {
	var (
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Correct the first image of a directory and write it to a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := initLogger(root.debug)

			pipeline, err := root.buildPipeline(cmd, logger)
			if err != nil {
				return err
			}

			first, err := batch.FirstImage(input)
			if err != nil {
				return err
			}

			runner := batch.NewRunner(pipeline, logger, batch.Options{Workers: 1})
			outcome := runner.ProcessFile(cmd.Context(), first, output)
			if outcome.Status.Failed() {
				return fmt.Errorf("%s: %s: %w", outcome.Name, outcome.Status, outcome.Err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", first, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output image file")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

func newParamsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the effective correction parameters as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := root.resolveParams(cmd)
			if err != nil {
				return err
			}

			out, err := params.YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
