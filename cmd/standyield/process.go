package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/standyield/standyield/api/v1alpha1"
	"github.com/standyield/standyield/internal/config"
	"github.com/standyield/standyield/internal/logging"
)

type processOptions struct {
	input  string
	output string
}

func newProcessCommand(app *appContext) *cobra.Command {
	opts := &processOptions{}
	cmd := &cobra.Command{
		Use:   "process -f stands.yaml",
		Short: "Process a StandList document",
		Long: "Process reconciles, allocates and estimates every polygon of a StandList\n" +
			"document and writes the document back with each record's status filled in.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runProcess(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.input, "file", "f", "", "StandList document to process (\"-\" for stdin)")
	fs.StringVarP(&opts.output, "output", "o", "", "write the processed document here instead of stdout")
	// Read by applyProcessingFlags, which overlays them on the control file.
	fs.Int("workers", config.DefaultWorkers(), "polygons processed concurrently")
	fs.Bool("fail-fast", false, "stop at the first polygon that fails")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// applyProcessingFlags copies explicitly set processing flags into cfg.
func applyProcessingFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("workers") {
		workers, err := fs.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Processing.Workers = workers
	}
	if fs.Changed("fail-fast") {
		failFast, err := fs.GetBool("fail-fast")
		if err != nil {
			return err
		}
		cfg.Processing.FailFast = failFast
	}
	return nil
}

func (app *appContext) runProcess(cmd *cobra.Command, opts *processOptions) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	in, err := openInput(cmd, opts.input)
	if err != nil {
		return err
	}
	list, err := v1alpha1.DecodeStandList(in)
	_ = in.Close()
	if err != nil {
		return err
	}

	proc, err := app.newProcessor()
	if err != nil {
		return err
	}
	summary, batchErr := proc.ProcessStandList(ctx, list)

	if err := writeOutput(cmd, opts.output, list); err != nil {
		return err
	}
	if batchErr != nil {
		return fmt.Errorf("processing stopped: %w", batchErr)
	}
	logger.V(logging.DEBUG).Info("Wrote processed stands", "output", opts.output, "stands", summary.Total)
	return nil
}
