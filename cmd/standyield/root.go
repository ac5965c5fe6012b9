package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/standyield/standyield/api/v1alpha1"
	"github.com/standyield/standyield/internal/config"
	"github.com/standyield/standyield/internal/estimation"
	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/internal/metrics"
	"github.com/standyield/standyield/internal/processor"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath      string
	logLevel        string
	development     bool
	metricsTextfile string
}

func (o *rootOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "control file path (default: STANDYIELD_* environment only)")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (error, warn, info, debug, trace)")
	fs.BoolVar(&o.development, "dev", false, "human-readable development logging")
	fs.StringVar(&o.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")
}

// appContext carries what every subcommand needs once the control file is loaded.
type appContext struct {
	cfg      *config.Config
	logger   logr.Logger
	recorder *metrics.Recorder
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	app := &appContext{}

	cmd := &cobra.Command{
		Use:   "standyield",
		Short: "Reconcile forest stand utilization and allocate basal area across species",
		Long: "standyield processes forest inventory polygons: it reconciles each layer's\n" +
			"basal area, stem density and diameter across utilization classes, allocates\n" +
			"the primary layer across its species and estimates the veteran layer.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return app.init(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return app.flushMetrics()
		},
	}
	opts.addFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newProcessCommand(app),
		newReconcileCommand(app),
		newVersionCommand(),
	)
	return cmd
}

func (app *appContext) init(cmd *cobra.Command, opts *rootOptions) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("dev") {
		cfg.Logging.Development = opts.development
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = opts.metricsTextfile
	}
	if err := applyProcessingFlags(flags, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)
	cmd.SetContext(logging.IntoContext(cmd.Context(), logger))

	app.cfg = cfg
	app.logger = logger
	if cfg.MetricsEnabled() {
		app.recorder, err = metrics.NewRecorder(metrics.Config{Namespace: cfg.Metrics.Namespace})
		if err != nil {
			return err
		}
	}
	logger.V(logging.DEBUG).Info("Configuration loaded",
		"config", opts.configPath,
		"workers", cfg.Processing.Workers,
		"fractionSource", cfg.Processing.FractionSource,
		"volumeGroups", len(cfg.Coefficients.VolumeGroups))
	return nil
}

func (app *appContext) newProcessor() (*processor.Processor, error) {
	est := estimation.NewFromConfig(&app.cfg.Coefficients, app.logger)
	return processor.New(app.cfg, est, app.recorder)
}

func (app *appContext) flushMetrics() error {
	if app.cfg == nil || app.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := app.recorder.WriteTextfile(app.cfg.Metrics.Textfile); err != nil {
		return err
	}
	app.logger.V(logging.DEBUG).Info("Wrote metrics", "path", app.cfg.Metrics.Textfile)
	return nil
}

// openInput opens path for reading; "-" reads standard input.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	switch path {
	case "":
		return nil, errors.New("an input file is required (-f)")
	case "-":
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return f, nil
}

// writeOutput encodes doc to path, or to standard output when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, doc any) error {
	if path == "" || path == "-" {
		return v1alpha1.Encode(cmd.OutOrStdout(), doc)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := v1alpha1.Encode(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
