package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/homest/internal/config"
	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/version"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = NewRootCommand()

// app holds the configuration state of one command tree.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
}

// NewRootCommand builds a complete homest command tree with its own
// configuration state, so tests can run commands in-process.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	a.loader = config.NewLoaderWithViper(a.v)

	root := &cobra.Command{
		Use:   "homest",
		Short: "Robust homography estimation from point correspondences",
		Long: `homest estimates the planar homography relating two sets of corresponding
2D points. It fits candidate homographies to random minimal samples (RANSAC),
keeps the largest consensus set and refits a normalized DLT over its inliers.

This tool provides:
- Estimation for JSON, YAML and CSV correspondence files
- Parallel batch estimation with summary statistics
- Synthetic correspondence generation with a known ground truth
- An HTTP and WebSocket estimation server
- Speed and accuracy sweeps over synthetic data

Examples:
  homest estimate matches.json
  homest batch data/ --recursive --format csv --output results.csv
  homest generate --count 500 --outliers 0.4 --output scene.json
  homest serve --port 8080
  homest bench --trials 50`,
		Version:           version.String(),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/homest, /etc/homest)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = a.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		a.newEstimateCommand(),
		a.newBatchCommand(),
		a.newGenerateCommand(),
		a.newServeCommand(),
		a.newBenchCommand(),
		a.newConfigCommand(),
	)
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// setup loads the configuration and installs the JSON logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	// Logs go to stderr; stdout carries the command's results.
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return nil
}

// addEstimatorFlags registers the flags that override the estimator section.
func addEstimatorFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("confidence", homography.DefaultConfidence, "probability of drawing at least one all-inlier sample (0..1)")
	cmd.Flags().Float64("threshold", homography.DefaultDistanceThreshold, "inlier threshold on the summed reprojection distance")
	cmd.Flags().Int("max-iterations", homography.DefaultMaxIterations, "maximum RANSAC iterations")
	cmd.Flags().Uint64("seed", 0, "random seed (0 seeds from the clock)")
	cmd.Flags().String("sampling", string(homography.SamplingDistinct), "sample drawing: distinct or independent")
}

// estimatorConfig applies changed estimator flags on top of the loaded configuration.
func (a *app) estimatorConfig(cmd *cobra.Command) (homography.Config, error) {
	cfg := *a.cfg

	if cmd.Flags().Changed("confidence") {
		cfg.Estimator.Confidence, _ = cmd.Flags().GetFloat64("confidence")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Estimator.DistanceThreshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.Estimator.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Estimator.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if cmd.Flags().Changed("sampling") {
		cfg.Estimator.Sampling, _ = cmd.Flags().GetString("sampling")
	}

	est, err := cfg.ToEstimatorConfig()
	if err != nil {
		return est, fmt.Errorf("invalid estimator settings: %w", err)
	}
	return est, nil
}

// addOutputFlags registers --format and --output.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format: text, json or csv")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

// outputSettings returns the output format and file after flag overrides.
func (a *app) outputSettings(cmd *cobra.Command) (string, string, error) {
	format := a.cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if format == "" {
		format = "text"
	}
	switch format {
	case "text", "json", "csv":
	default:
		return "", "", fmt.Errorf("unsupported output format: %s", format)
	}

	outputFile := a.cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	return format, outputFile, nil
}

// writeOutput writes content to outputFile, or to w when no file is given.
func writeOutput(w io.Writer, content, outputFile string) error {
	if outputFile == "" {
		_, err := io.WriteString(w, content)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
