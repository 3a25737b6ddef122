package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/homest/internal/common"
	"github.com/MeKo-Tech/homest/internal/correspondence"
	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/results"
)

func (a *app) newEstimateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate FILE [FILE...]",
		Short: "Estimate the homography of correspondence files",
		Long: `Estimate the homography relating the two point sets of each correspondence file.

Files are read as JSON, YAML or CSV depending on their extension. Use "-" to
read from stdin, together with --input-format.

Examples:
  homest estimate matches.json
  homest estimate matches.csv --threshold 2 --seed 42 --format json
  cat matches.yaml | homest estimate - --input-format yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runEstimate,
	}

	addEstimatorFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().String("input-format", "json", "format of stdin input: json, yaml or csv")

	return cmd
}

func (a *app) runEstimate(cmd *cobra.Command, args []string) error {
	estCfg, err := a.estimatorConfig(cmd)
	if err != nil {
		return err
	}
	format, outputFile, err := a.outputSettings(cmd)
	if err != nil {
		return err
	}

	est, err := homography.NewEstimator(estCfg, homography.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	reports := make([]results.Report, 0, len(args))
	for _, path := range args {
		set, err := a.readSet(cmd, path)
		if err != nil {
			return err
		}

		timer := common.NewNamedTimer(path)
		res, err := est.Estimate(set.Pts1, set.Pts2)
		timer.Stop()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		report := results.NewReport(path, set.Pts1, set.Pts2, res, timer.Duration())
		if set.Truth != nil {
			report = report.WithTruth(*set.Truth, set.Pts1)
		}
		slog.Debug("estimated homography",
			"file", path,
			"found", report.Found,
			"inliers", report.NumInliers,
			"iterations", report.Iterations,
			"duration", timer.String())
		reports = append(reports, report)
	}

	content, err := results.Format(reports, format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), content, outputFile)
}

// readSet loads path, or decodes stdin for "-".
func (a *app) readSet(cmd *cobra.Command, path string) (*correspondence.Set, error) {
	if path != "-" {
		return correspondence.Load(path)
	}

	name, _ := cmd.Flags().GetString("input-format")
	format, err := correspondence.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	set, err := correspondence.Decode(cmd.InOrStdin(), format)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return set, nil
}
