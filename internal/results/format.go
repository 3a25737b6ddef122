package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Format renders reports as "json", "csv" or "text" (the default).
func Format(reports []Report, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return formatJSON(reports)
	case "csv":
		return formatCSV(reports)
	default:
		return formatText(reports), nil
	}
}

func formatJSON(reports []Report) (string, error) {
	var (
		bts []byte
		err error
	)
	if len(reports) == 1 {
		bts, err = json.MarshalIndent(reports[0], "", "  ")
	} else {
		bts, err = json.MarshalIndent(struct {
			Results []Report `json:"results"`
		}{Results: reports}, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatCSV(reports []Report) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	header := []string{
		"source", "found", "num_points", "num_inliers", "inlier_ratio", "iterations", "mean_error",
		"h00", "h01", "h02", "h10", "h11", "h12", "h20", "h21", "h22", "duration_ms", "error",
	}
	if err := writer.Write(header); err != nil {
		return "", err
	}
	for _, r := range reports {
		row := []string{
			r.Source,
			strconv.FormatBool(r.Found),
			strconv.Itoa(r.NumPoints),
			strconv.Itoa(r.NumInliers),
			fmt.Sprintf("%.4f", r.InlierRatio),
			strconv.Itoa(r.Iterations),
			fmt.Sprintf("%.4f", r.MeanError),
		}
		for i := range 9 {
			if r.Found {
				row = append(row, strconv.FormatFloat(r.Homography[i/3][i%3], 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, fmt.Sprintf("%.3f", r.DurationMs), r.Error)
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(reports []Report) string {
	var output strings.Builder
	for i, r := range reports {
		if i > 0 {
			output.WriteString("\n")
		}
		if r.Source != "" {
			output.WriteString(fmt.Sprintf("# %s\n", r.Source))
		}
		if r.Error != "" {
			output.WriteString(fmt.Sprintf("error: %s\n", r.Error))
			continue
		}
		if !r.Found {
			output.WriteString(fmt.Sprintf("no homography found (%d points, %d iterations)\n", r.NumPoints, r.Iterations))
			continue
		}
		output.WriteString("homography:\n")
		for _, row := range r.Homography {
			output.WriteString(fmt.Sprintf("  %14.8g %14.8g %14.8g\n", row[0], row[1], row[2]))
		}
		output.WriteString(fmt.Sprintf("inliers: %d/%d (%.1f%%)\n", r.NumInliers, r.NumPoints, 100*r.InlierRatio))
		output.WriteString(fmt.Sprintf("iterations: %d\n", r.Iterations))
		output.WriteString(fmt.Sprintf("mean error: %.4f\n", r.MeanError))
		if r.TruthError != nil {
			output.WriteString(fmt.Sprintf("truth error: %.4f\n", *r.TruthError))
		}
		output.WriteString(fmt.Sprintf("time: %.3f ms\n", r.DurationMs))
	}
	return output.String()
}
