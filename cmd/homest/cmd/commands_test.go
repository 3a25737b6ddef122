package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/homest/internal/correspondence"
	"github.com/MeKo-Tech/homest/internal/results"
	"github.com/MeKo-Tech/homest/internal/testutil"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestEstimateCommand(t *testing.T) {
	dir := isolate(t)
	path, _ := testutil.WriteDataset(t, dir, testutil.DefaultFixture("scene"))

	stdout, _, err := executeIn(t, "estimate", path, "--seed", "5", "--format", "json")
	require.NoError(t, err)

	var report results.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.True(t, report.Found)
	assert.Equal(t, path, report.Source)
	assert.Equal(t, 100, report.NumPoints)
	assert.Equal(t, 70, report.NumInliers)
	require.NotNil(t, report.TruthError)
	assert.Less(t, *report.TruthError, 1e-4)
}

func TestEstimateCommand_TextOutputToFile(t *testing.T) {
	dir := isolate(t)
	path, _ := testutil.WriteDataset(t, dir, testutil.DefaultFixture("scene"))
	out := filepath.Join(dir, "result.txt")

	stdout, _, err := executeIn(t, "estimate", path, "--seed", "5", "--output", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "homography:")
	assert.Contains(t, string(content), "inliers: 70/100")
}

func TestEstimateCommand_Stdin(t *testing.T) {
	isolate(t)

	cmd := NewRootCommand()
	var stdout strings.Builder
	cmd.SetOut(&stdout)
	cmd.SetErr(&strings.Builder{})
	cmd.SetIn(strings.NewReader("x1,y1,x2,y2\n0,0,1,2\n1,0,2,2\n0,1,1,3\n1,1,2,3\n2,3,3,5\n"))
	cmd.SetArgs([]string{"estimate", "-", "--input-format", "csv", "--format", "csv", "--seed", "1"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "true,5,5,")
}

func TestEstimateCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing file", []string{"estimate", "nope.json"}, "nope.json"},
		{"unsupported extension", []string{"estimate", "points.txt"}, "unsupported correspondence format"},
		{"bad confidence", []string{"estimate", "x.json", "--confidence", "1.5"}, "confidence"},
		{"bad sampling", []string{"estimate", "x.json", "--sampling", "sometimes"}, "unknown sampling"},
		{"bad output format", []string{"estimate", "x.json", "--format", "xml"}, "unsupported output format"},
		{"no args", []string{"estimate"}, "requires at least 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEstimateCommand_MismatchedSets(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pts1":[[0,0],[1,1]],"pts2":[[0,0]]}`), 0o600))

	_, _, err := executeIn(t, "estimate", path)
	require.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	dir := isolate(t)
	data := filepath.Join(dir, "data")
	testutil.WriteDatasets(t, data, "set", 3)

	stdout, _, err := executeIn(t, "batch", data, "--seed", "9", "--workers", "2", "--format", "csv", "--stats")
	require.NoError(t, err)

	assert.Contains(t, stdout, "source,found,num_points")
	assert.Contains(t, stdout, "set_00.json,true,100,70")
	assert.Contains(t, stdout, "set_02.json,true,100,70")
	assert.Contains(t, stdout, "Files: 3 (found 3")
}

func TestBatchCommand_DeterministicAcrossWorkers(t *testing.T) {
	dir := isolate(t)
	data := filepath.Join(dir, "data")
	testutil.WriteDatasets(t, data, "set", 4)

	one, _, err := executeIn(t, "batch", data, "--seed", "9", "--workers", "1", "--format", "json")
	require.NoError(t, err)
	four, _, err := executeIn(t, "batch", data, "--seed", "9", "--workers", "4", "--format", "json")
	require.NoError(t, err)

	var a, b struct {
		Results []results.Report `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(one), &a))
	require.NoError(t, json.Unmarshal([]byte(four), &b))
	require.Len(t, a.Results, 4)
	for i := range a.Results {
		assert.Equal(t, a.Results[i].Inliers, b.Results[i].Inliers)
		assert.Equal(t, a.Results[i].Iterations, b.Results[i].Iterations)
		assert.Equal(t, a.Results[i].Homography, b.Results[i].Homography)
	}
}

func TestBatchCommand_Errors(t *testing.T) {
	dir := isolate(t)
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(empty, 0o750))

	_, _, err := executeIn(t, "batch", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no correspondence files found")

	_, _, err = executeIn(t, "batch", empty, "--workers", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be positive")
}

func TestGenerateCommand_Stdout(t *testing.T) {
	isolate(t)

	stdout, _, err := executeIn(t, "generate", "--count", "20", "--seed", "4", "--format", "yaml")
	require.NoError(t, err)

	set, err := correspondence.Decode(strings.NewReader(stdout), correspondence.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 20, set.Len())
	assert.NotNil(t, set.Truth)
}

func TestGenerateCommand_Reproducible(t *testing.T) {
	isolate(t)

	first, _, err := executeIn(t, "generate", "--count", "15", "--seed", "8", "--format", "csv")
	require.NoError(t, err)
	second, _, err := executeIn(t, "generate", "--count", "15", "--seed", "8", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateCommand_Directory(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "sets")

	stdout, _, err := executeIn(t, "generate", "--sets", "3", "--dir", out, "--seed", "2", "--count", "30")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Generated 3 sets")

	for _, name := range []string{"scene_000.json", "scene_001.json", "scene_002.json"} {
		set, err := correspondence.Load(filepath.Join(out, name))
		require.NoError(t, err)
		assert.Equal(t, 30, set.Len())
	}
}

func TestGenerateCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"outliers out of range", []string{"generate", "--outliers", "1.5"}, "outlier fraction"},
		{"sets without dir", []string{"generate", "--sets", "2"}, "requires --dir"},
		{"dir and output", []string{"generate", "--dir", "d", "--output", "x.json"}, "mutually exclusive"},
		{"bad format", []string{"generate", "--format", "xml"}, "unsupported correspondence format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := executeIn(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "homest.yaml")
	assert.FileExists(t, filepath.Join(dir, "homest.yaml"))

	_, _, err = executeIn(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = executeIn(t, "config", "init", "--force")
	require.NoError(t, err)

	stdout, _, err = executeIn(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "estimator:")
	assert.Contains(t, stdout, "confidence: 0.99")

	stdout, _, err = executeIn(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, stdout, "homest.yaml")
	assert.Contains(t, stdout, "HOMEST")

	stdout, _, err = executeIn(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration is valid")
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("estimator:\n  max_iterations: 1\n  seed: 3\n"), 0o600))
	path, _ := testutil.WriteDataset(t, dir, testutil.DefaultFixture("scene"))

	stdout, _, err := executeIn(t, "--config", cfgPath, "estimate", path, "--format", "json")
	require.NoError(t, err)

	var report results.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 1, report.Iterations)
}

func TestConfigEnvironmentOverride(t *testing.T) {
	dir := isolate(t)
	t.Setenv("HOMEST_ESTIMATOR_MAX_ITERATIONS", "2")
	path, _ := testutil.WriteDataset(t, dir, testutil.DefaultFixture("scene"))

	stdout, _, err := executeIn(t, "estimate", path, "--seed", "3", "--format", "json")
	require.NoError(t, err)

	var report results.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.LessOrEqual(t, report.Iterations, 2)
}
