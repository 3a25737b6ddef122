package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/testutil"
)

func testConfig(workers int) *Config {
	est := homography.DefaultConfig()
	est.Seed = 7
	return &Config{
		Estimator: est,
		Workers:   workers,
		Format:    "json",
	}
}

func TestProcessBatch(t *testing.T) {
	dir := t.TempDir()
	paths := testutil.WriteDatasets(t, dir, "set", 5)

	res, err := ProcessBatch(context.Background(), []string{dir}, testConfig(3))
	require.NoError(t, err)

	assert.Equal(t, paths, res.Files)
	require.Len(t, res.Reports, 5)
	assert.Equal(t, 3, res.WorkerCount)
	for i, r := range res.Reports {
		assert.Equal(t, paths[i], r.Source)
		assert.True(t, r.Found, "file %s", r.Source)
		assert.Equal(t, 70, r.NumInliers, "file %s", r.Source)
		require.NotNil(t, r.TruthError)
		assert.Less(t, *r.TruthError, 1e-4)
	}

	assert.Equal(t, 5, res.Summary.Files)
	assert.Equal(t, 5, res.Summary.Found)
	assert.InDelta(t, 0.7, res.Summary.InlierRatio.Mean, 1e-9)
}

func TestProcessBatch_DeterministicAcrossWorkerCounts(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDatasets(t, dir, "set", 6)

	one, err := ProcessBatch(context.Background(), []string{dir}, testConfig(1))
	require.NoError(t, err)
	many, err := ProcessBatch(context.Background(), []string{dir}, testConfig(4))
	require.NoError(t, err)

	for i := range one.Reports {
		assert.Equal(t, one.Reports[i].Inliers, many.Reports[i].Inliers)
		assert.Equal(t, one.Reports[i].Iterations, many.Reports[i].Iterations)
		assert.Equal(t, one.Reports[i].Homography, many.Reports[i].Homography)
	}
}

func TestProcessBatch_NoFiles(t *testing.T) {
	_, err := ProcessBatch(context.Background(), []string{t.TempDir()}, testConfig(2))
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestProcessBatch_Errors(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDatasets(t, dir, "set", 2)
	bad := filepath.Join(dir, "set_99.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))

	t.Run("stop on first error", func(t *testing.T) {
		_, err := ProcessBatch(context.Background(), []string{dir}, testConfig(2))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "set_99.json")
	})

	t.Run("continue on error", func(t *testing.T) {
		cfg := testConfig(2)
		cfg.ContinueOnError = true

		res, err := ProcessBatch(context.Background(), []string{dir}, cfg)
		require.NoError(t, err)
		require.Len(t, res.Reports, 3)
		assert.NotEmpty(t, res.Reports[2].Error)
		assert.Equal(t, 1, res.Summary.Failed)
		assert.Equal(t, 2, res.Summary.Found)
	})
}

func TestProcessBatch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDatasets(t, dir, "set", 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProcessBatch(ctx, []string{dir}, testConfig(2))
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingProgress struct {
	started   int
	progress  []int
	errors    int
	completed bool
}

func (r *recordingProgress) OnStart(total int)         { r.started = total }
func (r *recordingProgress) OnProgress(current, _ int) { r.progress = append(r.progress, current) }
func (r *recordingProgress) OnComplete()               { r.completed = true }
func (r *recordingProgress) OnError(_ int, _ error)    { r.errors++ }

func TestProcessBatch_Progress(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDatasets(t, dir, "set", 4)

	progress := &recordingProgress{}
	cfg := testConfig(2)
	cfg.Progress = progress

	_, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 4, progress.started)
	assert.Equal(t, []int{1, 2, 3, 4}, progress.progress)
	assert.Zero(t, progress.errors)
	assert.True(t, progress.completed)
}

func TestResult_SaveResultsAndStats(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDatasets(t, dir, "set", 2)

	res, err := ProcessBatch(context.Background(), []string{dir}, testConfig(2))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.SaveResults(&buf, "json", ""))
	assert.Contains(t, buf.String(), `"results"`)

	out := filepath.Join(dir, "out.csv")
	require.NoError(t, res.SaveResults(&buf, "csv", out))
	data, err := os.ReadFile(out) //nolint:gosec // test output path
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(string(data)), "\n")+1)

	buf.Reset()
	res.PrintStats(&buf)
	assert.Contains(t, buf.String(), "Files: 2 (found 2")
	assert.Contains(t, buf.String(), "Inlier ratio")
}
