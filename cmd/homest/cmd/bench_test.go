package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/homest/internal/benchmark"
)

func TestBenchCommand_Table(t *testing.T) {
	stdout, _, err := execute(t, "bench",
		"--points", "60", "--trials", "2", "--outliers", "0.2",
		"--sampling-modes", "distinct", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUCCESS")
	assert.Contains(t, stdout, "distinct")
	assert.Contains(t, stdout, "2/2")
}

func TestBenchCommand_JSON(t *testing.T) {
	stdout, _, err := execute(t, "bench",
		"--points", "60", "--trials", "2", "--outliers", "0.1,0.3",
		"--seed", "3", "--format", "json")
	require.NoError(t, err)

	var res []benchmark.CaseResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.Len(t, res, 4)
	assert.InDelta(t, 0.1, res[0].Case.OutlierFraction, 1e-12)
	assert.Equal(t, "independent", string(res[1].Case.Sampling))
	for _, r := range res {
		assert.Equal(t, 2, r.Trials)
		assert.Positive(t, r.AllocatedPerTrial)
	}
	assert.Contains(t, stdout, `"allocated_bytes_per_trial"`)
	assert.Contains(t, stdout, `"gc_runs"`)
}

func TestBenchCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad sampling", []string{"bench", "--sampling-modes", "lottery"}, "unknown sampling"},
		{"no trials", []string{"bench", "--trials", "0"}, "trials must be positive"},
		{"too few points", []string{"bench", "--points", "3"}, "points must be at least"},
		{"bad format", []string{"bench", "--trials", "1", "--points", "10", "--format", "xml"}, "unsupported output format"},
		{"bad confidence", []string{"bench", "--confidence", "1.5"}, "invalid estimator settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
