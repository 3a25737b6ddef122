package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/homest/internal/correspondence"
	"github.com/MeKo-Tech/homest/internal/synth"
)

// DatasetFixture describes a synthetic correspondence set to write to disk.
type DatasetFixture struct {
	Name            string
	Format          correspondence.Format
	Count           int
	OutlierFraction float64
	Noise           float64
	Seed            uint64
}

// DefaultFixture returns a JSON fixture with 100 points and 30% outliers.
func DefaultFixture(name string) DatasetFixture {
	return DatasetFixture{
		Name:            name,
		Format:          correspondence.FormatJSON,
		Count:           100,
		OutlierFraction: 0.3,
		Seed:            42,
	}
}

// GenerateDataset builds the synthetic dataset described by f.
func GenerateDataset(t *testing.T, f DatasetFixture) *synth.Dataset {
	t.Helper()

	cfg := synth.DefaultConfig()
	cfg.Count = f.Count
	cfg.OutlierFraction = f.OutlierFraction
	cfg.Noise = f.Noise
	cfg.Seed = f.Seed

	gen, err := synth.NewGenerator(cfg)
	require.NoError(t, err, "Failed to create generator")

	ds, err := gen.Generate()
	require.NoError(t, err, "Failed to generate dataset")
	return ds
}

// WriteDataset generates the dataset described by f and saves it in dir.
// The returned path carries the extension of f.Format.
func WriteDataset(t *testing.T, dir string, f DatasetFixture) (string, *synth.Dataset) {
	t.Helper()

	ds := GenerateDataset(t, f)
	truth := ds.Truth
	set := &correspondence.Set{Pts1: ds.Pts1, Pts2: ds.Pts2, Truth: &truth}

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, f.Name+"."+string(f.Format))
	require.NoError(t, correspondence.Save(path, set), "Failed to write fixture file: %s", path)
	return path, ds
}

// WriteDatasets writes count default fixtures named prefix_00, prefix_01, ...
// with distinct seeds and returns their paths in lexical order.
func WriteDatasets(t *testing.T, dir, prefix string, count int) []string {
	t.Helper()

	paths := make([]string, count)
	for i := range count {
		f := DefaultFixture(fmt.Sprintf("%s_%02d", prefix, i))
		f.Seed = uint64(100 + i) //nolint:gosec // small positive index
		paths[i], _ = WriteDataset(t, dir, f)
	}
	return paths
}
