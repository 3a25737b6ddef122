package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.json"))
	touch(t, filepath.Join(dir, "a.csv"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "nested", "c.yaml"))

	t.Run("flat", func(t *testing.T) {
		files, err := discoverFiles([]string{dir}, false, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.csv"),
			filepath.Join(dir, "b.json"),
		}, files)
	})

	t.Run("recursive", func(t *testing.T) {
		files, err := discoverFiles([]string{dir}, true, nil, nil)
		require.NoError(t, err)
		assert.Len(t, files, 3)
		assert.Contains(t, files, filepath.Join(dir, "nested", "c.yaml"))
	})

	t.Run("include and exclude", func(t *testing.T) {
		files, err := discoverFiles([]string{dir}, true, []string{"*.json", "*.yaml"}, []string{"c.*"})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "b.json")}, files)
	})

	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		files, err := discoverFiles([]string{path}, false, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{path}, files)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := discoverFiles([]string{filepath.Join(dir, "missing")}, false, nil, nil)
		assert.Error(t, err)
	})
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"no patterns", "/x/a.json", nil, nil, true},
		{"included", "/x/a.json", []string{"*.json"}, nil, true},
		{"not included", "/x/a.csv", []string{"*.json"}, nil, false},
		{"excluded wins", "/x/a.json", []string{"*.json"}, []string{"a.*"}, false},
		{"matches base name", "/dir.json/a.csv", []string{"*.json"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIncludeFile(tt.path, tt.include, tt.exclude))
		})
	}
}
