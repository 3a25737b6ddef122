// Package correspondence reads and writes point correspondence sets in JSON,
// YAML and CSV.
package correspondence

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r2"

	"github.com/MeKo-Tech/homest/internal/geometry"
	"github.com/MeKo-Tech/homest/internal/homography"
)

// Format identifies a file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for unknown formats or file extensions.
var ErrUnsupportedFormat = errors.New("unsupported correspondence format")

// SupportedExtensions lists the file extensions Load understands.
var SupportedExtensions = []string{".json", ".yaml", ".yml", ".csv"}

// Set is a pair of equal-length point sets where index i of Pts1 corresponds
// to index i of Pts2. Truth is the known homography, if any.
type Set struct {
	Pts1  []r2.Point
	Pts2  []r2.Point
	Truth *geometry.Homography
}

// Len returns the number of correspondences.
func (s *Set) Len() int {
	return len(s.Pts1)
}

// Validate checks that both point sets have the same length and finite values.
func (s *Set) Validate() error {
	if len(s.Pts1) != len(s.Pts2) {
		return fmt.Errorf("%w: %d vs %d", homography.ErrMismatchedPointSets, len(s.Pts1), len(s.Pts2))
	}
	for i := range s.Pts1 {
		if !geometry.IsFinitePoint(s.Pts1[i]) || !geometry.IsFinitePoint(s.Pts2[i]) {
			return fmt.Errorf("%w: correspondence %d has non-finite coordinates", homography.ErrInvalidArgument, i)
		}
	}
	return nil
}

// ParseFormat converts a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// IsSupportedFile reports whether path has a known extension.
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
