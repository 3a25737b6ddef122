package correspondence

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"gopkg.in/yaml.v3"
)

var csvHeader = []string{"x1", "y1", "x2", "y2"}

// Load reads a correspondence file, choosing the format from its extension.
func Load(path string) (*Set, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // user-supplied input path
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	set, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return set, nil
}

// Save writes set to path, choosing the format from its extension.
func Save(path string, set *Set) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, set, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// Decode reads a correspondence set in the given format and validates it.
func Decode(r io.Reader, format Format) (*Set, error) {
	var (
		set *Set
		err error
	)
	switch format {
	case FormatJSON:
		var doc Document
		if err = json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		set, err = doc.ToSet()
	case FormatYAML:
		var doc Document
		if err = yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		set, err = doc.ToSet()
	case FormatCSV:
		set, err = decodeCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Encode writes set in the given format.
func Encode(w io.Writer, set *Set, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewDocument(set))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(set)); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return encodeCSV(w, set)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func decodeCSV(r io.Reader) (*Set, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	set := &Set{}
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV: %w", err)
		}
		if line == 1 && isHeader(record) {
			continue
		}
		vals, err := parseFloats(record)
		if err != nil {
			return nil, fmt.Errorf("invalid CSV on line %d: %w", line, err)
		}
		set.Pts1 = append(set.Pts1, r2.Point{X: vals[0], Y: vals[1]})
		set.Pts2 = append(set.Pts2, r2.Point{X: vals[2], Y: vals[3]})
	}
	return set, nil
}

func encodeCSV(w io.Writer, set *Set) error {
	if len(set.Pts1) != len(set.Pts2) {
		return fmt.Errorf("point sets differ in length: %d vs %d", len(set.Pts1), len(set.Pts2))
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for i := range set.Pts1 {
		row := []string{
			formatFloat(set.Pts1[i].X), formatFloat(set.Pts1[i].Y),
			formatFloat(set.Pts2[i].X), formatFloat(set.Pts2[i].Y),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func isHeader(record []string) bool {
	for _, f := range record {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return true
		}
	}
	return false
}

func parseFloats(record []string) ([4]float64, error) {
	var out [4]float64
	for i, f := range record {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
