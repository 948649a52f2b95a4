package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bonfito/billie/pkg/feature"
)

// LoadStats counts the outcome of a catalog load. Rows that fail the
// data-quality contract are skipped and counted, never fatal.
type LoadStats struct {
	Loaded  int
	Skipped int
}

// LoadError is a structural failure: missing file or unusable header.
// These are fatal at startup; no partial catalog is served.
type LoadError struct {
	Path    string
	Code    string
	Message string
	Cause   error
}

// Structural failure codes.
const (
	ErrCodeMissingCatalog = "MISSING_CATALOG"
	ErrCodeBadHeader      = "BAD_HEADER"
	ErrCodeUnreadable     = "UNREADABLE"
)

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// LoadCSV reads a catalog snapshot with columns
// id,name,artist,year,popularity,genre plus the nine normalized feature
// columns in any order. The header names the columns; the fixed feature
// ordering is restored from it.
func LoadCSV(path string, logger *zap.Logger) (*Catalog, LoadStats, error) {
	var stats LoadStats

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, &LoadError{
			Path: path, Code: ErrCodeMissingCatalog,
			Message: fmt.Sprintf("catalog file %s not readable", path), Cause: err,
		}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, stats, &LoadError{
			Path: path, Code: ErrCodeBadHeader,
			Message: "catalog header missing", Cause: err,
		}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"id", "name", "artist"} {
		if _, ok := cols[required]; !ok {
			return nil, stats, &LoadError{
				Path: path, Code: ErrCodeBadHeader,
				Message: fmt.Sprintf("catalog header lacks %q column", required),
			}
		}
	}
	var featureCols [feature.Dim]int
	for i, name := range feature.Names {
		idx, ok := cols[name]
		if !ok {
			return nil, stats, &LoadError{
				Path: path, Code: ErrCodeBadHeader,
				Message: fmt.Sprintf("catalog header lacks feature column %q", name),
			}
		}
		featureCols[i] = idx
	}

	var tracks []Track
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			stats.Skipped++
			logger.Debug("skipping malformed catalog row", zap.Int("line", line), zap.Error(err))
			continue
		}

		t, err := parseTrack(record, cols, featureCols)
		if err != nil {
			stats.Skipped++
			logger.Debug("skipping catalog row", zap.Int("line", line), zap.Error(err))
			continue
		}
		tracks = append(tracks, t)
		stats.Loaded++
	}

	logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("tracks", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)
	return New(tracks), stats, nil
}

func parseTrack(record []string, cols map[string]int, featureCols [feature.Dim]int) (Track, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	t := Track{
		ID:     get("id"),
		Name:   get("name"),
		Artist: get("artist"),
		Genre:  get("genre"),
	}
	if t.ID == "" {
		return t, fmt.Errorf("row has no id")
	}

	raw := make([]float64, feature.Dim)
	for i, col := range featureCols {
		if col >= len(record) {
			return t, fmt.Errorf("row too short for feature %q", feature.Names[i])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return t, fmt.Errorf("feature %q: %w", feature.Names[i], err)
		}
		raw[i] = v
	}
	vec, err := feature.FromSlice(raw)
	if err != nil {
		return t, err
	}
	t.Features = vec

	if s := get("year"); s != "" {
		if year, err := strconv.Atoi(s); err == nil {
			t.Year = &year
		}
	}
	if s := get("popularity"); s != "" {
		if pop, err := strconv.ParseFloat(s, 64); err == nil {
			t.Popularity = &pop
		}
	}
	return t, nil
}
