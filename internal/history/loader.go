package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bonfito/billie/pkg/feature"
)

// LoadCSV reads a history export with columns
// id,name,artist,played_at,source plus the nine feature columns, and
// optional year/popularity/genre/weight. A missing file is a cold start,
// not an error: the core proceeds from the neutral default context.
func LoadCSV(path string, logger *zap.Logger) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no history file, starting cold", zap.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("history header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	var featureCols [feature.Dim]int
	for i, name := range feature.Names {
		idx, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("history header lacks feature column %q", name)
		}
		featureCols[i] = idx
	}

	var entries []Entry
	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		e, err := parseEntry(record, cols, featureCols)
		if err != nil {
			skipped++
			continue
		}
		entries = append(entries, e)
	}

	logger.Info("history loaded",
		zap.String("path", path),
		zap.Int("entries", len(entries)),
		zap.Int("skipped", skipped),
	)
	return entries, nil
}

func parseEntry(record []string, cols map[string]int, featureCols [feature.Dim]int) (Entry, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	e := Entry{
		TrackID: get("id"),
		Name:    get("name"),
		Artist:  get("artist"),
		Genre:   get("genre"),
		Source:  get("source"),
	}
	if e.TrackID == "" {
		return e, fmt.Errorf("history row has no id")
	}

	raw := make([]float64, feature.Dim)
	for i, col := range featureCols {
		if col >= len(record) {
			return e, fmt.Errorf("row too short for feature %q", feature.Names[i])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return e, fmt.Errorf("feature %q: %w", feature.Names[i], err)
		}
		raw[i] = v
	}
	vec, err := feature.FromSlice(raw)
	if err != nil {
		return e, err
	}
	e.Features = vec

	if s := get("played_at"); s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			e.PlayedAt = ts
		}
	}
	if s := get("weight"); s != "" {
		if w, err := strconv.ParseFloat(s, 64); err == nil {
			e.Weight = w
		}
	}
	if s := get("year"); s != "" {
		if year, err := strconv.Atoi(s); err == nil {
			e.Year = &year
		}
	}
	if s := get("popularity"); s != "" {
		if pop, err := strconv.ParseFloat(s, 64); err == nil {
			e.Popularity = &pop
		}
	}
	return e, nil
}
