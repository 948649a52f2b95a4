// Package history models the listening history supplied by the history
// collaborator: recent plays and long-term top tracks, each tagged with a
// source that maps to an aggregation weight.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/bonfito/billie/pkg/feature"
	"github.com/bonfito/billie/pkg/rerank"
	"github.com/bonfito/billie/pkg/taste"
)

// Source tags attached by the ingestion side.
const (
	SourceRecent   = "recent"
	SourceTopShort = "top_short"
	SourceTopLong  = "top_long"
	SourceFallback = "fallback_mean"
)

// Entry is one previously played or top-ranked track. Read-only to the core.
type Entry struct {
	TrackID    string
	Name       string
	Artist     string
	Genre      string
	Source     string
	PlayedAt   time.Time
	Weight     float64
	Year       *int
	Popularity *float64
	Features   feature.Vector
}

// SourceWeight maps a source tag to its aggregation confidence. Very recent
// plays speak louder than long-term top tracks; rows backfilled with the
// catalog mean barely count.
func SourceWeight(source string) float64 {
	switch source {
	case SourceRecent:
		return 2.0
	case SourceTopShort:
		return 1.5
	case SourceTopLong:
		return 1.0
	case SourceFallback:
		return 0.25
	default:
		return 1.0
	}
}

// Vectors returns the feature vectors in history order, oldest first.
func Vectors(entries []Entry) []feature.Vector {
	out := make([]feature.Vector, len(entries))
	for i, e := range entries {
		out[i] = e.Features
	}
	return out
}

// Weighted converts entries to aggregation pairs, deriving missing weights
// from the source tag.
func Weighted(entries []Entry) []taste.Weighted {
	out := make([]taste.Weighted, len(entries))
	for i, e := range entries {
		w := e.Weight
		if w <= 0 {
			w = SourceWeight(e.Source)
		}
		out[i] = taste.Weighted{Vector: e.Features, Weight: w}
	}
	return out
}

// SortChronological orders entries oldest to newest. Entries without a
// timestamp sink to the front so replay training sees them before the
// sequential tail.
func SortChronological(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PlayedAt.Before(entries[j].PlayedAt)
	})
}

// topArtistCount bounds how many artists qualify for the favored bonus.
const topArtistCount = 3

// Profile derives the re-ranking profile from history: mean year, mean
// popularity and the most frequent artists.
func Profile(entries []Entry) rerank.Profile {
	if len(entries) == 0 {
		return rerank.NewProfile(nil, nil, nil)
	}

	var yearSum float64
	var yearN int
	var popSum float64
	var popN int
	artistCounts := make(map[string]int)

	for _, e := range entries {
		if e.Year != nil {
			yearSum += float64(*e.Year)
			yearN++
		}
		if e.Popularity != nil {
			popSum += *e.Popularity
			popN++
		}
		if a := strings.TrimSpace(e.Artist); a != "" {
			artistCounts[a]++
		}
	}

	var targetYear, avgPop *float64
	if yearN > 0 {
		y := yearSum / float64(yearN)
		targetYear = &y
	}
	if popN > 0 {
		p := popSum / float64(popN)
		avgPop = &p
	}

	return rerank.NewProfile(targetYear, avgPop, topArtists(artistCounts))
}

// TopGenre returns the most frequent genre tag, or "" when unknown.
func TopGenre(entries []Entry) string {
	counts := make(map[string]int)
	for _, e := range entries {
		if g := strings.TrimSpace(e.Genre); g != "" {
			counts[g]++
		}
	}
	best := ""
	bestN := 0
	for g, n := range counts {
		if n > bestN || (n == bestN && g < best) {
			best, bestN = g, n
		}
	}
	return best
}

func topArtists(counts map[string]int) []string {
	type ac struct {
		artist string
		count  int
	}
	ranked := make([]ac, 0, len(counts))
	for a, n := range counts {
		ranked = append(ranked, ac{a, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].artist < ranked[j].artist
	})
	if len(ranked) > topArtistCount {
		ranked = ranked[:topArtistCount]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.artist
	}
	return out
}
