// Package catalog loads and holds the immutable track catalog supplied by
// the ingestion collaborator.
package catalog

import (
	"github.com/bonfito/billie/pkg/feature"
	"github.com/bonfito/billie/pkg/rerank"
	"github.com/bonfito/billie/pkg/vindex"
)

// Track is an immutable catalog record. Year, popularity and genre come from
// the upstream scrape and may be absent.
type Track struct {
	ID         string
	Name       string
	Artist     string
	Genre      string
	Year       *int
	Popularity *float64
	Features   feature.Vector
}

// Catalog is a read-only arena of tracks with id lookup. Built once, then
// shared across sessions without synchronization.
type Catalog struct {
	tracks []Track
	byID   map[string]int
}

// New builds a catalog from loaded tracks. Later duplicates of an id win,
// matching upstream snapshot semantics.
func New(tracks []Track) *Catalog {
	c := &Catalog{
		tracks: tracks,
		byID:   make(map[string]int, len(tracks)),
	}
	for i, t := range tracks {
		c.byID[t.ID] = i
	}
	return c
}

// Size returns the number of tracks.
func (c *Catalog) Size() int {
	return len(c.tracks)
}

// Get returns the track with the given id.
func (c *Catalog) Get(id string) (Track, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Track{}, false
	}
	return c.tracks[i], true
}

// Tracks returns the backing slice. Callers must treat it as read-only.
func (c *Catalog) Tracks() []Track {
	return c.tracks
}

// IndexEntries projects the catalog into vector index entries.
func (c *Catalog) IndexEntries() []vindex.Entry {
	entries := make([]vindex.Entry, len(c.tracks))
	for i, t := range c.tracks {
		entries[i] = vindex.Entry{ID: t.ID, Vector: t.Features}
	}
	return entries
}

// Candidate joins a search hit with its catalog metadata for re-ranking.
// Hits whose id is no longer in the catalog are dropped by the caller.
func (c *Catalog) Candidate(hit vindex.Result) (rerank.Candidate, bool) {
	t, ok := c.Get(hit.ID)
	if !ok {
		return rerank.Candidate{}, false
	}
	cand := rerank.Candidate{
		ID:         t.ID,
		Title:      t.Name,
		Artist:     t.Artist,
		Genre:      t.Genre,
		AudioScore: hit.Similarity,
	}
	if t.Year != nil {
		cand.Year = *t.Year
		cand.HasYear = true
	}
	if t.Popularity != nil {
		cand.Popularity = *t.Popularity
		cand.HasPop = true
	}
	return cand, true
}
