package rerank

import (
	"regexp"
	"strings"
)

// Profile summarizes the listener's history for secondary scoring.
type Profile struct {
	TargetYear       float64
	HasTargetYear    bool
	AvgPopularity    float64
	HasAvgPopularity bool

	// favoredArtists holds normalized artist names.
	favoredArtists map[string]bool
}

// NewProfile builds a profile from history aggregates. Artists are matched
// on the full normalized string, never by substring, so "Artist" does not
// swallow "Artist Jr.".
func NewProfile(targetYear *float64, avgPopularity *float64, topArtists []string) Profile {
	p := Profile{favoredArtists: make(map[string]bool, len(topArtists))}
	if targetYear != nil {
		p.TargetYear = *targetYear
		p.HasTargetYear = true
	}
	if avgPopularity != nil {
		p.AvgPopularity = *avgPopularity
		p.HasAvgPopularity = true
	}
	for _, a := range topArtists {
		if key := normalizeArtist(a); key != "" {
			p.favoredArtists[key] = true
		}
	}
	return p
}

// IsFavoredArtist reports an exact match against the normalized top-artist
// set.
func (p Profile) IsFavoredArtist(artist string) bool {
	return p.favoredArtists[normalizeArtist(artist)]
}

var (
	parentheticalRE = regexp.MustCompile(`\s*[\(\[].*?[\)\]]`)
	dashSuffixRE    = regexp.MustCompile(`\s-\s.*$`)
	spaceRE         = regexp.MustCompile(`\s+`)
)

// normalizeTitle strips the decorations streaming catalogs attach to the
// same song: parenthetical notes and "- Remastered 2011" style suffixes.
func normalizeTitle(title string) string {
	t := strings.ToLower(title)
	t = parentheticalRE.ReplaceAllString(t, "")
	t = dashSuffixRE.ReplaceAllString(t, "")
	t = spaceRE.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

func normalizeArtist(artist string) string {
	return strings.TrimSpace(strings.ToLower(artist))
}

// SongKey is the deduplication key: two catalog rows with the same key are
// treated as the same song.
func SongKey(title, artist string) string {
	return normalizeTitle(title) + "\x00" + normalizeArtist(artist)
}
