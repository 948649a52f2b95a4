package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noShuffleConfig() Config {
	cfg := DefaultConfig()
	cfg.Shuffle = false
	return cfg
}

func cand(id, title, artist string, audio float64) Candidate {
	return Candidate{ID: id, Title: title, Artist: artist, AudioScore: audio}
}

func floatPtr(f float64) *float64 { return &f }

func TestRankRespectsK(t *testing.T) {
	e := New(noShuffleConfig())
	var candidates []Candidate
	for i := 0; i < 40; i++ {
		candidates = append(candidates, cand(id(i), "song "+id(i), "artist "+id(i), 0.9))
	}

	out := e.Rank(candidates, NewProfile(nil, nil, nil), nil, 10)
	assert.LessOrEqual(t, len(out), 10)
	assert.NotEmpty(t, out)
}

func TestRankDropsExcluded(t *testing.T) {
	e := New(noShuffleConfig())
	candidates := []Candidate{
		cand("keep", "Song A", "Artist A", 0.9),
		cand("blacklisted", "Song B", "Artist B", 0.95),
		cand("shown", "Song C", "Artist C", 0.92),
	}
	excluded := map[string]bool{"blacklisted": true, "shown": true}

	out := e.Rank(candidates, NewProfile(nil, nil, nil), excluded, 10)
	require.Len(t, out, 1)
	assert.Equal(t, "keep", out[0].ID)
}

func TestRankAllExcludedReturnsEmpty(t *testing.T) {
	e := New(noShuffleConfig())
	candidates := []Candidate{cand("a", "A", "X", 0.9)}
	out := e.Rank(candidates, NewProfile(nil, nil, nil), map[string]bool{"a": true}, 5)
	assert.Empty(t, out)
}

func TestRankDeduplicatesRemasters(t *testing.T) {
	e := New(noShuffleConfig())
	candidates := []Candidate{
		cand("orig", "Bad Guy", "Billie Eilish", 0.8),
		cand("remaster", "Bad Guy - Remastered 2021", "Billie Eilish", 0.9),
		cand("live", "Bad Guy (Live)", "billie eilish", 0.7),
	}

	out := e.Rank(candidates, NewProfile(nil, nil, nil), nil, 10)
	require.Len(t, out, 1)
	assert.Equal(t, "remaster", out[0].ID, "highest-scoring duplicate wins")
}

func TestRankCapsArtists(t *testing.T) {
	e := New(noShuffleConfig())
	var candidates []Candidate
	for i := 0; i < 8; i++ {
		candidates = append(candidates, cand(id(i), "song "+id(i), "Same Artist", 0.9))
	}
	candidates = append(candidates, cand("other", "other song", "Other Artist", 0.5))

	out := e.Rank(candidates, NewProfile(nil, nil, nil), nil, 10)
	perArtist := map[string]int{}
	for _, it := range out {
		perArtist[it.Artist]++
	}
	assert.LessOrEqual(t, perArtist["Same Artist"], 2)
}

func TestFavoredArtistBonusAndReason(t *testing.T) {
	cfg := noShuffleConfig()
	cfg.WildcardSlots = 0
	e := New(cfg)

	profile := NewProfile(nil, nil, []string{"Billie Eilish"})
	candidates := []Candidate{
		cand("fav", "Ocean Eyes", "Billie Eilish", 0.7),
		cand("plain", "Some Song", "Someone Else", 0.7),
	}

	out := e.Rank(candidates, profile, nil, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "fav", out[0].ID, "bonus should outrank an equal audio score")
	assert.True(t, out[0].FavoredArtist)
	assert.Contains(t, out[0].Reason, "Billie Eilish")
}

func TestUnitArtistBonusDisablesBoost(t *testing.T) {
	cfg := noShuffleConfig()
	cfg.WildcardSlots = 0
	cfg.ArtistBonus = 1.0
	e := New(cfg)

	profile := NewProfile(nil, nil, []string{"Billie Eilish"})
	candidates := []Candidate{
		cand("fav", "Ocean Eyes", "Billie Eilish", 0.7),
		cand("plain", "Some Song", "Someone Else", 0.8),
	}

	out := e.Rank(candidates, profile, nil, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "plain", out[0].ID, "a neutral bonus must not reorder by artist")
	assert.True(t, out[1].FavoredArtist)
	// 0.6*0.7 audio + neutral 0.5 year and pop scores, no multiplier.
	assert.InDelta(t, 0.62, out[1].FinalScore, 1e-12)
}

func TestFavoredArtistIsExactMatch(t *testing.T) {
	profile := NewProfile(nil, nil, []string{"Artist"})
	assert.True(t, profile.IsFavoredArtist("artist"))
	assert.False(t, profile.IsFavoredArtist("Artist Jr."))
}

func TestSecondaryScores(t *testing.T) {
	e := New(noShuffleConfig())
	profile := NewProfile(floatPtr(2000), floatPtr(60), nil)

	exact := Candidate{ID: "a", Title: "A", Artist: "X", AudioScore: 0.5,
		Year: 2000, HasYear: true, Popularity: 60, HasPop: true}
	far := Candidate{ID: "b", Title: "B", Artist: "Y", AudioScore: 0.5,
		Year: 1970, HasYear: true, Popularity: 5, HasPop: true}

	a := e.score(exact, profile)
	b := e.score(far, profile)
	assert.Equal(t, 1.0, a.YearScore)
	assert.Equal(t, 1.0, a.PopScore)
	assert.Greater(t, a.FinalScore, b.FinalScore)
}

func TestMissingMetadataUsesNeutralScores(t *testing.T) {
	e := New(noShuffleConfig())
	it := e.score(cand("a", "A", "X", 0.5), NewProfile(floatPtr(2000), floatPtr(50), nil))
	assert.Equal(t, 0.5, it.YearScore)
	assert.Equal(t, 0.5, it.PopScore)
}

func TestWildcardInjection(t *testing.T) {
	cfg := noShuffleConfig()
	cfg.WildcardSlots = 3
	e := New(cfg)

	var candidates []Candidate
	// Strong matches fill the ranked slots.
	for i := 0; i < 12; i++ {
		candidates = append(candidates, cand("top"+id(i), "top "+id(i), "artist "+id(i), 0.95))
	}
	// Mid-band candidates with spread popularity form the wildcard pool;
	// only the above-average half qualifies.
	for i := 0; i < 12; i++ {
		c := cand("wild"+id(i), "wild "+id(i), "wild artist "+id(i), 0.5)
		c.Popularity = 60 + float64(i)*3
		c.HasPop = true
		candidates = append(candidates, c)
	}

	out := e.Rank(candidates, NewProfile(nil, nil, nil), nil, 10)
	require.Len(t, out, 10)

	var wildcards int
	for _, it := range out {
		if it.Wildcard {
			wildcards++
			assert.Contains(t, it.Reason, "wildcard")
			assert.GreaterOrEqual(t, it.AudioScore, 0.3)
			assert.LessOrEqual(t, it.AudioScore, 0.7)
		}
	}
	assert.Equal(t, 3, wildcards)
}

func TestMatchPercent(t *testing.T) {
	e := New(noShuffleConfig())
	out := e.Rank([]Candidate{cand("a", "A", "X", 0.87)}, NewProfile(nil, nil, nil), nil, 1)
	require.Len(t, out, 1)
	assert.Equal(t, 87, out[0].MatchPercent)
}

func TestSongKeyNormalization(t *testing.T) {
	tests := []struct {
		a, b  [2]string
		equal bool
	}{
		{[2]string{"Bad Guy", "Billie Eilish"}, [2]string{"bad guy - Remaster", "BILLIE EILISH"}, true},
		{[2]string{"Bad Guy (Live)", "Billie Eilish"}, [2]string{"Bad Guy", "Billie Eilish"}, true},
		{[2]string{"Bad Guy", "Billie Eilish"}, [2]string{"Bad Guy", "Someone"}, false},
		{[2]string{"Bad Guy", "Billie Eilish"}, [2]string{"Good Guy", "Billie Eilish"}, false},
	}
	for _, tt := range tests {
		got := SongKey(tt.a[0], tt.a[1]) == SongKey(tt.b[0], tt.b[1])
		assert.Equal(t, tt.equal, got, "%v vs %v", tt.a, tt.b)
	}
}

func id(i int) string {
	return string(rune('a'+i%26)) + string(rune('a'+(i/26)%26))
}
