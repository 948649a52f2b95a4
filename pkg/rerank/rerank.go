// Package rerank turns raw similarity candidates into the final
// recommendation list: exclusion, secondary scoring, deduplication,
// per-artist capping, wildcard injection and reason tagging.
package rerank

import (
	"math/rand"
	"sort"
)

// Candidate is a retrieval hit joined with its catalog metadata.
type Candidate struct {
	ID         string
	Title      string
	Artist     string
	Genre      string
	Year       int
	HasYear    bool
	Popularity float64
	HasPop     bool
	AudioScore float64
}

// Item is a final, scored recommendation.
type Item struct {
	Candidate
	YearScore     float64
	PopScore      float64
	FinalScore    float64
	FavoredArtist bool
	Wildcard      bool
	Reason        string
	MatchPercent  int
}

// Config is the ranking policy. The weights are tunable but stable within a
// release; defaults follow the canonical 0.6/0.2/0.2 scheme.
type Config struct {
	AudioWeight    float64 `mapstructure:"audio_weight"`
	YearWeight     float64 `mapstructure:"year_weight"`
	PopWeight      float64 `mapstructure:"pop_weight"`
	ArtistBonus    float64 `mapstructure:"artist_bonus"`
	ArtistCap      int     `mapstructure:"artist_cap"`
	WildcardSlots  int     `mapstructure:"wildcard_slots"`
	WildcardMinSim float64 `mapstructure:"wildcard_min_sim"`
	WildcardMaxSim float64 `mapstructure:"wildcard_max_sim"`
	Shuffle        bool    `mapstructure:"shuffle"`
	Seed           int64   `mapstructure:"seed"`
}

// DefaultConfig returns the canonical ranking policy.
func DefaultConfig() Config {
	return Config{
		AudioWeight:    0.6,
		YearWeight:     0.2,
		PopWeight:      0.2,
		ArtistBonus:    1.25,
		ArtistCap:      2,
		WildcardSlots:  5,
		WildcardMinSim: 0.3,
		WildcardMaxSim: 0.7,
		Shuffle:        true,
		Seed:           1,
	}
}

// Engine applies the ranking policy. Safe for concurrent use apart from the
// shuffle/sample RNG, which each session should own exclusively.
type Engine struct {
	cfg Config
	rng *rand.Rand
}

// New creates a ranking engine.
func New(cfg Config) *Engine {
	if cfg.AudioWeight+cfg.YearWeight+cfg.PopWeight == 0 {
		cfg = DefaultConfig()
	}
	if cfg.ArtistCap <= 0 {
		cfg.ArtistCap = 2
	}
	// A bonus of exactly 1 disables the boost; only an unset value falls
	// back to the default.
	if cfg.ArtistBonus <= 0 {
		cfg.ArtistBonus = 1.25
	}
	return &Engine{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Rank runs the full pipeline and returns at most k items. An empty return
// with a non-empty input means every candidate was excluded; the caller
// decides whether to widen the search.
func (e *Engine) Rank(candidates []Candidate, profile Profile, excluded map[string]bool, k int) []Item {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	// 1. Exclusion filter: blacklist union already-shown.
	survivors := make([]Item, 0, len(candidates))
	for _, c := range candidates {
		if excluded[c.ID] {
			continue
		}
		survivors = append(survivors, e.score(c, profile))
	}
	if len(survivors) == 0 {
		return nil
	}

	// 2. Deduplicate on the normalized (title, artist) key, keeping the
	// highest-scoring instance of each song.
	survivors = dedupe(survivors)

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].FinalScore != survivors[j].FinalScore {
			return survivors[i].FinalScore > survivors[j].FinalScore
		}
		return survivors[i].ID < survivors[j].ID
	})

	// 3. Fill the ranked slots under the per-artist cap, reserving a slice
	// for wildcards when enough candidates exist.
	wildcardSlots := e.cfg.WildcardSlots
	if wildcardSlots >= k {
		wildcardSlots = k / 2
	}
	rankedSlots := k - wildcardSlots

	picked := make([]Item, 0, k)
	pickedIDs := make(map[string]bool)
	artistCount := make(map[string]int)

	takeRanked := func(limit int) {
		for _, it := range survivors {
			if len(picked) >= limit {
				return
			}
			key := normalizeArtist(it.Artist)
			if pickedIDs[it.ID] || artistCount[key] >= e.cfg.ArtistCap {
				continue
			}
			picked = append(picked, it)
			pickedIDs[it.ID] = true
			artistCount[key]++
		}
	}
	takeRanked(rankedSlots)

	// 4. Wildcard injection: mid-band similarity with above-average
	// popularity, sampled rather than top-ranked, to keep the loop from
	// collapsing into a narrow taste basin.
	e.injectWildcards(&picked, pickedIDs, artistCount, survivors, profile, k)

	// Backfill from the ranked list if the wildcard pool came up short.
	takeRanked(k)

	// 5. Reason tagging, then an optional shuffle so wildcards are not
	// always trailing. Selection order above is the contract; display
	// order is not.
	for i := range picked {
		picked[i].Reason = e.reason(picked[i])
		picked[i].MatchPercent = int(picked[i].AudioScore * 100)
	}
	if e.cfg.Shuffle {
		e.rng.Shuffle(len(picked), func(i, j int) {
			picked[i], picked[j] = picked[j], picked[i]
		})
	}
	return picked
}

// score computes the secondary scores and the composite.
func (e *Engine) score(c Candidate, profile Profile) Item {
	it := Item{Candidate: c, YearScore: 0.5, PopScore: 0.5}

	if c.HasYear && profile.HasTargetYear {
		it.YearScore = 1.0 / (1.0 + 0.1*abs(float64(c.Year)-profile.TargetYear))
	}
	if c.HasPop && profile.HasAvgPopularity {
		it.PopScore = 1.0 / (1.0 + 0.05*abs(c.Popularity-profile.AvgPopularity))
	}
	it.FavoredArtist = profile.IsFavoredArtist(c.Artist)

	it.FinalScore = e.cfg.AudioWeight*c.AudioScore +
		e.cfg.YearWeight*it.YearScore +
		e.cfg.PopWeight*it.PopScore
	if it.FavoredArtist {
		it.FinalScore *= e.cfg.ArtistBonus
	}
	return it
}

func (e *Engine) injectWildcards(picked *[]Item, pickedIDs map[string]bool, artistCount map[string]int, survivors []Item, profile Profile, k int) {
	if len(*picked) >= k {
		return
	}

	avgPop := profile.AvgPopularity
	if !profile.HasAvgPopularity {
		avgPop = meanPopularity(survivors)
	}

	var pool []Item
	for _, it := range survivors {
		if pickedIDs[it.ID] {
			continue
		}
		if it.AudioScore < e.cfg.WildcardMinSim || it.AudioScore > e.cfg.WildcardMaxSim {
			continue
		}
		if !it.HasPop || it.Popularity <= avgPop {
			continue
		}
		pool = append(pool, it)
	}

	e.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	for _, it := range pool {
		if len(*picked) >= k {
			return
		}
		key := normalizeArtist(it.Artist)
		if artistCount[key] >= e.cfg.ArtistCap {
			continue
		}
		it.Wildcard = true
		*picked = append(*picked, it)
		pickedIDs[it.ID] = true
		artistCount[key]++
	}
}

// reason derives the user-facing explanation from the dominant signal.
func (e *Engine) reason(it Item) string {
	switch {
	case it.Wildcard:
		return "wildcard: a popular detour from your usual sound"
	case it.FavoredArtist:
		return "more from " + it.Artist + ", one of your favorite artists"
	case it.AudioScore >= 0.9:
		return "a near-perfect match for your current mood"
	case it.PopScore >= 0.8:
		return "popular with listeners who share your taste"
	default:
		return "similar to what you have been listening to"
	}
}

func dedupe(items []Item) []Item {
	best := make(map[string]Item, len(items))
	for _, it := range items {
		key := SongKey(it.Title, it.Artist)
		if prev, ok := best[key]; !ok || it.FinalScore > prev.FinalScore {
			best[key] = it
		}
	}
	out := make([]Item, 0, len(best))
	for _, it := range best {
		out = append(out, it)
	}
	return out
}

func meanPopularity(items []Item) float64 {
	var sum float64
	var n int
	for _, it := range items {
		if it.HasPop {
			sum += it.Popularity
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
