package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testHeader = "id,name,artist,year,popularity,genre," +
	"energy,valence,danceability,tempo,loudness,speechiness,acousticness,instrumentalness,liveness\n"

func writeCatalog(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracks.csv")
	require.NoError(t, os.WriteFile(path, []byte(testHeader+rows), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCatalog(t,
		"t1,Bad Guy,Billie Eilish,2019,95,pop,0.43,0.56,0.70,0.54,0.81,0.38,0.33,0.13,0.10\n"+
			"t2,Lovely,Billie Eilish,2018,90,pop,0.30,0.12,0.35,0.45,0.72,0.03,0.93,0.00,0.10\n")

	cat, stats, err := LoadCSV(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 2, cat.Size())

	track, ok := cat.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "Bad Guy", track.Name)
	require.NotNil(t, track.Year)
	assert.Equal(t, 2019, *track.Year)
	require.NotNil(t, track.Popularity)
	assert.Equal(t, 95.0, *track.Popularity)
	assert.InDelta(t, 0.43, track.Features[0], 1e-9)
}

func TestLoadCSVSkipsBadRowsAndContinues(t *testing.T) {
	path := writeCatalog(t,
		"t1,Good,Artist,2019,95,pop,0.4,0.5,0.7,0.5,0.8,0.3,0.3,0.1,0.1\n"+
			// non-numeric feature
			"t2,Broken,Artist,2019,95,pop,oops,0.5,0.7,0.5,0.8,0.3,0.3,0.1,0.1\n"+
			// NaN feature
			"t3,Poisoned,Artist,2019,95,pop,NaN,0.5,0.7,0.5,0.8,0.3,0.3,0.1,0.1\n"+
			// missing id
			",NoID,Artist,2019,95,pop,0.4,0.5,0.7,0.5,0.8,0.3,0.3,0.1,0.1\n"+
			"t5,Also Good,Artist,,,,0.4,0.5,0.7,0.5,0.8,0.3,0.3,0.1,0.1\n")

	cat, stats, err := LoadCSV(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, 3, stats.Skipped)

	// Optional metadata may be absent.
	track, ok := cat.Get("t5")
	require.True(t, ok)
	assert.Nil(t, track.Year)
	assert.Nil(t, track.Popularity)
}

func TestLoadCSVMissingFileIsFatal(t *testing.T) {
	_, _, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), zap.NewNop())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeMissingCatalog, loadErr.Code)
}

func TestLoadCSVMissingFeatureColumnIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name,artist,energy\nt1,A,B,0.5\n"), 0o644))

	_, _, err := LoadCSV(path, zap.NewNop())
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeBadHeader, loadErr.Code)
}

func TestCandidateProjection(t *testing.T) {
	path := writeCatalog(t,
		"t1,Bad Guy,Billie Eilish,2019,95,pop,0.4,0.5,0.7,0.5,0.8,0.3,0.3,0.1,0.1\n")
	cat, _, err := LoadCSV(path, zap.NewNop())
	require.NoError(t, err)

	entries := cat.IndexEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].ID)
}
