package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bonfito/billie/pkg/feature"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBlacklistRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddToBlacklist("t1"))
	require.NoError(t, s.AddToBlacklist("t2"))
	require.NoError(t, s.AddToBlacklist("t1")) // idempotent

	bl, err := s.Blacklist()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"t1": true, "t2": true}, bl)

	assert.Error(t, s.AddToBlacklist(""))
}

func TestOracleStateRoundTrip(t *testing.T) {
	s := openTestStore(t)

	// Absent state loads as nil, not an error.
	blob, err := s.LoadOracleState()
	require.NoError(t, err)
	assert.Nil(t, blob)

	require.NoError(t, s.SaveOracleState([]byte(`{"version":1}`)))
	blob, err = s.LoadOracleState()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version":1}`), blob)

	// Save replaces wholesale.
	require.NoError(t, s.SaveOracleState([]byte(`{"version":2}`)))
	blob, err = s.LoadOracleState()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version":2}`), blob)
}

func TestAcceptedLogIsChronological(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var v feature.Vector
	require.NoError(t, s.AppendAccepted(AcceptedTrack{TrackID: "b", Features: v, AcceptedAt: base.Add(time.Minute)}))
	require.NoError(t, s.AppendAccepted(AcceptedTrack{TrackID: "a", Features: v, AcceptedAt: base}))
	require.NoError(t, s.AppendAccepted(AcceptedTrack{TrackID: "c", Features: v, AcceptedAt: base.Add(2 * time.Minute)}))

	log, err := s.Accepted()
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "a", log[0].TrackID)
	assert.Equal(t, "b", log[1].TrackID)
	assert.Equal(t, "c", log[2].TrackID)
}

func TestAppendAcceptedDefaultsTimestamp(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AppendAccepted(AcceptedTrack{TrackID: "x"}))

	log, err := s.Accepted()
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.False(t, log[0].AcceptedAt.IsZero())
}
