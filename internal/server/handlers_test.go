package server

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bonfito/billie/internal/catalog"
	"github.com/bonfito/billie/internal/session"
	"github.com/bonfito/billie/pkg/feature"
	"github.com/bonfito/billie/pkg/oracle"
	"github.com/bonfito/billie/pkg/rerank"
	"github.com/bonfito/billie/pkg/vindex"
)

func testServer(t *testing.T, n int) *Server {
	t.Helper()

	tracks := make([]catalog.Track, 0, n)
	for i := 0; i < n; i++ {
		var v feature.Vector
		for d := range v {
			v[d] = float64(i) / float64(n)
		}
		year := 2000 + i%25
		pop := 40.0 + float64(i%50)
		tracks = append(tracks, catalog.Track{
			ID:         fmt.Sprintf("t%03d", i),
			Name:       fmt.Sprintf("song %d", i),
			Artist:     fmt.Sprintf("artist %d", i),
			Year:       &year,
			Popularity: &pop,
			Features:   v,
		})
	}
	cat := catalog.New(tracks)

	idx, err := vindex.NewFlat(cat.IndexEntries())
	require.NoError(t, err)

	rankCfg := rerank.DefaultConfig()
	rankCfg.Shuffle = false
	o := oracle.New(oracle.DefaultConfig())

	sessCfg := session.DefaultConfig()
	sessCfg.NoiseEnabled = false
	sess, err := session.New(sessCfg, session.Deps{
		Catalog: cat,
		Index:   idx,
		Oracle:  o,
		Ranker:  rerank.New(rankCfg),
		Logger:  zap.NewNop(),
	}, nil)
	require.NoError(t, err)

	return New(Config{
		Addr:            ":0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, sess, cat, o, zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsCatalogAndOracle(t *testing.T) {
	srv := testServer(t, 40)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 40, resp.CatalogSize)
	assert.False(t, resp.OracleReady)
}

func TestSessionEndpointNamesEveryFeature(t *testing.T) {
	srv := testServer(t, 40)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Len(t, resp.Context, feature.Dim)
	for _, name := range feature.Names {
		assert.Contains(t, resp.Context, name)
	}
}

func TestRecommendReturnsRequestedCount(t *testing.T) {
	srv := testServer(t, 60)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/recommendations",
		recommendRequest{Count: 5})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp recommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 5)
	for _, it := range resp.Items {
		assert.NotEmpty(t, it.ID)
		assert.NotEmpty(t, it.Reason)
	}
}

func TestRecommendWithoutBodyUsesDefaults(t *testing.T) {
	srv := testServer(t, 60)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp recommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Items)
}

func TestAcceptThenRejectFlow(t *testing.T) {
	srv := testServer(t, 60)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/recommendations",
		recommendRequest{Count: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp recommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Items)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/feedback/accept",
		feedbackRequest{TrackID: resp.Items[0].ID})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/feedback/reject",
		feedbackRequest{TrackID: resp.Items[1].ID})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAcceptUnknownTrackIsNotFound(t *testing.T) {
	srv := testServer(t, 20)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/feedback/accept",
		feedbackRequest{TrackID: "no-such-track"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedbackRequiresTrackID(t *testing.T) {
	srv := testServer(t, 20)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/feedback/accept",
		feedbackRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoodOverrideChangesSessionContext(t *testing.T) {
	srv := testServer(t, 20)

	rec := doJSON(t, srv.Handler(), http.MethodPut, "/api/v1/mood",
		moodRequest{Overrides: map[string]float64{"energy": 0.95}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/session", nil)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 0.95, resp.Context["energy"], 1e-12)
}

func TestMoodRejectsUnknownFeature(t *testing.T) {
	srv := testServer(t, 20)

	rec := doJSON(t, srv.Handler(), http.MethodPut, "/api/v1/mood",
		moodRequest{Overrides: map[string]float64{"grooviness": 0.5}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
