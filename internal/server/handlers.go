package server

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/bonfito/billie/internal/session"
	"github.com/bonfito/billie/pkg/feature"
	"github.com/bonfito/billie/pkg/rerank"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status       string `json:"status"`
	CatalogSize  int    `json:"catalog_size"`
	OracleReady  bool   `json:"oracle_trained"`
	TrainedSteps int    `json:"trained_steps"`
}

type sessionResponse struct {
	SessionID string             `json:"session_id"`
	Context   map[string]float64 `json:"context"`
	TopGenre  string             `json:"top_genre,omitempty"`
}

type recommendRequest struct {
	Count int `json:"count"`
}

type recommendResponse struct {
	Items []itemResponse `json:"items"`
}

type itemResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	Genre        string  `json:"genre,omitempty"`
	Year         *int    `json:"year,omitempty"`
	MatchPercent int     `json:"match_percent"`
	Score        float64 `json:"score"`
	Wildcard     bool    `json:"wildcard"`
	Reason       string  `json:"reason"`
}

type feedbackRequest struct {
	TrackID string `json:"track_id"`
}

type moodRequest struct {
	Overrides map[string]float64 `json:"overrides"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		CatalogSize:  s.catalog.Size(),
		OracleReady:  s.oracle.Trained(),
		TrainedSteps: len(s.oracle.LossHistory()),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	context := s.session.Context()
	named := make(map[string]float64, feature.Dim)
	for i, name := range feature.Names {
		named[name] = context[i]
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: s.session.ID.String(),
		Context:   named,
		TopGenre:  s.session.TopGenre(),
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	items, err := s.session.Recommend(r.Context(), req.Count)
	if errors.Is(err, session.ErrNoSuggestions) {
		// An exhausted catalog is an empty list, not a server failure.
		writeJSON(w, http.StatusOK, recommendResponse{Items: []itemResponse{}})
		return
	}
	if err != nil {
		s.logger.Error("recommendation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}

	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = toItemResponse(it)
	}
	writeJSON(w, http.StatusOK, recommendResponse{Items: out})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	trackID, ok := decodeFeedback(w, r)
	if !ok {
		return
	}
	if err := s.session.OnAccept(trackID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	trackID, ok := decodeFeedback(w, r)
	if !ok {
		return
	}
	if err := s.session.OnReject(trackID); err != nil {
		s.logger.Error("reject failed", zap.String("trackId", trackID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record rejection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Overrides) == 0 {
		writeError(w, http.StatusBadRequest, "no overrides given")
		return
	}
	if err := s.session.SetMood(req.Overrides); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeFeedback(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return "", false
	}
	if req.TrackID == "" {
		writeError(w, http.StatusBadRequest, "track_id is required")
		return "", false
	}
	return req.TrackID, true
}

func toItemResponse(it rerank.Item) itemResponse {
	resp := itemResponse{
		ID:           it.ID,
		Title:        it.Title,
		Artist:       it.Artist,
		Genre:        it.Genre,
		MatchPercent: it.MatchPercent,
		Score:        it.FinalScore,
		Wildcard:     it.Wildcard,
		Reason:       it.Reason,
	}
	if it.HasYear {
		year := it.Year
		resp.Year = &year
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
