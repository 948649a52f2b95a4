package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/bonfito/billie/internal/store"
	"github.com/bonfito/billie/pkg/taste"
)

// OnAccept records positive feedback: one oracle training step on the
// transition that produced the track, then the avalanche context advance.
// Persistence and the playlist mutation happen after the learning step and
// never roll it back.
func (s *Session) OnAccept(trackID string) error {
	track, ok := s.deps.Catalog.Get(trackID)
	if !ok {
		return fmt.Errorf("accept: track %s not in catalog", trackID)
	}

	s.mu.Lock()
	current := s.context
	s.mu.Unlock()

	if err := s.deps.Oracle.TrainIncremental(current, track.Features); err != nil {
		return fmt.Errorf("accept %s: %w", trackID, err)
	}

	s.mu.Lock()
	s.acceptCount++
	s.context = taste.Avalanche(current, track.Features, s.acceptCount)
	s.shown[trackID] = true
	s.mu.Unlock()

	if s.deps.Store != nil {
		if err := s.deps.Store.AppendAccepted(store.AcceptedTrack{
			TrackID:  trackID,
			Features: track.Features,
		}); err != nil {
			// The in-memory session state is already advanced; losing one
			// history row is better than un-learning the step.
			s.deps.Logger.Warn("failed to persist accepted track",
				zap.String("trackId", trackID),
				zap.Error(err),
			)
		}
	}
	if s.deps.Playlist != nil {
		s.deps.Playlist.AddTrackAsync(trackID)
	}

	s.deps.Logger.Info("track accepted",
		zap.String("sessionId", s.ID.String()),
		zap.String("trackId", trackID),
		zap.Int("acceptCount", s.acceptCount),
	)
	return nil
}

// OnReject records negative feedback. The track id joins the durable
// blacklist and the session shown set; the oracle is not trained, since a
// dislike removes visibility but supplies no supervised target.
func (s *Session) OnReject(trackID string) error {
	if trackID == "" {
		return fmt.Errorf("reject: empty track id")
	}

	s.mu.Lock()
	s.blacklist[trackID] = true
	s.shown[trackID] = true
	s.mu.Unlock()

	if s.deps.Store != nil {
		if err := s.deps.Store.AddToBlacklist(trackID); err != nil {
			// In-session exclusion still holds for this run.
			return fmt.Errorf("reject %s: %w", trackID, err)
		}
	}

	s.deps.Logger.Info("track rejected",
		zap.String("sessionId", s.ID.String()),
		zap.String("trackId", trackID),
	)
	return nil
}
