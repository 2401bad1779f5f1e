package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/observability"
)

// SightingStore persists sightings and the latest score of matched suspects.
type SightingStore interface {
	CreateSighting(ctx context.Context, s *models.Sighting) error
	SetSuspectScore(ctx context.Context, id uuid.UUID, score float64) error
}

// SightingPublisher announces stored sightings.
type SightingPublisher interface {
	PublishSighting(ctx context.Context, res models.SightingResult) error
}

// Pipeline turns observations into sightings:
// track → match → store → publish.
type Pipeline struct {
	matcher   *Matcher
	trackers  *Trackers
	store     SightingStore
	publisher SightingPublisher
	trackCfg  config.TrackingConfig
	now       func() time.Time
}

func NewPipeline(matcher *Matcher, trackCfg config.TrackingConfig, store SightingStore, publisher SightingPublisher) *Pipeline {
	return &Pipeline{
		matcher:   matcher,
		trackers:  NewTrackers(trackCfg.MaxAge, trackCfg.MinHits),
		store:     store,
		publisher: publisher,
		trackCfg:  trackCfg,
		now:       time.Now,
	}
}

// ProcessObservation handles one observation. It returns nil, nil when the
// face belongs to a track that has fewer than MinHits observations or was
// matched within the re-match interval.
func (p *Pipeline) ProcessObservation(ctx context.Context, obs models.Observation) (*models.SightingResult, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	if obs.ID == uuid.Nil {
		obs.ID = uuid.New()
	}
	now := p.now()
	if obs.Timestamp.IsZero() {
		obs.Timestamp = now
	}

	observability.ObservationsProcessed.WithLabelValues(obs.DeviceID).Inc()

	tracker := p.trackers.Get(obs.DeviceID, now)
	updates := tracker.Update([]Detection{{BBox: obs.Face.BBox, Confidence: obs.Face.Confidence}})
	track := updates[0].Track

	if !tracker.ShouldRematch(track, p.trackCfg.ReMatchInterval, now) {
		return nil, nil
	}

	start := time.Now()
	best, err := p.matcher.Best(ctx, obs.Embedding)
	if err != nil {
		return nil, fmt.Errorf("match observation %s: %w", obs.ID, err)
	}
	observability.ScoringDuration.WithLabelValues("match").Observe(time.Since(start).Seconds())

	sighting := &models.Sighting{
		ObservationID: obs.ID,
		DeviceID:      obs.DeviceID,
		TrackID:       track.ID,
		Timestamp:     obs.Timestamp,
		BBox:          obs.Face.BBox,
		Embedding:     obs.Embedding,
		Latitude:      obs.Latitude,
		Longitude:     obs.Longitude,
		SnapshotKey:   obs.SnapshotKey,
	}

	var name string
	if best != nil {
		id := best.SuspectID
		sighting.MatchedSuspectID = &id
		sighting.MatchScore = best.Percent
		name = best.Name
		tracker.RecordMatch(track.ID, id.String(), name, best.Percent, now)
		observability.SuspectsMatched.WithLabelValues(obs.DeviceID).Inc()

		if err := p.store.SetSuspectScore(ctx, id, best.Percent); err != nil {
			slog.Warn("update suspect score", "error", err, "suspect", id)
		}
	} else {
		tracker.RecordMatch(track.ID, "", "", 0, now)
	}

	if err := p.store.CreateSighting(ctx, sighting); err != nil {
		return nil, fmt.Errorf("store sighting: %w", err)
	}

	result := models.SightingResult{
		SightingID:       sighting.ID,
		ObservationID:    obs.ID,
		DeviceID:         obs.DeviceID,
		TrackID:          track.ID,
		Timestamp:        obs.Timestamp,
		BBox:             obs.Face.BBox,
		MatchedSuspectID: sighting.MatchedSuspectID,
		MatchedName:      name,
		MatchScore:       sighting.MatchScore,
		Latitude:         obs.Latitude,
		Longitude:        obs.Longitude,
		SnapshotKey:      obs.SnapshotKey,
	}

	if p.publisher != nil {
		if err := p.publisher.PublishSighting(ctx, result); err != nil {
			slog.Error("publish sighting", "error", err, "track", track.ID)
		}
	}

	return &result, nil
}

// PruneIdle drops per-device tracking state for devices idle longer than
// the configured timeout.
func (p *Pipeline) PruneIdle() int {
	if p.trackCfg.IdleTimeout <= 0 {
		return 0
	}
	return p.trackers.Prune(p.now(), p.trackCfg.IdleTimeout)
}
