package models

import (
	"time"

	"github.com/google/uuid"
)

// Sighting is a stored observation, matched or not.
type Sighting struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	ObservationID    uuid.UUID  `json:"observation_id" db:"observation_id"`
	DeviceID         string     `json:"device_id" db:"device_id"`
	TrackID          string     `json:"track_id" db:"track_id"`
	Timestamp        time.Time  `json:"timestamp" db:"timestamp"`
	BBox             [4]float32 `json:"bbox" db:"bbox"`
	Embedding        []float32  `json:"-" db:"embedding"`
	MatchedSuspectID *uuid.UUID `json:"matched_suspect_id,omitempty" db:"matched_suspect_id"`
	MatchScore       float64    `json:"match_score,omitempty" db:"match_score"`
	Latitude         *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude        *float64   `json:"longitude,omitempty" db:"longitude"`
	SnapshotKey      string     `json:"snapshot_key,omitempty" db:"snapshot_key"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// Observation is the message published to NATS for worker processing: one
// face seen by one device, with the embedding computed on the device.
type Observation struct {
	ID          uuid.UUID `json:"id"`
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Face        FaceData  `json:"face"`
	Embedding   []float32 `json:"embedding"`
	SnapshotKey string    `json:"snapshot_key,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
}

// Validate checks the fields the worker relies on.
func (o *Observation) Validate() error {
	if o.DeviceID == "" {
		return NewError(KindDataConversion, "observation device_id required")
	}
	if len(o.Embedding) == 0 {
		return NewError(KindDataConversion, "observation embedding required")
	}
	return nil
}

// SightingResult is the output from a worker for one observation.
type SightingResult struct {
	SightingID       uuid.UUID  `json:"sighting_id"`
	ObservationID    uuid.UUID  `json:"observation_id"`
	DeviceID         string     `json:"device_id"`
	TrackID          string     `json:"track_id"`
	Timestamp        time.Time  `json:"timestamp"`
	BBox             [4]float32 `json:"bbox"`
	MatchedSuspectID *uuid.UUID `json:"matched_suspect_id,omitempty"`
	MatchedName      string     `json:"matched_name,omitempty"`
	MatchScore       float64    `json:"match_score,omitempty"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	SnapshotKey      string     `json:"snapshot_key,omitempty"`
}
