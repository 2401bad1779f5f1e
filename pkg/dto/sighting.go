package dto

import "github.com/google/uuid"

type SightingResponse struct {
	ID               uuid.UUID  `json:"id"`
	ObservationID    uuid.UUID  `json:"observation_id"`
	DeviceID         string     `json:"device_id"`
	TrackID          string     `json:"track_id"`
	Timestamp        string     `json:"timestamp"`
	BBox             [4]float32 `json:"bbox"`
	MatchedSuspectID *uuid.UUID `json:"matched_suspect_id,omitempty"`
	MatchScore       float64    `json:"match_score,omitempty"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	SnapshotURL      string     `json:"snapshot_url,omitempty"`
	CreatedAt        string     `json:"created_at"`
}

type SightingListResponse struct {
	Sightings []SightingResponse `json:"sightings"`
	Total     int                `json:"total"`
}

type ObservationRequest struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	DeviceID    string     `json:"device_id" binding:"required"`
	Timestamp   string     `json:"timestamp"`
	Face        FaceData   `json:"face"`
	Embedding   []float32  `json:"embedding" binding:"required,min=1"`
	SnapshotKey string     `json:"snapshot_key"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
}

type ObservationAccepted struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// WSEvent is a WebSocket message for real-time sighting delivery.
type WSEvent struct {
	Type     string           `json:"type"` // suspect_sighted, face_sighted
	DeviceID string           `json:"device_id"`
	Data     SightingResponse `json:"data"`
	Name     string           `json:"matched_name,omitempty"`
}
