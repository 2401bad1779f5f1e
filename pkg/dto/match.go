package dto

import "github.com/google/uuid"

type MatchRequest struct {
	Embedding []float32 `json:"embedding" binding:"required,min=1"`
	Face      *FaceData `json:"face,omitempty"`
	Limit     int       `json:"limit"`
	// PersistScores stores each returned percentage as the suspect's score.
	PersistScores bool `json:"persist_scores"`
}

type FaceData struct {
	BBox       [4]float32              `json:"bbox"`
	Confidence float32                 `json:"confidence,omitempty"`
	Landmarks  map[string][][2]float32 `json:"landmarks,omitempty"`
}

type MatchResult struct {
	SuspectID uuid.UUID `json:"suspect_id"`
	Name      string    `json:"name"`
	Cosine    float64   `json:"cosine"`
	Euclidean *float64  `json:"euclidean"` // null when the vectors differ in length
	Percent   float64   `json:"percent"`
	Matched   bool      `json:"matched"`
}

type MatchResponse struct {
	Results   []MatchResult `json:"results"`
	Total     int           `json:"total"`
	Threshold float64       `json:"threshold"`
}

type CompareRequest struct {
	A []float32 `json:"a" binding:"required,min=1"`
	B []float32 `json:"b" binding:"required,min=1"`
	// Mode overrides the configured scoring mode: combined or cosine.
	Mode string `json:"mode" binding:"omitempty,oneof=combined cosine"`
}

type CompareResponse struct {
	Cosine    float64  `json:"cosine"`
	Euclidean *float64 `json:"euclidean"`
	Percent   float64  `json:"percent"`
	Matched   bool     `json:"matched"`
	Mode      string   `json:"mode"`
}
