package dto

import "github.com/google/uuid"

type CreateSuspectRequest struct {
	Name      string    `json:"name" binding:"required"`
	Age       int       `json:"age" binding:"gte=0,lte=150"`
	Sex       string    `json:"sex" binding:"omitempty,oneof=male female unknown"`
	Latitude  float64   `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" binding:"gte=-180,lte=180"`
	Reason    string    `json:"reason"`
	Agency    string    `json:"agency"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// UpdateSuspectRequest replaces the editable fields of a suspect.
type UpdateSuspectRequest struct {
	Name      string  `json:"name" binding:"required"`
	Age       int     `json:"age" binding:"gte=0,lte=150"`
	Sex       string  `json:"sex" binding:"omitempty,oneof=male female unknown"`
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
	Reason    string  `json:"reason"`
	Agency    string  `json:"agency"`
}

type SetEmbeddingRequest struct {
	Embedding []float32 `json:"embedding" binding:"required,min=1"`
}

type SuspectResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Age          int       `json:"age"`
	Sex          string    `json:"sex"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Reason       string    `json:"reason,omitempty"`
	Agency       string    `json:"agency,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	HasEmbedding bool      `json:"has_embedding"`
	Score        *float64  `json:"score,omitempty"`
	ScoredAt     string    `json:"scored_at,omitempty"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at"`
}

type SuspectListResponse struct {
	Suspects []SuspectResponse `json:"suspects"`
	Total    int               `json:"total"`
}
