package models

import (
	"time"

	"github.com/google/uuid"
)

type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// Suspect is a watch-list entry a face can be matched against.
type Suspect struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Age          int        `json:"age" db:"age"`
	Sex          Sex        `json:"sex" db:"sex"`
	Latitude     float64    `json:"latitude" db:"latitude"`
	Longitude    float64    `json:"longitude" db:"longitude"`
	Reason       string     `json:"reason,omitempty" db:"reason"`
	Agency       string     `json:"agency,omitempty" db:"agency"`
	PhotoKey     string     `json:"photo_key,omitempty" db:"photo_key"`         // MinIO key of the original photo
	ThumbnailKey string     `json:"thumbnail_key,omitempty" db:"thumbnail_key"` // MinIO key of the resized photo
	Embedding    []float32  `json:"-" db:"embedding"`
	Score        *float64   `json:"score,omitempty" db:"score"` // last match percentage
	ScoredAt     *time.Time `json:"scored_at,omitempty" db:"scored_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// HasEmbedding reports whether the suspect can take part in matching.
func (s *Suspect) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// FaceData is one detected face: a bounding box in normalized image
// coordinates [x1, y1, x2, y2] plus optional landmark regions.
type FaceData struct {
	BBox       [4]float32              `json:"bbox"`
	Confidence float32                 `json:"confidence,omitempty"`
	Landmarks  map[string][][2]float32 `json:"landmarks,omitempty"`
}

// Valid reports whether the bounding box has positive area.
func (f FaceData) Valid() bool {
	return f.BBox[2] > f.BBox[0] && f.BBox[3] > f.BBox[1]
}
