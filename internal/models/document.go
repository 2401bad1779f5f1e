package models

import (
	"time"

	"github.com/google/uuid"
)

// Collection names a group of media documents.
type Collection string

const (
	CollectionImages   Collection = "images"
	CollectionVideos   Collection = "videos"
	CollectionSuspects Collection = "suspects"
)

// ParseCollection accepts the collections that hold uploaded media.
func ParseCollection(s string) (Collection, bool) {
	switch c := Collection(s); c {
	case CollectionImages, CollectionVideos:
		return c, true
	default:
		return "", false
	}
}

// ContentType is the default MIME type stored for the collection's objects.
func (c Collection) ContentType() string {
	if c == CollectionVideos {
		return "video/quicktime"
	}
	return "image/jpeg"
}

// Extension is the object key suffix for the collection.
func (c Collection) Extension() string {
	if c == CollectionVideos {
		return ".mov"
	}
	return ".jpg"
}

// Document is an uploaded image or video record.
type Document struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Collection  Collection `json:"collection" db:"collection"`
	ObjectKey   string     `json:"object_key" db:"object_key"`
	ContentType string     `json:"content_type" db:"content_type"`
	Size        int64      `json:"size" db:"size"`
	Title       string     `json:"title,omitempty" db:"title"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
