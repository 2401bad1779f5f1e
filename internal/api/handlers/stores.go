package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/queue"
	"github.com/your-org/suspectwatch/internal/storage"
)

// Interfaces over the Postgres and MinIO stores, narrowed per handler.

type SuspectStore interface {
	CreateSuspect(ctx context.Context, s *models.Suspect) error
	GetSuspect(ctx context.Context, id uuid.UUID) (*models.Suspect, error)
	ListSuspects(ctx context.Context, limit, offset int) ([]models.Suspect, int, error)
	UpdateSuspect(ctx context.Context, s *models.Suspect) error
	DeleteSuspect(ctx context.Context, id uuid.UUID) error
	SetSuspectPhoto(ctx context.Context, id uuid.UUID, photoKey, thumbnailKey string) error
	SetSuspectEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

type ScoreStore interface {
	SetSuspectScore(ctx context.Context, id uuid.UUID, score float64) error
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, collection models.Collection, id uuid.UUID) (*models.Document, error)
	ListDocuments(ctx context.Context, collection models.Collection) ([]models.Document, error)
	UpdateDocument(ctx context.Context, d *models.Document) error
	DeleteDocument(ctx context.Context, collection models.Collection, id uuid.UUID) error
}

type SightingQuerier interface {
	QuerySightings(ctx context.Context, f storage.SightingFilter) ([]models.Sighting, int, error)
}

type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string) (string, error)
}

type ObservationPublisher interface {
	PublishObservation(ctx context.Context, obs models.Observation) error
}

type ControlPublisher interface {
	PublishControl(msg queue.ControlMessage) error
}

// respondError maps typed errors onto status codes; anything else is a 500.
func respondError(c *gin.Context, err error) {
	status := models.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func presign(ctx context.Context, objects ObjectStore, key string) string {
	if key == "" || objects == nil {
		return ""
	}
	u, err := objects.PresignedURL(ctx, key)
	if err != nil {
		slog.Warn("presign object", "key", key, "error", err)
		return ""
	}
	return u
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// finite returns nil for values JSON cannot encode.
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
