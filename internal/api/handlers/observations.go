package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/pkg/dto"
)

type ObservationHandler struct {
	publisher ObservationPublisher
}

func NewObservationHandler(publisher ObservationPublisher) *ObservationHandler {
	return &ObservationHandler{publisher: publisher}
}

// Create enqueues an observation for the workers.
func (h *ObservationHandler) Create(c *gin.Context) {
	var req dto.ObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obs := models.Observation{
		ID:          uuid.New(),
		DeviceID:    req.DeviceID,
		Timestamp:   time.Now().UTC(),
		Face:        models.FaceData{BBox: req.Face.BBox, Confidence: req.Face.Confidence, Landmarks: req.Face.Landmarks},
		Embedding:   req.Embedding,
		SnapshotKey: req.SnapshotKey,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if req.ID != nil {
		obs.ID = *req.ID
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "timestamp must be RFC3339"})
			return
		}
		obs.Timestamp = ts
	}
	if err := obs.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.publisher.PublishObservation(c.Request.Context(), obs); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ObservationAccepted{ID: obs.ID, Status: "queued"})
}
