package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/storage"
	"github.com/your-org/suspectwatch/pkg/dto"
)

type SightingHandler struct {
	db      SightingQuerier
	objects ObjectStore
}

func NewSightingHandler(db SightingQuerier, objects ObjectStore) *SightingHandler {
	return &SightingHandler{db: db, objects: objects}
}

func (h *SightingHandler) List(c *gin.Context) {
	f := storage.SightingFilter{DeviceID: c.Query("device_id")}

	if fromStr := c.Query("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		f.From = &t
	}
	if toStr := c.Query("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		f.To = &t
	}
	if sidStr := c.Query("suspect_id"); sidStr != "" {
		id, err := uuid.Parse(sidStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid suspect_id"})
			return
		}
		f.SuspectID = &id
	}
	if unknownStr := c.Query("unknown"); unknownStr != "" {
		f.Unknown = unknownStr == "true" || unknownStr == "1"
	}

	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	sightings, total, err := h.db.QuerySightings(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.SightingResponse, 0, len(sightings))
	for _, s := range sightings {
		resp = append(resp, dto.SightingResponse{
			ID:               s.ID,
			ObservationID:    s.ObservationID,
			DeviceID:         s.DeviceID,
			TrackID:          s.TrackID,
			Timestamp:        formatTime(s.Timestamp),
			BBox:             s.BBox,
			MatchedSuspectID: s.MatchedSuspectID,
			MatchScore:       s.MatchScore,
			Latitude:         s.Latitude,
			Longitude:        s.Longitude,
			SnapshotURL:      presign(c.Request.Context(), h.objects, s.SnapshotKey),
			CreatedAt:        formatTime(s.CreatedAt),
		})
	}

	c.JSON(http.StatusOK, dto.SightingListResponse{Sightings: resp, Total: total})
}
