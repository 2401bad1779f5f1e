package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/suspectwatch/internal/imaging"
	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/queue"
	"github.com/your-org/suspectwatch/pkg/dto"
)

// maxPhotoSize caps suspect photo uploads.
const maxPhotoSize = 10 << 20

// SuspectIndexer is the in-memory index kept in sync with suspect writes.
type SuspectIndexer interface {
	Upsert(s models.Suspect) bool
	Remove(id uuid.UUID)
}

type SuspectHandler struct {
	db      SuspectStore
	objects ObjectStore
	index   SuspectIndexer
	control ControlPublisher
}

func NewSuspectHandler(db SuspectStore, objects ObjectStore, index SuspectIndexer, control ControlPublisher) *SuspectHandler {
	return &SuspectHandler{db: db, objects: objects, index: index, control: control}
}

func (h *SuspectHandler) toResponse(c *gin.Context, s *models.Suspect) dto.SuspectResponse {
	var scoredAt string
	if s.ScoredAt != nil {
		scoredAt = formatTime(*s.ScoredAt)
	}
	return dto.SuspectResponse{
		ID:           s.ID,
		Name:         s.Name,
		Age:          s.Age,
		Sex:          string(s.Sex),
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		Reason:       s.Reason,
		Agency:       s.Agency,
		PhotoURL:     presign(c.Request.Context(), h.objects, s.PhotoKey),
		ThumbnailURL: presign(c.Request.Context(), h.objects, s.ThumbnailKey),
		HasEmbedding: s.HasEmbedding(),
		Score:        s.Score,
		ScoredAt:     scoredAt,
		CreatedAt:    formatTime(s.CreatedAt),
		UpdatedAt:    formatTime(s.UpdatedAt),
	}
}

// changed keeps the local index current and tells workers to reload theirs.
func (h *SuspectHandler) changed(s *models.Suspect, removed bool) {
	if h.index != nil {
		if removed {
			h.index.Remove(s.ID)
		} else {
			h.index.Upsert(*s)
		}
	}
	if h.control != nil {
		msg := queue.ControlMessage{Command: queue.CommandReload, SuspectID: s.ID.String()}
		if err := h.control.PublishControl(msg); err != nil {
			slog.Warn("publish suspect reload", "error", err, "suspect", s.ID)
		}
	}
}

func parseSex(s string) models.Sex {
	if s == "" {
		return models.SexUnknown
	}
	return models.Sex(s)
}

func (h *SuspectHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid suspect id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *SuspectHandler) Create(c *gin.Context) {
	var req dto.CreateSuspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := &models.Suspect{
		Name:      req.Name,
		Age:       req.Age,
		Sex:       parseSex(req.Sex),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Reason:    req.Reason,
		Agency:    req.Agency,
		Embedding: req.Embedding,
	}
	if err := h.db.CreateSuspect(c.Request.Context(), s); err != nil {
		respondError(c, err)
		return
	}
	if s.HasEmbedding() {
		h.changed(s, false)
	}

	c.JSON(http.StatusCreated, h.toResponse(c, s))
}

func (h *SuspectHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	suspects, total, err := h.db.ListSuspects(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.SuspectResponse, 0, len(suspects))
	for i := range suspects {
		resp = append(resp, h.toResponse(c, &suspects[i]))
	}
	c.JSON(http.StatusOK, dto.SuspectListResponse{Suspects: resp, Total: total})
}

func (h *SuspectHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	s, err := h.db.GetSuspect(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "suspect not found"})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(c, s))
}

func (h *SuspectHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateSuspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := &models.Suspect{
		ID:        id,
		Name:      req.Name,
		Age:       req.Age,
		Sex:       parseSex(req.Sex),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Reason:    req.Reason,
		Agency:    req.Agency,
	}
	if err := h.db.UpdateSuspect(c.Request.Context(), s); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "suspect not found"})
			return
		}
		respondError(c, err)
		return
	}

	updated, err := h.db.GetSuspect(c.Request.Context(), id)
	if err != nil || updated == nil {
		c.JSON(http.StatusOK, h.toResponse(c, s))
		return
	}
	if updated.HasEmbedding() {
		h.changed(updated, false)
	}
	c.JSON(http.StatusOK, h.toResponse(c, updated))
}

func (h *SuspectHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	s, err := h.db.GetSuspect(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "suspect not found"})
		return
	}

	if err := h.db.DeleteSuspect(c.Request.Context(), id); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "suspect not found"})
			return
		}
		respondError(c, err)
		return
	}

	for _, key := range []string{s.PhotoKey, s.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := h.objects.DeleteObject(c.Request.Context(), key); err != nil {
			slog.Warn("delete suspect photo", "key", key, "error", err)
		}
	}
	h.changed(s, true)

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UploadPhoto stores a multipart "photo" and a JPEG thumbnail of it.
func (h *SuspectHandler) UploadPhoto(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	s, err := h.db.GetSuspect(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "suspect not found"})
		return
	}

	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read photo failed"})
		return
	}
	if len(data) > maxPhotoSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo too large"})
		return
	}

	img, format, err := imaging.Decode(data)
	if err != nil {
		respondError(c, err)
		return
	}

	photoKey := fmt.Sprintf("suspects/%s/photo.%s", id, format)
	thumbKey := fmt.Sprintf("suspects/%s/thumb.jpg", id)

	ctx := c.Request.Context()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.objects.PutObject(gctx, photoKey, data, "image/"+format)
	})
	g.Go(func() error {
		thumb, err := imaging.EncodeJPEG(imaging.Thumbnail(img, imaging.ThumbnailSize), 85)
		if err != nil {
			return err
		}
		return h.objects.PutObject(gctx, thumbKey, thumb, "image/jpeg")
	})
	if err := g.Wait(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.db.SetSuspectPhoto(ctx, id, photoKey, thumbKey); err != nil {
		respondError(c, err)
		return
	}
	s.PhotoKey = photoKey
	s.ThumbnailKey = thumbKey

	c.JSON(http.StatusOK, h.toResponse(c, s))
}

// SetEmbedding replaces the stored face embedding of a suspect.
func (h *SuspectHandler) SetEmbedding(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.SetEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.SetSuspectEmbedding(c.Request.Context(), id, req.Embedding); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "suspect not found"})
			return
		}
		respondError(c, err)
		return
	}

	s, err := h.db.GetSuspect(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "suspect not found"})
		return
	}
	h.changed(s, false)

	c.JSON(http.StatusOK, h.toResponse(c, s))
}
