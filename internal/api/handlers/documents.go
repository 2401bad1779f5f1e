package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/pkg/dto"
)

// maxMediaSize caps image and video uploads.
const maxMediaSize = 200 << 20

type DocumentHandler struct {
	db      DocumentStore
	objects ObjectStore
}

func NewDocumentHandler(db DocumentStore, objects ObjectStore) *DocumentHandler {
	return &DocumentHandler{db: db, objects: objects}
}

func (h *DocumentHandler) toResponse(c *gin.Context, d *models.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:          d.ID,
		Collection:  string(d.Collection),
		ObjectKey:   d.ObjectKey,
		URL:         presign(c.Request.Context(), h.objects, d.ObjectKey),
		ContentType: d.ContentType,
		Size:        d.Size,
		Title:       d.Title,
		CreatedAt:   formatTime(d.CreatedAt),
		UpdatedAt:   formatTime(d.UpdatedAt),
	}
}

func (h *DocumentHandler) collection(c *gin.Context) (models.Collection, bool) {
	col, ok := models.ParseCollection(c.Param("collection"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
	}
	return col, ok
}

func (h *DocumentHandler) lookup(c *gin.Context) (*models.Document, bool) {
	col, ok := h.collection(c)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(c.Param("docId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return nil, false
	}
	d, err := h.db.GetDocument(c.Request.Context(), col, id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return nil, false
	}
	return d, true
}

// Create uploads a multipart "file" to <collection>/<uuid><ext> and records it.
func (h *DocumentHandler) Create(c *gin.Context) {
	col, ok := h.collection(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxMediaSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
		return
	}
	if len(data) > maxMediaSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = col.ContentType()
	}

	d := &models.Document{
		ID:          uuid.New(),
		Collection:  col,
		ContentType: contentType,
		Size:        int64(len(data)),
		Title:       c.PostForm("title"),
	}
	d.ObjectKey = string(col) + "/" + d.ID.String() + col.Extension()

	ctx := c.Request.Context()
	if err := h.objects.PutObject(ctx, d.ObjectKey, data, contentType); err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.CreateDocument(ctx, d); err != nil {
		if derr := h.objects.DeleteObject(ctx, d.ObjectKey); derr != nil {
			slog.Warn("remove orphaned upload", "key", d.ObjectKey, "error", derr)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(c, d))
}

func (h *DocumentHandler) List(c *gin.Context) {
	col, ok := h.collection(c)
	if !ok {
		return
	}

	docs, err := h.db.ListDocuments(c.Request.Context(), col)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.DocumentResponse, 0, len(docs))
	for i := range docs {
		resp = append(resp, h.toResponse(c, &docs[i]))
	}
	c.JSON(http.StatusOK, dto.DocumentListResponse{Documents: resp, Total: len(resp)})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	d, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.toResponse(c, d))
}

// Content streams the stored media through the API for clients that cannot
// reach MinIO directly.
func (h *DocumentHandler) Content(c *gin.Context) {
	d, ok := h.lookup(c)
	if !ok {
		return
	}
	data, err := h.objects.GetObject(c.Request.Context(), d.ObjectKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(d.ObjectKey)))
	c.Data(http.StatusOK, d.ContentType, data)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	d, ok := h.lookup(c)
	if !ok {
		return
	}

	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d.Title = req.Title

	if err := h.db.UpdateDocument(c.Request.Context(), d); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(c, d))
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	d, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.db.DeleteDocument(c.Request.Context(), d.Collection, d.ID); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		respondError(c, err)
		return
	}
	if err := h.objects.DeleteObject(c.Request.Context(), d.ObjectKey); err != nil {
		slog.Warn("delete document object", "key", d.ObjectKey, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
