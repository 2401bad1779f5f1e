package dto

import "github.com/google/uuid"

type UpdateDocumentRequest struct {
	Title string `json:"title"`
}

type DocumentResponse struct {
	ID          uuid.UUID `json:"id"`
	Collection  string    `json:"collection"`
	ObjectKey   string    `json:"object_key"`
	URL         string    `json:"url,omitempty"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int                `json:"total"`
}
