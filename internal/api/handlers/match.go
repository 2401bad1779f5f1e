package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/recognition"
	"github.com/your-org/suspectwatch/internal/similarity"
	"github.com/your-org/suspectwatch/pkg/dto"
)

type MatchHandler struct {
	matcher *recognition.Matcher
	scores  ScoreStore
}

func NewMatchHandler(matcher *recognition.Matcher, scores ScoreStore) *MatchHandler {
	return &MatchHandler{matcher: matcher, scores: scores}
}

// Match ranks suspects against a face embedding.
func (h *MatchHandler) Match(c *gin.Context) {
	var req dto.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Face != nil {
		face := models.FaceData{BBox: req.Face.BBox, Confidence: req.Face.Confidence, Landmarks: req.Face.Landmarks}
		if !face.Valid() {
			respondError(c, models.NewError(models.KindDataConversion, "face bbox has no area"))
			return
		}
	}

	matches, err := h.matcher.Match(c.Request.Context(), req.Embedding)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Limit > 0 && len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}

	results := make([]dto.MatchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, dto.MatchResult{
			SuspectID: m.SuspectID,
			Name:      m.Name,
			Cosine:    m.Cosine,
			Euclidean: finite(m.Euclidean),
			Percent:   m.Percent,
			Matched:   m.Matched,
		})

		if req.PersistScores && h.scores != nil {
			if err := h.scores.SetSuspectScore(c.Request.Context(), m.SuspectID, m.Percent); err != nil {
				slog.Warn("persist suspect score", "suspect", m.SuspectID, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, dto.MatchResponse{
		Results:   results,
		Total:     len(results),
		Threshold: h.matcher.Threshold(),
	})
}

// Compare scores two embeddings against each other.
func (h *MatchHandler) Compare(c *gin.Context) {
	var req dto.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scorer := *h.matcher.Scorer()
	if req.Mode != "" {
		scorer.Mode = similarity.Mode(req.Mode)
	}

	res := scorer.Score(req.A, req.B)
	c.JSON(http.StatusOK, dto.CompareResponse{
		Cosine:    res.Cosine,
		Euclidean: finite(res.Euclidean),
		Percent:   res.Percent,
		Matched:   res.Percent >= h.matcher.Threshold(),
		Mode:      string(scorer.Mode),
	})
}
