package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/observability"
	"github.com/your-org/suspectwatch/internal/pose"
	"github.com/your-org/suspectwatch/pkg/dto"
)

type PoseHandler struct {
	registry *pose.Registry
	cfg      config.PoseConfig
}

func NewPoseHandler(registry *pose.Registry, cfg config.PoseConfig) *PoseHandler {
	return &PoseHandler{registry: registry, cfg: cfg}
}

func toPose(points []dto.Point) pose.Pose {
	p := make(pose.Pose, len(points))
	for i, pt := range points {
		p[i] = pose.Point{X: pt.X, Y: pt.Y}
	}
	return p
}

func fromPose(p pose.Pose) []dto.Point {
	out := make([]dto.Point, len(p))
	for i, pt := range p {
		out[i] = dto.Point{X: pt.X, Y: pt.Y}
	}
	return out
}

// Capture saves a reference pose in the session.
func (h *PoseHandler) Capture(c *gin.Context) {
	var req dto.PoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("session")
	n, err := h.registry.Get(id).Capture(toPose(req.Joints))
	if err != nil {
		if errors.Is(err, pose.ErrSessionFull) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.CapturePoseResponse{
		Session: id,
		Index:   n - 1,
		Saved:   n,
		Max:     h.cfg.MaxSavedPoses,
	})
}

func (h *PoseHandler) Get(c *gin.Context) {
	id := c.Param("session")
	s, ok := h.registry.Lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	saved := s.Saved()
	poses := make([][]dto.Point, len(saved))
	for i, p := range saved {
		poses[i] = fromPose(p)
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: id, Poses: poses, Max: h.cfg.MaxSavedPoses})
}

// Reset drops every saved pose of the session.
func (h *PoseHandler) Reset(c *gin.Context) {
	h.registry.Delete(c.Param("session"))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Match scores a live pose against the saved poses of the session.
func (h *PoseHandler) Match(c *gin.Context) {
	var req dto.PoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, ok := h.registry.Lookup(c.Param("session"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	scores := s.Match(toPose(req.Joints))
	observability.PoseComparisons.Add(float64(len(scores)))

	resp := dto.PoseMatchResponse{Scores: scores, BestIndex: -1}
	for i, sc := range scores {
		if resp.BestIndex < 0 || sc > resp.BestScore {
			resp.BestIndex = i
			resp.BestScore = sc
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Compare scores two poses without a session.
func (h *PoseHandler) Compare(c *gin.Context) {
	var req dto.ComparePosesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	observability.PoseComparisons.Inc()
	score := pose.Compare(toPose(req.Current), toPose(req.Saved), h.cfg.DistanceWeight)
	c.JSON(http.StatusOK, dto.ComparePosesResponse{Score: score})
}

// Joints extracts joint positions from a pose model heatmap.
func (h *PoseHandler) Joints(c *gin.Context) {
	var req dto.JointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Joints == 0 {
		req.Joints = pose.JointCount
	}
	if req.Size == 0 {
		req.Size = h.cfg.HeatmapSize
	}

	scaleX := req.Width / float64(req.Size)
	scaleY := req.Height / float64(req.Size)
	p, err := pose.ExtractJoints(req.Heatmap, req.Joints, req.Size, scaleX, scaleY)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	labels := pose.Labels()
	joints := make([]dto.Joint, len(p))
	for i, pt := range p {
		name := ""
		if i < len(labels) {
			name = labels[i]
		}
		joints[i] = dto.Joint{Name: name, X: pt.X, Y: pt.Y}
	}

	conns := make([][2]int, len(pose.Connections))
	for i, b := range pose.Connections {
		conns[i] = [2]int{int(b.From), int(b.To)}
	}

	c.JSON(http.StatusOK, dto.JointsResponse{Joints: joints, Connections: conns})
}
