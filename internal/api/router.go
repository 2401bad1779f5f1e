package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/suspectwatch/internal/api/handlers"
	"github.com/your-org/suspectwatch/internal/api/ws"
	"github.com/your-org/suspectwatch/internal/auth"
	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/pose"
	"github.com/your-org/suspectwatch/internal/recognition"
)

// Store is everything the API needs from Postgres.
type Store interface {
	handlers.SuspectStore
	handlers.ScoreStore
	handlers.DocumentStore
	handlers.SightingQuerier
	handlers.ContextPinger
}

// ObjectStore is everything the API needs from MinIO.
type ObjectStore interface {
	handlers.ObjectStore
	handlers.ContextPinger
}

// Publisher is everything the API needs from NATS.
type Publisher interface {
	handlers.ObservationPublisher
	handlers.ControlPublisher
	handlers.Pinger
}

type RouterConfig struct {
	APIKey    string
	Pose      config.PoseConfig
	DB        Store
	Objects   ObjectStore
	Publisher Publisher
	Matcher   *recognition.Matcher
	Poses     *pose.Registry
	Hub       *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Objects, cfg.Publisher)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	// Suspects
	suspectH := handlers.NewSuspectHandler(cfg.DB, cfg.Objects, cfg.Matcher.Index(), cfg.Publisher)
	v1.POST("/suspects", suspectH.Create)
	v1.GET("/suspects", suspectH.List)
	v1.GET("/suspects/:id", suspectH.Get)
	v1.PUT("/suspects/:id", suspectH.Update)
	v1.DELETE("/suspects/:id", suspectH.Delete)
	v1.POST("/suspects/:id/photo", suspectH.UploadPhoto)
	v1.PUT("/suspects/:id/embedding", suspectH.SetEmbedding)

	// Matching
	matchH := handlers.NewMatchHandler(cfg.Matcher, cfg.DB)
	v1.POST("/match", matchH.Match)
	v1.POST("/compare", matchH.Compare)

	// Observations & sightings
	obsH := handlers.NewObservationHandler(cfg.Publisher)
	v1.POST("/observations", obsH.Create)
	sightingH := handlers.NewSightingHandler(cfg.DB, cfg.Objects)
	v1.GET("/sightings", sightingH.List)

	// Media documents
	docH := handlers.NewDocumentHandler(cfg.DB, cfg.Objects)
	v1.POST("/collections/:collection/documents", docH.Create)
	v1.GET("/collections/:collection/documents", docH.List)
	v1.GET("/collections/:collection/documents/:docId", docH.Get)
	v1.GET("/collections/:collection/documents/:docId/content", docH.Content)
	v1.PUT("/collections/:collection/documents/:docId", docH.Update)
	v1.DELETE("/collections/:collection/documents/:docId", docH.Delete)

	// Poses
	poseH := handlers.NewPoseHandler(cfg.Poses, cfg.Pose)
	v1.POST("/poses/compare", poseH.Compare)
	v1.POST("/poses/joints", poseH.Joints)
	v1.GET("/poses/:session", poseH.Get)
	v1.DELETE("/poses/:session", poseH.Reset)
	v1.POST("/poses/:session/capture", poseH.Capture)
	v1.POST("/poses/:session/match", poseH.Match)

	return r
}
