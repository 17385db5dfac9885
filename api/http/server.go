package http

import (
	"ListingHub/internal/modules/ingest/application/service"
	"ListingHub/internal/modules/ingest/domain/repository"
	ingestHandler "ListingHub/internal/modules/ingest/interface/http"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewEngine wires the operator API. Read-only surface over the pipeline's
// registry, dead-letter table, and rollups; ingestion itself never depends on
// this server.
func NewEngine(
	registry repository.FileRegistryRepository,
	dlq repository.DeadLetterRepository,
	stats repository.StatsRepository,
	statsSvc *service.StatsService,
) *gin.Engine {
	ge := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	ge.Use(cors.New(corsConfig))

	h := ingestHandler.NewIngestHandler(registry, dlq, stats, statsSvc)

	ge.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := ge.Group("/api/ingest")
	api.GET("/files", h.ListFiles)
	api.GET("/files/:fileId", h.GetFile)
	api.GET("/dlq", h.ListDeadLetters)
	api.GET("/stats", h.GetStats)
	api.POST("/stats/refresh", h.RefreshStats)
	api.GET("/metrics", h.GetMetrics)

	return ge
}
