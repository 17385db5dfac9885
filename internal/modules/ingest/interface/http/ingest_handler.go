package http

import (
	"strconv"
	"strings"

	"ListingHub/internal/modules/ingest/application/service"
	"ListingHub/internal/modules/ingest/domain/repository"
	"ListingHub/pkg/back"
	"ListingHub/pkg/metrics"
	"ListingHub/pkg/xerr"

	"github.com/gin-gonic/gin"
)

// IngestHandler exposes the read-only operator surface: per-file status,
// dead-letter triage, stats rollups, and a metrics snapshot.
type IngestHandler struct {
	registry repository.FileRegistryRepository
	dlq      repository.DeadLetterRepository
	stats    repository.StatsRepository
	statsSvc *service.StatsService
}

func NewIngestHandler(
	registry repository.FileRegistryRepository,
	dlq repository.DeadLetterRepository,
	stats repository.StatsRepository,
	statsSvc *service.StatsService,
) *IngestHandler {
	return &IngestHandler{registry: registry, dlq: dlq, stats: stats, statsSvc: statsSvc}
}

// GET /api/ingest/files?status=ERROR&limit=50
func (h *IngestHandler) ListFiles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	records, err := h.registry.List(c.Request.Context(), c.Query("status"), limit)
	back.Result(c, records, err)
}

// GET /api/ingest/files/:fileId
func (h *IngestHandler) GetFile(c *gin.Context) {
	fileID := strings.TrimSpace(c.Param("fileId"))
	if fileID == "" {
		back.Error(c, xerr.ErrParam.Code, xerr.ErrParam.Message)
		return
	}
	rec, err := h.registry.GetByFileID(c.Request.Context(), fileID)
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	if rec == nil {
		back.Error(c, xerr.ErrNotFound.Code, xerr.ErrNotFound.Message)
		return
	}
	back.Success(c, rec)
}

// GET /api/ingest/dlq?limit=50
func (h *IngestHandler) ListDeadLetters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.dlq.List(c.Request.Context(), limit)
	back.Result(c, entries, err)
}

// GET /api/ingest/stats
func (h *IngestHandler) GetStats(c *gin.Context) {
	summary, err := h.stats.GetSummary(c.Request.Context())
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	top, err := h.stats.TopStateCategories(c.Request.Context(), 50)
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Success(c, gin.H{
		"summary":          summary,
		"state_categories": top,
	})
}

// POST /api/ingest/stats/refresh forces an immediate recompute.
func (h *IngestHandler) RefreshStats(c *gin.Context) {
	err := h.statsSvc.Refresh(c.Request.Context())
	back.Result(c, gin.H{"refreshed": err == nil}, err)
}

// GET /api/ingest/metrics
func (h *IngestHandler) GetMetrics(c *gin.Context) {
	back.Success(c, metrics.Snapshot())
}
