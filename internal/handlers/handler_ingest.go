package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/middleware"
)

// ingestHandler handles FOCUS CSV uploads and the import audit trail.
type ingestHandler struct {
	ingestService portssvc.IngestSvcFacade
}

func newIngestHandler(is portssvc.IngestSvcFacade) *ingestHandler {
	return &ingestHandler{ingestService: is}
}

// registerIngestRoutes registers import and source routes. The upload route
// carries a rate limiter so bulk clients cannot starve the API.
func registerIngestRoutes(rg *gin.RouterGroup, ingestService portssvc.IngestSvcFacade, rateLimitFormat string) {
	h := newIngestHandler(ingestService)

	rate, err := limiter.NewRateFromFormatted(rateLimitFormat)
	if err != nil {
		rate, _ = limiter.NewRateFromFormatted("100-M")
	}
	ipLimiter := limiter.New(memory.NewStore(), rate)

	imports := rg.Group("/imports")
	{
		imports.POST("", middleware.RateLimit(ipLimiter), h.ingestCSV)
		imports.GET("", h.listImports)
	}
	rg.GET("/sources", h.listSources)
}

// ingestCSV accepts a multipart FOCUS CSV upload and runs one ingestion
// pass. Form fields: file (required), source (required), expectedPeriod
// (optional), dryRun (optional).
func (h *ingestHandler) ingestCSV(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file upload is required"})
		return
	}

	params := dto.IngestParams{
		SourceName:     c.PostForm("source"),
		FileName:       fileHeader.Filename,
		ExpectedPeriod: c.PostForm("expectedPeriod"),
		Actor:          middleware.GetActorFromContext(c),
	}
	if params.SourceName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A source name is required"})
		return
	}
	if v := c.PostForm("dryRun"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dryRun must be a boolean"})
			return
		}
		params.DryRun = dryRun
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	logger = logger.With(slog.String("source", params.SourceName), slog.String("file", params.FileName))
	logger.Info("Received ingestion request", slog.Bool("dry_run", params.DryRun))

	result, err := h.ingestService.IngestCSV(c.Request.Context(), file, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Unusable CSV upload", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Ingestion failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion failed"})
		return
	}

	logger.Info("Ingestion finished",
		slog.Int("rows", result.RowCount),
		slog.Int("inserted", result.Inserted),
		slog.Int("flagged", result.Flagged),
		slog.Int("line_errors", len(result.LineErrors)))
	c.JSON(http.StatusOK, result)
}

func (h *ingestHandler) listImports(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := h.ingestService.ListImports(c.Request.Context(), c.Query("source"), limit)
	if err != nil {
		logger.Error("Failed to list imports", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list imports"})
		return
	}

	resp := make([]dto.ImportLogResponse, len(entries))
	for i, e := range entries {
		resp[i] = dto.ToImportLogResponse(e)
	}
	c.JSON(http.StatusOK, gin.H{"imports": resp})
}

func (h *ingestHandler) listSources(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	sources, err := h.ingestService.ListSources(c.Request.Context())
	if err != nil {
		logger.Error("Failed to list sources", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}

	resp := make([]dto.SourceResponse, len(sources))
	for i, s := range sources {
		resp[i] = dto.ToSourceResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"sources": resp})
}
