package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/core/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/middleware"
)

// periodHandler handles HTTP requests for billing period lifecycle.
type periodHandler struct {
	periodService portssvc.PeriodSvcFacade
}

func newPeriodHandler(ps portssvc.PeriodSvcFacade) *periodHandler {
	return &periodHandler{periodService: ps}
}

// registerPeriodRoutes registers billing period lifecycle routes.
func registerPeriodRoutes(rg *gin.RouterGroup, periodService portssvc.PeriodSvcFacade) {
	h := newPeriodHandler(periodService)

	periods := rg.Group("/periods")
	{
		periods.POST("", h.openPeriod)
		periods.GET("", h.listPeriods)
		periods.GET("/:name", h.getPeriod)
		periods.GET("/:name/stats", h.getPeriodStats)
		periods.POST("/:name/close", h.closePeriod)
		periods.POST("/:name/reopen", h.reopenPeriod)
		periods.POST("/:name/finalize", h.finalizePeriod)
	}
}

// openPeriod creates the named period, or returns it if it is already open.
func (h *periodHandler) openPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.OpenPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for OpenPeriod", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	actor := middleware.GetActorFromContext(c)

	period, err := h.periodService.OpenPeriod(c.Request.Context(), req.Name, actor)
	if err != nil {
		h.respondPeriodError(c, logger, err, "Failed to open period")
		return
	}

	logger.Info("Period opened", slog.String("period", period.Name))
	c.JSON(http.StatusCreated, dto.ToPeriodResponse(period))
}

func (h *periodHandler) listPeriods(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var status *domain.PeriodStatus
	if s := c.Query("status"); s != "" {
		ps := domain.PeriodStatus(strings.ToUpper(s))
		if !ps.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown period status: " + s})
			return
		}
		status = &ps
	}

	periods, err := h.periodService.ListPeriods(c.Request.Context(), status)
	if err != nil {
		logger.Error("Failed to list periods", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list periods"})
		return
	}

	resp := dto.ListPeriodsResponse{Periods: make([]dto.PeriodResponse, len(periods))}
	for i := range periods {
		resp.Periods[i] = dto.ToPeriodResponse(&periods[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *periodHandler) getPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")

	period, err := h.periodService.GetPeriod(c.Request.Context(), name)
	if err != nil {
		h.respondPeriodError(c, logger, err, "Failed to get period")
		return
	}
	c.JSON(http.StatusOK, dto.ToPeriodResponse(period))
}

func (h *periodHandler) getPeriodStats(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")

	stats, err := h.periodService.GetPeriodStats(c.Request.Context(), name)
	if err != nil {
		h.respondPeriodError(c, logger, err, "Failed to get period stats")
		return
	}
	c.JSON(http.StatusOK, dto.ToPeriodStatsResponse(stats))
}

func (h *periodHandler) closePeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")
	actor := middleware.GetActorFromContext(c)

	period, err := h.periodService.ClosePeriod(c.Request.Context(), name, actor)
	if err != nil {
		h.respondPeriodError(c, logger, err, "Failed to close period")
		return
	}

	logger.Info("Period closed", slog.String("period", name), slog.String("actor", actor))
	c.JSON(http.StatusOK, dto.ToPeriodResponse(period))
}

func (h *periodHandler) reopenPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")
	actor := middleware.GetActorFromContext(c)

	var req dto.ReopenPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReopenPeriod", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	period, err := h.periodService.ReopenPeriod(c.Request.Context(), name, req.Reason, actor)
	if err != nil {
		h.respondPeriodError(c, logger, err, "Failed to reopen period")
		return
	}

	logger.Info("Period reopened", slog.String("period", name), slog.String("actor", actor))
	c.JSON(http.StatusOK, dto.ToPeriodResponse(period))
}

func (h *periodHandler) finalizePeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")
	actor := middleware.GetActorFromContext(c)

	var req dto.FinalizePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for FinalizePeriod", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	period, err := h.periodService.FinalizePeriod(c.Request.Context(), name, req.Notes, actor)
	if err != nil {
		h.respondPeriodError(c, logger, err, "Failed to finalize period")
		return
	}

	logger.Info("Period finalized", slog.String("period", name), slog.String("actor", actor))
	c.JSON(http.StatusOK, dto.ToPeriodResponse(period))
}

// respondPeriodError maps period service errors to HTTP statuses.
func (h *periodHandler) respondPeriodError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Period not found"})
	case errors.Is(err, services.ErrInvalidPeriodName), errors.Is(err, services.ErrReopenReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPeriodFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidPeriodTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
