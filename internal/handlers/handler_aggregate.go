package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/middleware"
)

// aggregateHandler serves per-stakeholder cost rollups and charge listings.
type aggregateHandler struct {
	aggregationService portssvc.AggregationSvcFacade
}

func newAggregateHandler(as portssvc.AggregationSvcFacade) *aggregateHandler {
	return &aggregateHandler{aggregationService: as}
}

// registerAggregateRoutes registers rollup and charge listing routes.
func registerAggregateRoutes(rg *gin.RouterGroup, aggregationService portssvc.AggregationSvcFacade) {
	h := newAggregateHandler(aggregationService)

	rg.GET("/periods/:name/aggregates", h.listAggregates)
	rg.GET("/periods/:name/charges", h.listCharges)
}

// listAggregates returns (stakeholder, project) cost buckets for a period.
func (h *aggregateHandler) listAggregates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")

	var params dto.AggregateParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	aggregates, err := h.aggregationService.AggregatePeriod(c.Request.Context(), name, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Period not found"})
			return
		}
		logger.Error("Failed to aggregate period", slog.String("period", name), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate period"})
		return
	}

	resp := dto.ListAggregatesResponse{
		PeriodName: name,
		Aggregates: make([]dto.AggregateResponse, len(aggregates)),
	}
	for i, a := range aggregates {
		resp.Aggregates[i] = dto.ToAggregateResponse(a)
	}
	c.JSON(http.StatusOK, resp)
}

// listCharges returns individual charges for a period. Flagged charges are
// included only when ?flagged=true.
func (h *aggregateHandler) listCharges(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")

	var params dto.AggregateParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	includeFlagged := false
	if v := c.Query("flagged"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "flagged must be a boolean"})
			return
		}
		includeFlagged = b
	}

	charges, err := h.aggregationService.ListCharges(c.Request.Context(), name, params, includeFlagged)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Period not found"})
			return
		}
		logger.Error("Failed to list charges", slog.String("period", name), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list charges"})
		return
	}

	resp := dto.ListChargesResponse{Charges: make([]dto.ChargeResponse, len(charges))}
	for i := range charges {
		resp.Charges[i] = dto.ToChargeResponse(&charges[i])
	}
	c.JSON(http.StatusOK, resp)
}
