package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/core/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/middleware"
)

// reviewHandler handles the flag review workflow.
type reviewHandler struct {
	reviewService portssvc.ReviewSvcFacade
}

func newReviewHandler(rs portssvc.ReviewSvcFacade) *reviewHandler {
	return &reviewHandler{reviewService: rs}
}

// registerReviewRoutes registers review queue and decision routes.
func registerReviewRoutes(rg *gin.RouterGroup, reviewService portssvc.ReviewSvcFacade) {
	h := newReviewHandler(reviewService)

	rg.GET("/flags", h.listFlagged)
	rg.GET("/periods/:name/flags", h.listFlagged)
	rg.POST("/periods/:name/flags/approve-all", h.approveAll)
	rg.GET("/periods/:name/reviews", h.listReviewActions)
	charges := rg.Group("/charges")
	{
		charges.POST("/:chargeID/approve", h.approveCharge)
		charges.POST("/:chargeID/reject", h.rejectCharge)
	}
}

// listFlagged lists charges awaiting review, optionally filtered by
// reason. It serves both the period-scoped route and the unscoped /flags
// route, where the period comes from an optional query parameter.
func (h *reviewHandler) listFlagged(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")
	if name == "" {
		name = c.Query("period")
	}

	var reason *domain.FlagReason
	if v := c.Query("reason"); v != "" {
		r := domain.FlagReason(v)
		reason = &r
	}

	charges, err := h.reviewService.ListFlagged(c.Request.Context(), name, reason)
	if err != nil {
		h.respondReviewError(c, logger, err, "Failed to list flagged charges")
		return
	}

	resp := dto.ListChargesResponse{Charges: make([]dto.ChargeResponse, len(charges))}
	for i := range charges {
		resp.Charges[i] = dto.ToChargeResponse(&charges[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *reviewHandler) approveCharge(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	chargeID := c.Param("chargeID")
	actor := middleware.GetActorFromContext(c)

	var req dto.ApproveChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApproveCharge", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	charge, err := h.reviewService.ApproveCharge(c.Request.Context(), chargeID, req.Notes, actor)
	if err != nil {
		h.respondReviewError(c, logger, err, "Failed to approve charge")
		return
	}

	logger.Info("Charge approved", slog.String("charge_id", chargeID), slog.String("actor", actor))
	c.JSON(http.StatusOK, dto.ToChargeResponse(charge))
}

func (h *reviewHandler) rejectCharge(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	chargeID := c.Param("chargeID")
	actor := middleware.GetActorFromContext(c)

	var req dto.RejectChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RejectCharge", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	charge, err := h.reviewService.RejectCharge(c.Request.Context(), chargeID, req.Notes, actor)
	if err != nil {
		h.respondReviewError(c, logger, err, "Failed to reject charge")
		return
	}

	logger.Info("Charge rejected", slog.String("charge_id", chargeID), slog.String("actor", actor))
	c.JSON(http.StatusOK, dto.ToChargeResponse(charge))
}

// approveAll clears every outstanding flag in a period in one shot.
func (h *reviewHandler) approveAll(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")
	actor := middleware.GetActorFromContext(c)

	var req dto.ApproveChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApproveAll", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	approved, err := h.reviewService.ApproveAll(c.Request.Context(), name, req.Notes, actor)
	if err != nil {
		h.respondReviewError(c, logger, err, "Failed to bulk approve charges")
		return
	}

	logger.Info("Flags bulk approved", slog.String("period", name), slog.Int("approved", approved), slog.String("actor", actor))
	c.JSON(http.StatusOK, gin.H{"approved": approved})
}

func (h *reviewHandler) listReviewActions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")

	actions, err := h.reviewService.ListReviewActions(c.Request.Context(), name)
	if err != nil {
		h.respondReviewError(c, logger, err, "Failed to list review actions")
		return
	}

	resp := make([]dto.ReviewActionResponse, len(actions))
	for i, a := range actions {
		resp[i] = dto.ToReviewActionResponse(a)
	}
	c.JSON(http.StatusOK, gin.H{"reviews": resp})
}

// respondReviewError maps review service errors to HTTP statuses.
func (h *reviewHandler) respondReviewError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrInvalidFlagReason):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPeriodFinalized), errors.Is(err, services.ErrChargeRejected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
