package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/core/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/middleware"
)

// journalHandler serves journal generation and its audit trail.
type journalHandler struct {
	journalService portssvc.JournalSvcFacade
}

func newJournalHandler(js portssvc.JournalSvcFacade) *journalHandler {
	return &journalHandler{journalService: js}
}

// registerJournalRoutes registers journal generation routes.
func registerJournalRoutes(rg *gin.RouterGroup, journalService portssvc.JournalSvcFacade) {
	h := newJournalHandler(journalService)

	rg.GET("/periods/:name/journal", h.generateJournal)
	rg.GET("/periods/:name/journal/exports", h.listJournalExports)
}

// generateJournal produces journal output for a period. The mode query
// parameter selects detail, summary, gl or template output (default gl).
func (h *journalHandler) generateJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")
	actor := middleware.GetActorFromContext(c)

	mode := c.DefaultQuery("mode", dto.JournalModeGL)

	result, err := h.journalService.GenerateJournal(c.Request.Context(), name, mode, actor)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Period not found"})
		case errors.Is(err, services.ErrInvalidJournalMode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrJournalImbalance):
			logger.Error("Generated journal does not balance", slog.String("period", name))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to generate journal", slog.String("period", name), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate journal"})
		}
		return
	}

	logger.Info("Journal generated",
		slog.String("period", name),
		slog.String("mode", mode),
		slog.Int("entries", result.EntryCount))
	c.JSON(http.StatusOK, result)
}

func (h *journalHandler) listJournalExports(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	name := c.Param("name")

	exports, err := h.journalService.ListJournalExports(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Period not found"})
			return
		}
		logger.Error("Failed to list journal exports", slog.String("period", name), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list journal exports"})
		return
	}

	resp := make([]dto.JournalExportLogResponse, len(exports))
	for i, e := range exports {
		resp[i] = dto.ToJournalExportLogResponse(e)
	}
	c.JSON(http.StatusOK, gin.H{"exports": resp})
}
