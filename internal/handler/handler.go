package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/dto"
	"github.com/rowlog/rowlog/internal/journal"
	"github.com/rowlog/rowlog/internal/service"
)

type Handler struct {
	queryService service.Querier
	router       *gin.Engine
	log          *zap.Logger
}

func NewHandler(queryService service.Querier, log *zap.Logger) *Handler {
	h := &Handler{
		queryService: queryService,
		router:       gin.Default(),
		log:          log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/entities/:id/events", h.replay)
	h.router.GET("/entities/:id/highest-sequence-nr", h.highestSequenceNr)
	h.router.DELETE("/entities/:id/events", h.deleteTo)
	h.router.GET("/tags/:tag/events", h.eventsByTag)
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	if err := h.queryService.Ping(c.Request.Context()); err != nil {
		h.log.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "backend_unavailable",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// replay handles GET /entities/:id/events
func (h *Handler) replay(c *gin.Context) {
	var req dto.ReplayRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid replay request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	persistenceID := c.Param("id")
	resp, err := h.queryService.Replay(c.Request.Context(), persistenceID, &req)
	if err != nil {
		h.log.Error("Failed to replay events",
			zap.Error(err),
			zap.String("persistence_id", persistenceID))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// highestSequenceNr handles GET /entities/:id/highest-sequence-nr
func (h *Handler) highestSequenceNr(c *gin.Context) {
	persistenceID := c.Param("id")

	resp, err := h.queryService.HighestSequenceNr(c.Request.Context(), persistenceID)
	if err != nil {
		h.log.Error("Failed to read highest sequence number",
			zap.Error(err),
			zap.String("persistence_id", persistenceID))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// deleteTo handles DELETE /entities/:id/events?to=N
func (h *Handler) deleteTo(c *gin.Context) {
	var req dto.DeleteToRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid delete request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	persistenceID := c.Param("id")
	resp, err := h.queryService.DeleteTo(c.Request.Context(), persistenceID, req.To)
	if err != nil {
		h.log.Error("Failed to delete events",
			zap.Error(err),
			zap.String("persistence_id", persistenceID),
			zap.Int64("to", req.To))
		h.writeError(c, err)
		return
	}

	h.log.Info("Events logically deleted",
		zap.String("persistence_id", persistenceID),
		zap.Int64("to", req.To))

	c.JSON(http.StatusOK, resp)
}

// eventsByTag handles GET /tags/:tag/events
func (h *Handler) eventsByTag(c *gin.Context) {
	var req dto.EventsByTagRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid tag query", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	tag := c.Param("tag")
	resp, err := h.queryService.EventsByTag(c.Request.Context(), tag, &req)
	if err != nil {
		h.log.Error("Failed to query tag index",
			zap.Error(err),
			zap.String("tag", tag))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeError maps journal errors to HTTP statuses: contract violations are
// loud 4xx, data-integrity gaps are 409, operational backend failures are 503.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		ordering *journal.OrderingViolationError
		boundary *journal.PartitionBoundaryError
		gap      *journal.SequenceGapError
	)

	switch {
	case errors.As(err, &ordering):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "ordering_violation",
			Message: err.Error(),
		})
	case errors.As(err, &boundary):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "partition_boundary",
			Message: err.Error(),
		})
	case errors.As(err, &gap):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "sequence_gap",
			Message: err.Error(),
		})
	case errors.Is(err, journal.ErrBackendUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "backend_unavailable",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}
