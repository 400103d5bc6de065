package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/core/services"
	"github.com/polisys/ledgercore/internal/dto"
	"github.com/polisys/ledgercore/internal/middleware"
)

// versionHandler handles HTTP requests for bi-temporal version chains. The
// HTTP surface is schema-agnostic: payloads travel as raw JSON.
type versionHandler struct {
	versions ports.VersionSvc[json.RawMessage]
}

// registerVersionRoutes registers routes related to entity versions.
func registerVersionRoutes(rg *gin.RouterGroup, versions ports.VersionSvc[json.RawMessage]) {
	h := &versionHandler{versions: versions}

	entities := rg.Group("/entities/:entityID/versions")
	{
		entities.POST("", h.recordVersion)
		entities.POST("/corrections", h.correctVersion)
		entities.GET("/as-of", h.versionAsOf)
		entities.GET("", h.versionHistory)
	}
}

func (h *versionHandler) recordVersion(c *gin.Context) {
	h.appendVersion(c, h.versions.Record)
}

func (h *versionHandler) correctVersion(c *gin.Context) {
	h.appendVersion(c, h.versions.Correct)
}

// appendVersion handles both record and correct, which share request shape
// and differ only in the service call.
func (h *versionHandler) appendVersion(c *gin.Context, op func(ctx context.Context, entityID string, payload json.RawMessage, valid domain.ValidPeriod) (*domain.BiTemporalRecord[json.RawMessage], error)) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entityID := c.Param("entityID")

	var req dto.RecordVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for version write", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	valid, err := req.ValidPeriod()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := op(c.Request.Context(), entityID, req.Payload, valid)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTemporalOverlap),
			errors.Is(err, domain.ErrVersionNotOpen),
			errors.Is(err, services.ErrConcurrentModification):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to write version", slog.String("error", err.Error()), slog.String("entity_id", entityID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write version"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToVersionResponse(rec))
}

func (h *versionHandler) versionAsOf(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entityID := c.Param("entityID")

	now := time.Now().UTC()
	validTime, knownAt := now, now
	if raw := c.Query("validAt"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid validAt, expected RFC3339: " + err.Error()})
			return
		}
		validTime = t
	}
	if raw := c.Query("knownAt"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid knownAt, expected RFC3339: " + err.Error()})
			return
		}
		knownAt = t
	}

	payload, err := h.versions.AsOf(c.Request.Context(), entityID, validTime, knownAt)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to query version as of", slog.String("error", err.Error()), slog.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query version"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entityID": entityID,
		"validAt":  validTime,
		"knownAt":  knownAt,
		"payload":  payload,
	})
}

func (h *versionHandler) versionHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entityID := c.Param("entityID")

	resp := dto.VersionHistoryResponse{EntityID: entityID}
	for rec, err := range h.versions.History(c.Request.Context(), entityID) {
		if err != nil {
			logger.Error("Failed to read version history", slog.String("error", err.Error()), slog.String("entity_id", entityID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read version history"})
			return
		}
		resp.Versions = append(resp.Versions, dto.ToVersionResponse(&rec))
	}

	c.JSON(http.StatusOK, resp)
}
