package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"visitor-register-backend/internal/export"
	"visitor-register-backend/internal/importer"
	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/metrics"
	"visitor-register-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store          store.Store
	ctrl           *lifecycle.Controller
	webpush        *webpush.Options
	export         export.Options
	metrics        *metrics.Recorder
	maxUploadBytes int64
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, ctrl *lifecycle.Controller, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:          s,
		ctrl:           ctrl,
		webpush:        webpushOptions,
		maxUploadBytes: 10 << 20,
	}
}

// Error codes returned in the "code" field of error bodies.
const (
	codeValidation    = "validation_failed"
	codeNotFound      = "not_found"
	codeAlreadyExited = "already_exited"
	codeNoValidRows   = "no_valid_rows"
	codeStorage       = "storage_unavailable"
)

func validationFailed(c *gin.Context, fields ...string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"code":    codeValidation,
		"details": fields,
	})
}

// respondError maps domain errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var vErr *store.ValidationError
	switch {
	case errors.As(err, &vErr):
		validationFailed(c, vErr.Fields...)
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found", "code": codeNotFound})
	case errors.Is(err, store.ErrAlreadyExited):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Entry already exited", "code": codeAlreadyExited})
	case errors.Is(err, importer.ErrNoValidRows):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid rows to import", "code": codeNoValidRows})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage unavailable", "code": codeStorage})
	}
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		log.Printf("health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
