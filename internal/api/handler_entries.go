package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/model"
	"visitor-register-backend/internal/store"
)

// ListEntries handles GET /api/entries?filter=all|entered|exited.
func (h *Handler) ListEntries(c *gin.Context) {
	filter, err := model.ParseFilter(c.Query("filter"))
	if err != nil {
		validationFailed(c, "filter")
		return
	}

	entries, err := h.ctrl.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetEntry handles GET /api/entries/:id.
func (h *Handler) GetEntry(c *gin.Context) {
	entry, err := h.ctrl.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// CreateEntry handles POST /api/entries.
func (h *Handler) CreateEntry(c *gin.Context) {
	var req store.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, "body")
		return
	}

	entry, err := h.ctrl.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// CreateEntries handles POST /api/entries/bulk with a JSON array body.
func (h *Handler) CreateEntries(c *gin.Context) {
	var reqs []store.CreateRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		validationFailed(c, "body")
		return
	}

	entries, err := h.ctrl.RegisterMany(c.Request.Context(), reqs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entries)
}

type exitRequest struct {
	ExitTime *time.Time `json:"exit_time"`
}

// ExitEntry handles PATCH /api/entries/:id/exit. The body is optional.
func (h *Handler) ExitEntry(c *gin.Context) {
	var req exitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			validationFailed(c, "exit_time")
			return
		}
	}

	entry, err := h.ctrl.Exit(c.Request.Context(), c.Param("id"), req.ExitTime)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExited) && entry != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Entry already exited",
				"code":  codeAlreadyExited,
				"entry": entry,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/entries/:id.
func (h *Handler) DeleteEntry(c *gin.Context) {
	removed, err := h.ctrl.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !removed {
		respondError(c, store.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

type scanRequest struct {
	Code string `json:"code"`
}

// Scan handles POST /api/scan with the text decoded from a QR code or badge.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, "code")
		return
	}

	res := h.ctrl.OnDecoded(c.Request.Context(), req.Code)
	switch res.Outcome {
	case lifecycle.OutcomeExited:
		c.JSON(http.StatusOK, res)
	case lifecycle.OutcomeAlreadyExited:
		c.JSON(http.StatusBadRequest, gin.H{
			"outcome": res.Outcome,
			"error":   "Entry already exited",
			"code":    codeAlreadyExited,
			"entry":   res.Entry,
		})
	case lifecycle.OutcomeNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"outcome": res.Outcome,
			"error":   "Entry not found",
			"code":    codeNotFound,
		})
	case lifecycle.OutcomeInvalid:
		validationFailed(c, "code")
	default:
		respondError(c, res.Err)
	}
}
