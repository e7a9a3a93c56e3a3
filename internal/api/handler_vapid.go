package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitor-register-backend/internal/model"
)

// GetVAPIDPublicKey returns the VAPID public key together with the event
// kinds a front-desk browser can subscribe to.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"public_key":  h.webpush.VAPIDPublicKey,
		"event_kinds": []model.Status{model.StatusEntered, model.StatusExited},
	})
}
