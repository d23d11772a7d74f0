package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sgics/sgics/internal/server/health"
)

type healthHandler struct {
	ready Readiness
}

// Live answers while the process is up.
func (h *healthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": health.StatusOK})
}

// Ready runs the readiness checks; any failure is a 503 naming the check.
// Error details stay in the log.
func (h *healthHandler) Ready(c *gin.Context) {
	if h.ready == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusOK})
		return
	}
	rep := h.ready.Ready(c.Request.Context())
	if !rep.OK() {
		c.JSON(http.StatusServiceUnavailable, rep.Redacted())
		return
	}
	c.JSON(http.StatusOK, rep)
}
