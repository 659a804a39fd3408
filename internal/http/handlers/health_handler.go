package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Readiness reports whether the service can answer vehicle queries.
type Readiness interface {
	Ready() bool
}

func Healthz(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func Readyz(r Readiness) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Ready() {
			writeError(c, http.StatusServiceUnavailable, "no vehicle snapshot yet")
			return
		}
		c.String(http.StatusOK, "OK")
	}
}
