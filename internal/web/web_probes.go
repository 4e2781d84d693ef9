package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	HealthBody = "OK"
	ReadyBody  = "Ready"
)

// Liveness probe
func (s *WebServer) healthProbe(c *gin.Context) {
	c.String(http.StatusOK, HealthBody)
}

// Readiness probe
func (s *WebServer) readyProbe(c *gin.Context) {
	c.String(http.StatusOK, ReadyBody)
}
