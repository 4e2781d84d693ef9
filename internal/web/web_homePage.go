// Package web provides the HTTP server for go-helloweb
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	HomePageBody       = "Hello, World! By Itay"
	HomePageLogMessage = "Homepage was accessed."
)

// homePage handles "/" and records one line per request in the application log
func (s *WebServer) homePage(c *gin.Context) {
	if s.Sink != nil {
		s.Sink.Info(HomePageLogMessage)
	}
	c.String(http.StatusOK, HomePageBody)
}
