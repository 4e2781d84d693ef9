// Package web provides the HTTP server for go-helloweb
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/itay/go-helloweb/internal/applog"
	"github.com/itay/go-helloweb/internal/config"
)

// WebServer represents the web server
type WebServer struct {
	Router    *gin.Engine
	Config    *config.WebConfig
	Sink      *applog.Sink
	StartTime time.Time // Set when Start is called

	mux sync.Mutex // guards srv and StartTime
	srv *http.Server
}

// NewServer creates a new web server instance.
// Access log lines go to accessLog, nil means gin.DefaultWriter.
func NewServer(webconfig *config.WebConfig, sink *applog.Sink, accessLog io.Writer) *WebServer {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)
	if accessLog == nil {
		accessLog = gin.DefaultWriter
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Configure Gin to trust reverse proxy headers
	router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}

	server := &WebServer{
		Router: router,
		Config: webconfig,
		Sink:   sink,
	}

	router.Use(server.ApacheLogFormat(accessLog))
	router.Use(secure.New(secureConfig))
	router.Use(server.ReverseProxyMiddleware())

	server.setupRoutes()
	return server
}

// setupRoutes configures the fixed route table
func (s *WebServer) setupRoutes() {
	s.Router.GET("/", s.homePage)
	s.Router.HEAD("/", s.homePage)

	// Kubernetes style probes
	s.Router.GET("/health", s.healthProbe)
	s.Router.HEAD("/health", s.healthProbe)
	s.Router.GET("/ready", s.readyProbe)
	s.Router.HEAD("/ready", s.readyProbe)
}

// Start starts the web server with SSL support if configured.
// It blocks until the server stops and returns http.ErrServerClosed after Shutdown.
func (s *WebServer) Start() error {
	addr := s.Config.Addr()
	if s.Config.SSL && (s.Config.CertFile == "" || s.Config.KeyFile == "") {
		return errors.New("SSL enabled but cert_file or key_file not specified in config")
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mux.Lock()
	s.StartTime = time.Now()
	s.srv = srv
	s.mux.Unlock()

	if s.Config.SSL {
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		return srv.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	}
	log.Printf("[WEB]: Starting HTTP server on %s", addr)
	return srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.mux.Lock()
	srv, started := s.srv, s.StartTime
	s.mux.Unlock()
	if srv == nil {
		return nil
	}
	log.Printf("[WEB]: Shutting down HTTP server (uptime %s)", time.Since(started).Round(time.Second))
	return srv.Shutdown(ctx)
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Handle X-Forwarded-Proto to detect if the original request was HTTPS
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}

		// Handle X-Forwarded-Host to get the original host
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = strings.TrimSpace(strings.Split(host, ",")[0])
		}

		c.Next()
	}
}

// ApacheLogFormat writes one combined-log-format line per request
func (s *WebServer) ApacheLogFormat(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		Formatter: func(param gin.LogFormatterParams) string {
			status := fmt.Sprintf("%d", param.StatusCode)
			if param.IsOutputColor() {
				status = param.StatusCodeColor() + status + param.ResetColor()
			}
			return fmt.Sprintf(`%s - - [%s] "%s %s %s" %s %d "%s" "%s"`+"\n",
				param.ClientIP,
				param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
				param.Method,
				param.Path,
				param.Request.Proto,
				status,
				param.BodySize,
				param.Request.Referer(),
				param.Request.UserAgent(),
			)
		},
	})
}
