// Web server for go-helloweb: homepage plus liveness and readiness probes
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/itay/go-helloweb/internal/applog"
	"github.com/itay/go-helloweb/internal/config"
	"github.com/itay/go-helloweb/internal/web"
	"golang.org/x/term"
)

var (
	// command-line flags
	webaddr     string
	webport     int
	webssl      bool
	webcertFile string
	webkeyFile  string
	logDir      string
	logFile     string
	logLevel    string
	pprofAddr   string
)

var Prof *prof.Profiler

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&webaddr, "webaddr", config.DefaultListenAddr, "Web server bind address")
	flag.IntVar(&webport, "webport", config.DefaultListenPort, "Web server port")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&logDir, "logdir", config.DefaultLogDir, "Directory for the application log (created if absent)")
	flag.StringVar(&logFile, "logfile", config.DefaultLogFile, "Application log file name inside -logdir")
	flag.StringVar(&logLevel, "loglevel", config.DefaultLogLevel, "Minimum level written to the application log: DEBUG, INFO, WARNING, ERROR")
	flag.StringVar(&pprofAddr, "pprof", "", "Serve pprof on this address (e.g. 127.0.0.1:51111), empty disables")
	flag.Parse()

	log.Printf("Starting go-helloweb: Web Server (version: %s)", appVersion)
	mainConfig := config.NewDefaultConfig()

	// Override config with command-line flags
	mainConfig.Web.ListenAddr = webaddr
	mainConfig.Web.ListenPort = webport
	if webssl {
		mainConfig.Web.SSL = true
		mainConfig.Web.CertFile = webcertFile
		mainConfig.Web.KeyFile = webkeyFile
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	mainConfig.Log.Dir = logDir
	mainConfig.Log.File = logFile
	mainConfig.Log.Level = logLevel
	mainConfig.PprofAddr = pprofAddr

	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: Invalid configuration: %v", err)
	}
	log.Printf("[WEB]: Using WEB configuration: %#v", *mainConfig.Web)

	// The log sink must work before any traffic is served
	sink, err := applog.Open(mainConfig.Log)
	if err != nil {
		log.Fatalf("[WEB]: Failed to initialize application log: %v", err)
	}
	log.Printf("[WEB]: Application log: %s (level %s)", sink.Path(), sink.Level())

	if mainConfig.PprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(mainConfig.PprofAddr)
		log.Printf("[WEB]: pprof listening on %s", mainConfig.PprofAddr)
	}

	// Colored access log only when a human is watching
	if term.IsTerminal(int(os.Stdout.Fd())) {
		gin.ForceConsoleColor()
	} else {
		gin.DisableConsoleColor()
	}

	server := web.NewServer(mainConfig.Web, sink, os.Stdout)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start web server in goroutine to make it non-blocking
	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			webServerErrChan <- err
		}
	}()

	log.Printf("[WEB]: Server started. Press Ctrl+C to gracefully shutdown...")

	select {
	case sig := <-sigChan:
		log.Printf("[WEB]: Received %s, initiating graceful shutdown...", sig)
	case err := <-webServerErrChan:
		sink.Error("web server failed: %v", err)
		sink.Close()
		log.Fatalf("[WEB]: Failed to start web server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mainConfig.Web.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error during shutdown: %v", err)
	}
	if err := sink.Close(); err != nil {
		log.Printf("[WEB]: Error closing application log: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
} // end main
