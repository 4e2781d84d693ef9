// Package config provides configuration management for go-helloweb.
package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"sync"
	"time"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Default web listener
	DefaultListenAddr = "0.0.0.0"
	DefaultListenPort = 5000

	// Default log sink
	DefaultLogDir   = "logs"
	DefaultLogFile  = "app.log"
	DefaultLogLevel = "INFO"

	// Graceful shutdown budget for in-flight requests
	DefaultShutdownTimeout = 10 * time.Second
)

// MainConfig holds the main configuration for go-helloweb
type MainConfig struct {
	// Mutex for thread-safe access
	mux sync.Mutex `json:"-"`

	// Web server settings
	Web *WebConfig `json:"web"`

	// Application log file settings
	Log *LogConfig `json:"log"`

	// Optional pprof listener, empty disables it
	PprofAddr string `json:"pprof_addr"`

	AppVersion string `json:"app_version"` // Application version, set at build time
}

// WebConfig holds web listener configuration
type WebConfig struct {
	ListenAddr      string        `json:"listen_addr"`
	ListenPort      int           `json:"listen_port"`
	SSL             bool          `json:"ssl"`
	CertFile        string        `json:"cert_file,omitempty"`
	KeyFile         string        `json:"key_file,omitempty"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// LogConfig holds the application log file configuration
type LogConfig struct {
	Dir   string `json:"dir"`
	File  string `json:"file"`
	Level string `json:"level"` // minimum level written: DEBUG, INFO, WARNING, ERROR
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	maincfg := &MainConfig{
		AppVersion: AppVersion,
		Web: &WebConfig{
			ListenAddr:      DefaultListenAddr,
			ListenPort:      DefaultListenPort,
			SSL:             false,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: &LogConfig{
			Dir:   DefaultLogDir,
			File:  DefaultLogFile,
			Level: DefaultLogLevel,
		},
	}

	maincfg.mux.Lock()
	log.Printf("MainConfig initialized: web=%s log=%s", maincfg.Web.Addr(), maincfg.Log.Path())
	maincfg.mux.Unlock()
	return maincfg
}

// Validate checks the whole configuration before anything is started
func (c *MainConfig) Validate() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.Web == nil || c.Log == nil {
		return errors.New("config: web and log sections are required")
	}
	if err := c.Web.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

// Addr returns host:port for net.Listen
func (w *WebConfig) Addr() string {
	return net.JoinHostPort(w.ListenAddr, fmt.Sprintf("%d", w.ListenPort))
}

func (w *WebConfig) Validate() error {
	if w.ListenPort < 1 || w.ListenPort > 65535 {
		return fmt.Errorf("config: invalid port number: %d (must be between 1 and 65535)", w.ListenPort)
	}
	if w.SSL && (w.CertFile == "" || w.KeyFile == "") {
		return errors.New("config: SSL enabled but cert_file or key_file not specified")
	}
	return nil
}

// Path returns the full path of the log file
func (l *LogConfig) Path() string {
	return filepath.Join(l.Dir, l.File)
}

func (l *LogConfig) Validate() error {
	if l.Dir == "" {
		return errors.New("config: log dir must not be empty")
	}
	if l.File == "" || filepath.Base(l.File) != l.File {
		return fmt.Errorf("config: invalid log file name: %q", l.File)
	}
	return nil
}
