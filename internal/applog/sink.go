// Package applog provides the append-only application log file for go-helloweb.
package applog

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/itay/go-helloweb/internal/config"
)

// Level orders log lines by severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel accepts DEBUG, INFO, WARNING (or WARN) and ERROR, case insensitive
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("applog: unknown log level %q", s)
}

// Sink is a single mutex-guarded writer on an O_APPEND file.
// Every line reaches the file with exactly one write call.
type Sink struct {
	mux    sync.Mutex
	file   *os.File
	logger *log.Logger
	level  Level
	path   string
	closed bool
}

// Open creates the log directory if absent and opens the log file for appending
func Open(cfg *config.LogConfig) (*Sink, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("applog: failed to create log directory %s: %w", cfg.Dir, err)
	}
	path := cfg.Path()
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("applog: failed to open log file %s: %w", path, err)
	}
	return &Sink{
		file:   file,
		logger: log.New(file, "", log.LstdFlags),
		level:  level,
		path:   path,
	}, nil
}

// Path returns the log file path
func (s *Sink) Path() string {
	return s.path
}

// Level returns the minimum level written to the file
func (s *Sink) Level() Level {
	return s.level
}

// Log writes one line if lvl passes the minimum level.
// Lines written after Close are dropped.
func (s *Sink) Log(lvl Level, format string, args ...interface{}) {
	if lvl < s.level {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	// one line per call, embedded newlines would break line counting
	msg = strings.ReplaceAll(msg, "\n", " ")

	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		return
	}
	if err := s.logger.Output(2, lvl.String()+": "+msg); err != nil {
		log.Printf("[APPLOG]: write to %s failed: %v", s.path, err)
	}
}

func (s *Sink) Debug(format string, args ...interface{}) { s.Log(LevelDebug, format, args...) }

func (s *Sink) Info(format string, args ...interface{}) { s.Log(LevelInfo, format, args...) }

func (s *Sink) Warning(format string, args ...interface{}) { s.Log(LevelWarning, format, args...) }

func (s *Sink) Error(format string, args ...interface{}) { s.Log(LevelError, format, args...) }

// Close flushes and closes the file, safe to call more than once
func (s *Sink) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.file.Sync(); err != nil {
		log.Printf("[APPLOG]: sync %s failed: %v", s.path, err)
	}
	return s.file.Close()
}
