// Package logging holds the process-wide structured logger.
//
// Call Init once at startup; GetLogger falls back to an INFO text logger on
// stderr when Init was never called. Results go to stdout, so logs never do
// unless configured to.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	logger   *slog.Logger
	loggerMu sync.RWMutex
	logFile  *os.File
	isInited bool
)

// LogLevel is the logging verbosity.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// ParseLevel accepts level names in any case.
func ParseLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	case "":
		return LevelInfo, nil
	default:
		return "", errors.Newf("unknown log level %q", s)
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config holds logger configuration.
type Config struct {
	Level      LogLevel
	Format     string // "json" or "text"
	OutputPath string // file to append to; empty logs to Output
	Output     io.Writer
}

// Init replaces the global logger. A previously opened log file is closed.
func Init(config Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	writer := config.Output
	if writer == nil {
		writer = os.Stderr
	}
	var file *os.File
	if config.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o750); err != nil {
			return errors.Wrap(err, "creating log directory")
		}
		var err error
		file, err = os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		writer = file
	}

	opts := &slog.HandlerOptions{Level: config.Level.slogLevel()}
	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "", "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		if file != nil {
			_ = file.Close()
		}
		return errors.Newf("unknown log format %q", config.Format)
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file
	logger = slog.New(handler)
	isInited = true
	return nil
}

// Close closes the log file, if any, and resets the logger to the default.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	var err error
	if logFile != nil {
		err = logFile.Close()
		logFile = nil
	}
	logger = nil
	isInited = false
	return err
}

// GetLogger returns the current logger.
func GetLogger() *slog.Logger {
	loggerMu.RLock()
	if isInited {
		l := logger
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if !isInited {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		isInited = true
	}
	return logger
}

func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }
func Info(msg string, args ...any)  { GetLogger().Info(msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().Warn(msg, args...) }
func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }
