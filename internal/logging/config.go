package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Supported record formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config describes where and how log records are written.
type Config struct {
	// Level is one of error, warn, info, debug, trace.
	Level string

	// Format is "text" or "json".
	Format string

	// FilePath enables a rotating log file next to stderr when set.
	FilePath string

	// MaxSize is the size in megabytes at which the log file is rotated.
	MaxSize int

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int

	// MaxAge is the number of days to keep rotated files.
	MaxAge int

	// Compress gzips rotated files.
	Compress bool
}

// ParseLevel converts a level name (case-insensitive) to a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(level) {
	case "ERROR":
		return LevelError, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "INFO", "":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	case "TRACE":
		return LevelTrace, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Configure replaces the sink of the default logger, and therefore of every
// handle derived from it with WithPrefix.
func Configure(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	var closer io.Closer
	if cfg.FilePath != "" {
		if dir := filepath.Dir(cfg.FilePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		file := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(os.Stderr, file)
		closer = file
	}

	logger := GetLogger()
	logger.sink.mu.Lock()
	previous := logger.sink.closer
	logger.sink.handler = newHandler(w, cfg.Format)
	logger.sink.closer = closer
	logger.sink.level = level
	logger.sink.mu.Unlock()

	if previous != nil {
		return previous.Close()
	}
	return nil
}

// Close releases the log file opened by Configure, if any.
func Close() error {
	logger := GetLogger()
	logger.sink.mu.Lock()
	defer logger.sink.mu.Unlock()

	if logger.sink.closer == nil {
		return nil
	}
	err := logger.sink.closer.Close()
	logger.sink.closer = nil
	logger.sink.handler = newHandler(os.Stderr, FormatText)
	return err
}
