// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edumarques81/stellar-coverart/internal/config"
)

// Setup installs the global logger: a console writer on stderr and, when a
// file path is configured, a size-rotated log file. The returned closer
// flushes the file writer and is safe to call when no file is used.
func Setup(cfg config.LoggingConfig, debug bool) io.Closer {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	if cfg.FilePath == "" {
		log.Logger = log.Output(console)
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.FileMaxSizeMB,
		MaxBackups: cfg.FileMaxFiles,
		MaxAge:     cfg.FileMaxAgeDays,
		Compress:   true,
	}
	log.Logger = log.Output(zerolog.MultiLevelWriter(console, file))
	return file
}

// ParseLevel maps a config level name to a zerolog level; unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
