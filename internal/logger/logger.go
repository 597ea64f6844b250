package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dylanmazurek/debridify/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	once    sync.Once
	_logger zerolog.Logger

	writerOnce sync.Once
	fileWriter io.Writer
)

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return lvl
}

// logFile returns the shared rotating file writer, or nil when no config
// directory is set.
func logFile(cfg *config.Config) io.Writer {
	writerOnce.Do(func() {
		if cfg.Path == "" {
			return
		}

		if err := os.MkdirAll(filepath.Dir(cfg.LogFile()), 0755); err != nil {
			return
		}

		fileWriter = &lumberjack.Logger{
			Filename:   cfg.LogFile(),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		}
	})

	return fileWriter
}

// NewWithWriter builds a logger tagged with prefix that writes to w only.
func NewWithWriter(prefix string, level zerolog.Level, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("logger", prefix).
		Logger()
}

func New(prefix string) zerolog.Logger {
	cfg := config.Get()

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return "[" + prefix + "] " + i.(string)
		},
	}

	var w io.Writer = console
	if f := logFile(cfg); f != nil {
		w = zerolog.MultiLevelWriter(console, f)
	}

	return zerolog.New(w).
		Level(parseLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("logger", prefix).
		Logger()
}

func Default() zerolog.Logger {
	once.Do(func() {
		_logger = New("debridify")
	})

	return _logger
}
