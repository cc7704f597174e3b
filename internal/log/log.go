// Package log wraps logrus behind a small interface shared by every component.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"firestige.xyz/ttlmangle/internal/config"
)

type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger = newDefault()
	output *MultiWriter
)

// GetLogger returns the process-wide logger. Before Init it logs text at info to stdout.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process-wide logger according to cfg.
func Init(cfg config.LogConfig) error {
	w := NewMultiWriter().Add(os.Stdout)
	if cfg.File.Enabled {
		w.AddFileAppender(FileAppenderOpt{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.Rotation.MaxSizeMB,
			MaxBackups: cfg.File.Rotation.MaxBackups,
			MaxAge:     cfg.File.Rotation.MaxAgeDays,
			Compress:   cfg.File.Rotation.Compress,
		})
	}

	l, err := New(cfg, w)
	if err != nil {
		return err
	}

	mu.Lock()
	prev := output
	logger, output = l, w
	mu.Unlock()

	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Close releases file appenders opened by Init.
func Close() error {
	mu.Lock()
	w := output
	output = nil
	mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// New builds a logger writing to out with cfg's level and format.
func New(cfg config.LogConfig, out io.Writer) (Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(out)

	switch cfg.Format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: cfg.TimeFormat})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: cfg.TimeFormat})
	case "pattern":
		l.SetFormatter(&formatter{pattern: cfg.Pattern, time: cfg.TimeFormat})
		l.SetReportCaller(true)
	default:
		return nil, fmt.Errorf("unsupported log format: %s (must be text/json/pattern)", cfg.Format)
	}

	return &logrusAdapter{entry: logrus.NewEntry(l)}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}

func newDefault() Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}
