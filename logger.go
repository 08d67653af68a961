/*
File: logger.go
Version: 2.0.1
Description: Leveled logging on log/slog with console and file outputs.
             Records are handed to a buffered channel and written by a single goroutine,
             so request handlers never block on log I/O.
             UPDATED: Re-initialising keeps the newly opened log file and closes the previous one.
*/

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Global logger instance
var logger *slog.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// Cached level for fast checks
var currentLevel slog.Level = slog.LevelInfo

var (
	logBuffer  chan slog.Record
	logWg      sync.WaitGroup
	logDone    chan struct{}
	logFile    *os.File
	asyncReady bool
)

const logBufferSize = 8192

// InitLogger replaces the default logger according to cfg.
func InitLogger(cfg LoggingConfig) error {
	var handlers []slog.Handler
	var newFile *os.File

	lvl := parseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: lvl}
	jsonFormat := strings.EqualFold(cfg.Format, "json")

	newHandler := func(f *os.File) slog.Handler {
		if jsonFormat {
			return slog.NewJSONHandler(f, opts)
		}
		return slog.NewTextHandler(f, opts)
	}

	for _, output := range cfg.Outputs {
		switch strings.ToLower(strings.TrimSpace(output)) {
		case "console":
			handlers = append(handlers, newHandler(os.Stderr))
		case "file":
			if cfg.File.Path == "" {
				return fmt.Errorf("file logging enabled but no path specified")
			}
			perm := os.FileMode(0644)
			if cfg.File.Permissions > 0 {
				perm = os.FileMode(cfg.File.Permissions)
			}
			f, err := os.OpenFile(cfg.File.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, perm)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			newFile = f
			handlers = append(handlers, newHandler(f))
		default:
			if newFile != nil {
				newFile.Close()
			}
			return fmt.Errorf("unknown log output %q", output)
		}
	}

	if len(handlers) == 0 {
		handlers = append(handlers, newHandler(os.Stderr))
	}

	var finalHandler slog.Handler = handlers[0]
	if len(handlers) > 1 {
		finalHandler = &MultiHandler{handlers: handlers}
	}

	// Re-initialization drains the previous writer (and closes its file) first.
	ShutdownLogger()
	logFile = newFile

	logBuffer = make(chan slog.Record, logBufferSize)
	logDone = make(chan struct{})
	buffer, done := logBuffer, logDone

	logWg.Add(1)
	go func() {
		defer logWg.Done()
		processLogs(finalHandler, buffer, done)
	}()
	asyncReady = true
	currentLevel = lvl

	logger = slog.New(&AsyncHandler{handler: finalHandler, buffer: buffer})
	slog.SetDefault(logger)
	return nil
}

func processLogs(h slog.Handler, buffer chan slog.Record, done chan struct{}) {
	ctx := context.Background()
	for {
		select {
		case record := <-buffer:
			_ = h.Handle(ctx, record)
		case <-done:
			for {
				select {
				case record := <-buffer:
					_ = h.Handle(ctx, record)
				default:
					return
				}
			}
		}
	}
}

// ShutdownLogger flushes buffered records. Safe to call more than once.
func ShutdownLogger() {
	if !asyncReady {
		return
	}
	asyncReady = false
	close(logDone)
	logWg.Wait()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	// Anything logged after shutdown goes straight to stderr.
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: currentLevel}))
}

// AsyncHandler queues records for the writer goroutine, dropping them when the buffer is full.
type AsyncHandler struct {
	handler slog.Handler
	buffer  chan slog.Record
}

func (h *AsyncHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	select {
	case h.buffer <- r.Clone():
	default:
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{handler: h.handler.WithAttrs(attrs), buffer: h.buffer}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{handler: h.handler.WithGroup(name), buffer: h.buffer}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MultiHandler fans a record out to several handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func (m *MultiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}

func IsDebugEnabled() bool {
	return currentLevel <= slog.LevelDebug
}

// --- printf-style wrappers ---

func logWithCaller(level slog.Level, format string, v ...interface{}) {
	if logger == nil || !logger.Enabled(context.Background(), level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, v...), pcs[0])
	_ = logger.Handler().Handle(context.Background(), r)
}

func LogDebug(format string, v ...interface{}) {
	logWithCaller(slog.LevelDebug, format, v...)
}

func LogInfo(format string, v ...interface{}) {
	logWithCaller(slog.LevelInfo, format, v...)
}

func LogWarn(format string, v ...interface{}) {
	logWithCaller(slog.LevelWarn, format, v...)
}

func LogError(format string, v ...interface{}) {
	logWithCaller(slog.LevelError, format, v...)
}

// LogFatal logs at error level, flushes the buffer and exits with status 1.
func LogFatal(format string, v ...interface{}) {
	logWithCaller(slog.LevelError, format, v...)
	ShutdownLogger()
	os.Exit(1)
}
