// Package logging provides file-based logging for adw.
// It outputs logs to a global log file (agents/adw.log) and to a per-run
// execution log (agents/<run>/adw_test/execution.log).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/runoshun/adw/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger wraps slog.Logger with file-based output support.
// Fields are ordered to minimize memory padding.
type Logger struct {
	globalFile *os.File
	runFiles   map[string]*os.File
	console    *slog.Logger
	now        func() time.Time
	agentsDir  string
	mu         sync.Mutex
	level      slog.Level
}

// New creates a new Logger that writes under agentsDir.
// If agentsDir is empty, file logging is disabled.
func New(agentsDir string, level slog.Level) *Logger {
	return &Logger{
		agentsDir: agentsDir,
		level:     level,
		runFiles:  make(map[string]*os.File),
		now:       time.Now,
	}
}

// WithConsole mirrors every entry at or above the logger's level to w.
func (l *Logger) WithConsole(w io.Writer) *Logger {
	l.console = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l.level}))
	return l
}

// ParseLevel maps a [log].level value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	// G302: Log files are append-only and need read access by repository users
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
}

// ensureGlobalFile opens or returns the global log file.
func (l *Logger) ensureGlobalFile() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.globalFile != nil {
		return l.globalFile, nil
	}
	f, err := openAppend(domain.GlobalLogPath(l.agentsDir))
	if err != nil {
		return nil, fmt.Errorf("open global log file: %w", err)
	}
	l.globalFile = f
	return f, nil
}

// ensureRunFile opens or returns the run log file.
func (l *Logger) ensureRunFile(runID string) (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.runFiles[runID]; ok {
		return f, nil
	}
	f, err := openAppend(domain.RunLogPath(l.agentsDir, runID))
	if err != nil {
		return nil, fmt.Errorf("open run log file: %w", err)
	}
	l.runFiles[runID] = f
	return f, nil
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.runFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.runFiles, id)
	}
	return lastErr
}

// formatLog formats a log entry in the specified format.
// Format: [2025-12-30 09:32:51] [INFO] [abcd1234] [category] message
func formatLog(t time.Time, level slog.Level, runID, category, msg string) string {
	runStr := runID
	if runStr == "" {
		runStr = "global"
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		level.String(),
		runStr,
		category,
		msg,
	)
}

// log writes a log entry to appropriate files based on runID.
// An empty runID logs only to the global log.
func (l *Logger) log(level slog.Level, runID, category, msg string) {
	if level < l.level {
		return
	}

	if l.console != nil {
		attrs := []any{slog.String("category", category)}
		if runID != "" {
			attrs = append(attrs, slog.String("run", runID))
		}
		l.console.Log(context.Background(), level, msg, attrs...)
	}

	if l.agentsDir == "" {
		return
	}

	entry := formatLog(l.now(), level, runID, category, msg)

	if gf, err := l.ensureGlobalFile(); err == nil {
		_, _ = io.WriteString(gf, entry)
	}
	if runID != "" {
		if rf, err := l.ensureRunFile(runID); err == nil {
			_, _ = io.WriteString(rf, entry)
		}
	}
}

// Info logs an info message.
func (l *Logger) Info(runID, category, msg string) {
	l.log(slog.LevelInfo, runID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(runID, category, msg string) {
	l.log(slog.LevelDebug, runID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(runID, category, msg string) {
	l.log(slog.LevelWarn, runID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(runID, category, msg string) {
	l.log(slog.LevelError, runID, category, msg)
}
