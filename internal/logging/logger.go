// Package logging provides categorized file-based logging for planforge.
// Logs are written to .planforge/logs/ with a separate file per pipeline
// stage. Logging is a silent no-op until Initialize enables it.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category identifies a pipeline stage or subsystem.
type Category string

const (
	CategoryPlan        Category = "plan"        // Normalization of raw model output
	CategoryMaterialize Category = "materialize" // File writing
	CategoryStack       Category = "stack"       // Stack detection
	CategoryBuild       Category = "build"       // Install/build strategies
	CategoryLauncher    Category = "launcher"    // Launcher synthesis
	CategoryApply       Category = "apply"       // Orchestration
	CategoryWatch       Category = "watch"       // Drop-folder watcher
	CategoryHistory     Category = "history"     // Apply-history store
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger wraps a standard logger with a category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	enabled   bool
	logLevel  = LevelInfo
)

// Initialize sets up the logging directory. Call once at startup; when
// debug is false every logger stays a no-op.
func Initialize(workdir string, debug bool, level string) error {
	if workdir == "" {
		return fmt.Errorf("workdir path required")
	}
	enabled = debug
	if !enabled {
		return nil
	}

	switch level {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	logsDir = filepath.Join(workdir, ".planforge", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	Get(CategoryApply).Info("=== planforge logging initialized ===")
	Get(CategoryApply).Info("Logs directory: %s", logsDir)
	return nil
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger when logging is disabled.
func Get(category Category) *Logger {
	if !enabled || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a plain delete-old-files job.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions for the categories used on hot paths.

// Build logs to the build category.
func Build(format string, args ...interface{}) {
	Get(CategoryBuild).Info(format, args...)
}

// BuildDebug logs debug to the build category.
func BuildDebug(format string, args ...interface{}) {
	Get(CategoryBuild).Debug(format, args...)
}

// BuildWarn logs warning to the build category.
func BuildWarn(format string, args ...interface{}) {
	Get(CategoryBuild).Warn(format, args...)
}

// Apply logs to the apply category.
func Apply(format string, args ...interface{}) {
	Get(CategoryApply).Info(format, args...)
}

// ApplyDebug logs debug to the apply category.
func ApplyDebug(format string, args ...interface{}) {
	Get(CategoryApply).Debug(format, args...)
}

// ApplyWarn logs warning to the apply category.
func ApplyWarn(format string, args ...interface{}) {
	Get(CategoryApply).Warn(format, args...)
}

// Plan logs to the plan category.
func Plan(format string, args ...interface{}) {
	Get(CategoryPlan).Info(format, args...)
}

// PlanWarn logs warning to the plan category.
func PlanWarn(format string, args ...interface{}) {
	Get(CategoryPlan).Warn(format, args...)
}

// Timer helps measure stage duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
