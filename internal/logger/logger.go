package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"firewatch/internal/config"

	"github.com/lmittmann/tint"
	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (debug/info/warning/error) to a colored
// console and to rotating per-level files.
type Logger struct {
	console    *slog.Logger
	infoLog    *slog.Logger
	warningLog *slog.Logger
	errorLog   *slog.Logger
	files      map[string]*lumberjack.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to stdout and to files in cfg.LogDirectory.
func NewLogger(cfg *config.Config) *Logger {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		console: newConsole(os.Stdout, cfg.LogLevel),
		files:   make(map[string]*lumberjack.Logger),
		logDir:  cfg.LogDirectory,
	}
	logger.setupFiles()
	return logger
}

// NewConsoleLogger creates a Logger without log files. Used by the CLI tools.
func NewConsoleLogger(w io.Writer, level string) *Logger {
	return &Logger{console: newConsole(w, level)}
}

func newConsole(w io.Writer, level string) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: time.TimeOnly,
	}))
}

// setupFiles initializes the rotating per-level file loggers.
func (l *Logger) setupFiles() {
	l.infoLog = l.openLogFile(InfoFile)
	l.warningLog = l.openLogFile(WarningFile)
	l.errorLog = l.openLogFile(ErrorFile)
}

func (l *Logger) openLogFile(name string) *slog.Logger {
	file := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, name),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	l.files[name] = file
	return slog.New(slog.NewTextHandler(file, nil))
}

// ParseLevel maps a textual level to slog.Level; unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug writes a formatted debug entry to the console only.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.console.Debug(fmt.Sprintf(format, v...))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console.Info(msg)
	if l.infoLog != nil {
		l.infoLog.Info(msg)
	}
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console.Warn(msg)
	if l.warningLog != nil {
		l.warningLog.Warn(msg)
	}
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console.Error(msg)
	if l.errorLog != nil {
		l.errorLog.Error(msg)
	}
}

// Slog exposes the console logger for libraries that accept a structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.console
}

// Directory returns the log directory, empty for console-only loggers.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return fmt.Errorf("logger has no log directory")
	}

	l.mu.Lock()
	name := filepath.Base(fileName)
	// the rotating writer reopens the file in append mode on next write
	if f, ok := l.files[name]; ok {
		f.Close()
	}
	err := os.Truncate(filepath.Join(l.logDir, name), 0)
	l.mu.Unlock()

	if err != nil && !os.IsNotExist(err) {
		l.Error("Error truncating log file %s: %v", fileName, err)
		return err
	}

	l.Info("Log file %s has been cleared.", fileName)
	return nil
}

// Close flushes and closes the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	for _, f := range l.files {
		err = multierr.Append(err, f.Close())
	}
	return err
}
