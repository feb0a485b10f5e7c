package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Logger writes timestamped log lines to ~/.local/share/quill/quill.log.
// A nil *Logger or one that failed to open its file is safe to use; it
// drops everything.
type Logger struct {
	log  *logrus.Logger
	file *os.File
}

// logFilePath returns the path to the quill log file.
func logFilePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "quill.log"), nil
}

// LogPath returns the log file path (for tools to read).
func LogPath() string {
	p, err := logFilePath()
	if err != nil {
		return ""
	}
	return p
}

// NewLogger creates a logger that appends to ~/.local/share/quill/quill.log.
func NewLogger() *Logger {
	l := &Logger{}

	p, err := logFilePath()
	if err != nil {
		return l
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return l
	}

	l.file = f
	l.log = newLogrus(f)
	return l
}

// NewLoggerTo creates a logger writing to w. Used by tests.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{log: newLogrus(w)}
}

func newLogrus(w io.Writer) *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(w)
	lg.SetLevel(logrus.DebugLevel)
	lg.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		DisableColors:   true,
	})
	return lg
}

// Printf writes an info-level log line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Infof(format, args...)
}

// Warnf writes a warning-level log line.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Warnf(format, args...)
}

// Close closes the log file.
func (l *Logger) Close() {
	if l != nil && l.file != nil {
		l.file.Close()
	}
}
