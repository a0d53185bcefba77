package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// std is the process-wide logger. Commands that want file output call
// InitLog; everything else writes to stderr with the default formatter.
var (
	std  = logrus.New()
	once sync.Once
	file *os.File
)

func init() {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	std.SetLevel(logrus.InfoLevel)
}

// InitLog redirects the logger to the given file path (in addition to
// stderr). The directory is created if absent.
func InitLog(path string) error {
	var err error
	once.Do(func() {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			err = mkErr
			return
		}
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		std.SetOutput(io.MultiWriter(os.Stderr, file))
	})
	return err
}

// FlushLog closes the log file if one was opened.
func FlushLog() {
	if file != nil {
		_ = file.Sync()
		_ = file.Close()
	}
}

// SetLevel sets the minimum level by name ("debug", "info", "warn", "error").
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	std.SetLevel(parsed)
}

// SetOutput replaces the logger's output writer. Used by tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func Debug(format string, args ...interface{}) {
	std.Debug(sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	std.Info(sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	std.Warn(sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	std.Error(sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	std.Fatal(sprintf(format, args...))
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
