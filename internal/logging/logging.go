// Package logging provides the application logger built on logrus,
// with optional file output rotated by lumberjack.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDirName  = "logs"
	logFileName = "stashy.log"

	logMaxSizeMB  = 20
	logMaxBackups = 3
	logMaxAgeDays = 14
)

// SetupBaseLogger configures the global logrus instance with the
// formatter and level used across all commands. Call once at startup.
func SetupBaseLogger() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logrus.SetOutput(os.Stdout)

	level := logrus.InfoLevel
	if raw := os.Getenv("STASHY_LOG_LEVEL"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	logrus.SetLevel(level)
}

// ConfigureLogOutput switches log output to a rotated file when toFile
// is true. Console output is kept alongside the file so interactive
// runs stay readable.
func ConfigureLogOutput(toFile bool) error {
	if !toFile {
		logrus.SetOutput(os.Stdout)
		return nil
	}

	dir := logDirName
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, rotated))
	return nil
}

// Thin forwarding layer so callers can import this package as `log`
// without touching logrus directly.

func Debug(args ...any)                 { logrus.Debug(args...) }
func Debugf(format string, args ...any) { logrus.Debugf(format, args...) }
func Info(args ...any)                  { logrus.Info(args...) }
func Infof(format string, args ...any)  { logrus.Infof(format, args...) }
func Warn(args ...any)                  { logrus.Warn(args...) }
func Warnf(format string, args ...any)  { logrus.Warnf(format, args...) }
func Error(args ...any)                 { logrus.Error(args...) }
func Errorf(format string, args ...any) { logrus.Errorf(format, args...) }
func Fatalf(format string, args ...any) { logrus.Fatalf(format, args...) }

// WithError returns an entry with the error attached as a field.
func WithError(err error) *logrus.Entry { return logrus.WithError(err) }

// WithField returns an entry with a single field attached.
func WithField(key string, value any) *logrus.Entry { return logrus.WithField(key, value) }
