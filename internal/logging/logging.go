// Package logging configures the structured logger shared by every ksense
// component.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config configures a logger.
type Config struct {
	// Level is the minimum level to output ("trace" through "error").
	Level string
	// Format is "text" or "json".
	Format string
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		Output: os.Stderr,
	}
}

// ParseLevel parses a level name, falling back to info for unknown names.
func ParseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// New creates a logger from cfg.
func New(cfg Config) *logrus.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(cfg.Output)
	log.SetLevel(ParseLevel(cfg.Level))

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
			PadLevelText:     true,
		})
	}
	return log
}

// Null returns a logger that discards everything.
func Null() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(DefaultConfig())
)

// Default returns the process-wide logger.
func Default() *logrus.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(log *logrus.Logger) {
	if log == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = log
	defaultMu.Unlock()
}

// Component returns an entry tagged with the component name.
// A nil logger means the process-wide default.
func Component(log logrus.FieldLogger, name string) *logrus.Entry {
	if log == nil {
		log = Default()
	}
	return log.WithField("component", name)
}
