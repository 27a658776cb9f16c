package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Init builds the process logger and installs it as zap's global. Only the
// first call has an effect. format is "json" (default) or "console".
func Init(level, format string) error {
	var err error
	once.Do(func() {
		globalLogger, err = newLogger(level, format)
		if err == nil {
			zap.ReplaceGlobals(globalLogger)
		}
	})
	return err
}

// Get returns the process logger, initialising it from LOG_LEVEL and
// LOG_FORMAT when Init was never called.
func Get() *zap.Logger {
	if globalLogger == nil {
		if err := Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")); err != nil || globalLogger == nil {
			return zap.NewNop()
		}
	}
	return globalLogger
}

// Component returns the global logger tagged with a component name.
func Component(name string) *zap.Logger {
	return Get().With(zap.String("component", name))
}

func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

func newLogger(level, format string) (*zap.Logger, error) {
	return buildConfig(level, format).Build()
}

func buildConfig(level, format string) zap.Config {
	zapLevel := zapcore.InfoLevel
	if level != "" {
		if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
			zapLevel = zapcore.InfoLevel
		}
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.LevelKey = "level"
		cfg.EncoderConfig.CallerKey = "caller"
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
