package logging

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger
type Logger struct {
	*zap.Logger
}

// Config holds logging configuration
type Config struct {
	// Level is the log level (debug, info, warn, error)
	Level string
	// Format is the log format (json or console)
	Format string
	// Development enables development mode: console output, caller and stack traces
	Development bool
	// OutputPaths is a list of paths to write logs to
	OutputPaths []string
}

// DefaultConfig returns a default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) (*Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(config.Format)
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "console" {
		return nil, fmt.Errorf("logging: unknown format %q", config.Format)
	}

	var encoderConfig zapcore.EncoderConfig
	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	outputs := config.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       config.Development,
		DisableCaller:     !config.Development,
		DisableStacktrace: !config.Development,
		Encoding:          format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

// NewNoOpLogger creates a logger that discards all logs
func NewNoOpLogger() *Logger {
	return &Logger{zap.NewNop()}
}

// ParseLevel converts a level name to a zapcore.Level. An empty name is info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", level)
	}
}

// With creates a child logger with additional fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named creates a child logger with a name
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

// Ledger field helpers, so every component logs the same keys.

func Owner(id uuid.UUID) zap.Field    { return zap.Stringer("owner_id", id) }
func TxID(id uuid.UUID) zap.Field     { return zap.Stringer("tx_id", id) }
func Op(op string) zap.Field          { return zap.String("op", op) }
func ErrorKind(kind string) zap.Field { return zap.String("error_kind", kind) }
func Shape(s fmt.Stringer) zap.Field  { return zap.Stringer("shape", s) }

var global atomic.Pointer[Logger]

func init() {
	global.Store(NewNoOpLogger())
}

// SetGlobal sets the global logger instance. A nil logger resets it to no-op.
func SetGlobal(logger *Logger) {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	global.Store(logger)
}

// L returns the global logger instance
func L() *Logger {
	return global.Load()
}
