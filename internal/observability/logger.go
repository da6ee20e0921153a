package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLogLevel = "info"

// NewLogger builds the JSON zap logger used by every component.
func NewLogger(level string, serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "json"
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		trimmed = defaultLogLevel
	}
	if err := config.Level.UnmarshalText([]byte(trimmed)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(serviceName); name != "" {
		logger = logger.With(zap.String("service", name))
	}
	return logger, nil
}
