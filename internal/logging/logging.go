package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide logger. Production JSON config with millisecond
// timestamps; every line carries the service name.
func New(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	lg, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return lg.With(zap.String("service", service))
}
