package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"parking/internal/config"
)

// NewLogger builds the process logger: JSON in production, colored console
// output otherwise.
func NewLogger(cfg config.AppConfig) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}

	zc := zap.NewDevelopmentConfig()
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zc.Build()
}
