package utils

import (
	"strings"

	"go.uber.org/zap"
)

// InitLogger builds the application logger. mode "production" (or "prod") selects
// JSON output; anything else gives the colored development encoder.
func InitLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("lms"), nil
}
