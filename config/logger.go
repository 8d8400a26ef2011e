package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var baseLogger = zap.NewNop()

// InitLogger builds the global zap logger. Production gets JSON output with
// ISO8601 timestamps, everything else the colored console encoder.
func InitLogger(cfg *Config) error {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build(zap.Fields(
		zap.String("service", "salonportal"),
		zap.String("environment", cfg.Env),
	))
	if err != nil {
		return err
	}

	baseLogger = l
	zap.ReplaceGlobals(l)
	return nil
}

// Log returns the global logger. It is a no-op logger until InitLogger runs,
// which keeps tests quiet.
func Log() *zap.Logger {
	return baseLogger
}
