// Package logger bootstraps the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.Logger
var sugar *zap.SugaredLogger

// Init configures the global logger. env is "dev" or "prod"; level is a
// zap level name ("debug", "info", ...).
func Init(service, env, level string) {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	base = l
	sugar = l.Sugar()
	sugar.Infow("logger initialized", "service", service, "env", env, "level", level)
}

// L returns the structured logger for hot paths.
func L() *zap.Logger {
	if base == nil {
		Init("pardo", "dev", "info")
	}
	return base
}

// S returns the sugared logger.
func S() *zap.SugaredLogger {
	if sugar == nil {
		Init("pardo", "dev", "info")
	}
	return sugar
}
