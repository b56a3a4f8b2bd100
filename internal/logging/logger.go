// Package logging wraps zap with Chitti's log.level config knob
// (off|error|warn|info|debug|trace), and exposes the Infof/Warnf/Errorf/
// Debugf surface that pkg/conductor.Logger expects.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps *zap.SugaredLogger; it satisfies pkg/conductor.Logger
// structurally, with no import of pkg/conductor needed here.
type Logger struct {
	*zap.SugaredLogger
	level string
}

// Build constructs a Logger for the given level. "off" returns a Logger
// whose every method is a no-op, wired through zap.NewNop so call sites
// stay uniform.
func Build(level string) (*Logger, error) {
	if level == "off" {
		return &Logger{SugaredLogger: zap.NewNop().Sugar(), level: level}, nil
	}

	zapLevel, err := zapLevelFor(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"

	zl, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build zap logger: %w", err)
	}
	return &Logger{SugaredLogger: zl.Sugar(), level: level}, nil
}

// zapLevelFor maps the config's six-level taxonomy onto zap's, folding
// the unsupported "trace" level down to zap's Debug (zap has no separate
// trace level).
func zapLevelFor(level string) (zapcore.Level, error) {
	switch level {
	case "error":
		return zapcore.ErrorLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "debug", "trace":
		return zapcore.DebugLevel, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", level)
	}
}
