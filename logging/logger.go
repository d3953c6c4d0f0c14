// Package logging builds the zap logger shared by the pdk commands.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flowdas/pdk/config"
)

// New constructs a logger writing to stderr with the configured level and
// encoding.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return build(cfg, zapcore.Lock(os.Stderr))
}

func build(cfg config.LogConfig, out zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(cfg.Level)))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoderCfg.EncodeLevel = func(l zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(strings.ToUpper(l.String()))
		}
		enc = zapcore.NewJSONEncoder(encoderCfg)
	case "console", "":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		enc = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return zap.New(zapcore.NewCore(enc, out, level)), nil
}
