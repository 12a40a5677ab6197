package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"constitution-gpt/internal/config"
)

// New builds the process logger. JSON goes to the rotated file when one is
// configured, console output is kept for local runs.
func New(cfg config.LogConfig, env string) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if cfg.File != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), level))
	}
	if cfg.Console || len(cores) == 0 {
		consoleCfg := encCfg
		var enc zapcore.Encoder
		if env == "prod" {
			enc = zapcore.NewJSONEncoder(consoleCfg)
		} else {
			consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
			enc = zapcore.NewConsoleEncoder(consoleCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
