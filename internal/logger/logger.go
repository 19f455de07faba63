// Package logger 基于zap构建结构化日志器。
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建日志器实例。
// env 决定采样与调用方信息；level/encoding 来自配置；
// service/version 作为固定字段附加到每条日志。
func New(env, level, encoding, service, version string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	switch encoding {
	case "json", "console":
		cfg.Encoding = encoding
	default:
		return nil, fmt.Errorf("unknown log encoding: %s", encoding)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lg, err := cfg.Build(zap.Fields(
		zap.String("service", service),
		zap.String("version", version),
	))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return lg, nil
}
