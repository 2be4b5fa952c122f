// Package logging 构造 zap 日志并定义诊断输出接口
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink 分级诊断输出
//
// *zap.SugaredLogger 直接满足该接口。解析器和编译器只通过它报告诊断，
// 诊断文本在调用前已经格式化完毕。
type Sink interface {
	Error(args ...interface{})
	Warn(args ...interface{})
	Info(args ...interface{})
}

// Config 日志配置
type Config struct {
	Level    string `toml:"level"`    // debug | info | warn | error
	Encoding string `toml:"encoding"` // console | json
	File     string `toml:"file"`     // 为空时输出到 stderr
}

// DefaultConfig 默认只输出警告及以上
func DefaultConfig() Config {
	return Config{Level: "warn", Encoding: "console"}
}

// New 根据配置构造 zap.Logger
func New(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	} else {
		level = zapcore.WarnLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	zc.DisableCaller = true
	zc.DisableStacktrace = true

	switch cfg.Encoding {
	case "", "console":
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zc.EncoderConfig.TimeKey = ""
	case "json":
		zc.Encoding = "json"
	default:
		return nil, fmt.Errorf("invalid log encoding %q", cfg.Encoding)
	}

	if cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	} else {
		zc.OutputPaths = []string{"stderr"}
		zc.ErrorOutputPaths = []string{"stderr"}
	}

	return zc.Build()
}

// Nop 返回丢弃所有输出的 Sink
func Nop() Sink {
	return zap.NewNop().Sugar()
}
