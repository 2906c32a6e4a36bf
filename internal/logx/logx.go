package logx

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 构造结构化日志。
//
// - file 为空：开发模式（console 编码）写 stderr
// - file 非空：生产模式（JSON 编码）同时写 file 与 stderr
//
// stdout 保留给 RunReport JSON，日志一律不写 stdout。
func New(level, file string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.TrimSpace(file) != "" {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{file, "stderr"}
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
	}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	return cfg.Build()
}

// ParseLevel 把配置值映射为 zap 级别；未知值回退 info。
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// OrNop 让可选的 logger 字段总是可用。
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
