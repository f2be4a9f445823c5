// Package log 提供进程级的 zap SugaredLogger 以及一组包级便捷函数。
// Init 之前的调用落到 no-op logger 上，单元测试无需初始化日志。
package log

import (
	"fmt"
	"os"
	"path/filepath"

	"diof-search/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logFileName 是 output_path 目录下的日志文件名。
const logFileName = "diof-search.log"

var sugar = zap.NewNop().Sugar()

// Init 按配置替换全局 logger。level 无法解析时按 info 处理。
func Init(cfg config.LogConfig) error {
	zc, err := buildConfig(cfg)
	if err != nil {
		return err
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("构建 logger 失败: %w", err)
	}
	sugar = logger.Sugar()
	return nil
}

func buildConfig(cfg config.LogConfig) (zap.Config, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Encoding = "json"
	if cfg.Format == "console" {
		zc.Encoding = "console"
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.OutputPaths = []string{"stdout"}
	if cfg.OutputPath != "" {
		if err := os.MkdirAll(cfg.OutputPath, 0o755); err != nil {
			return zc, fmt.Errorf("创建日志目录 %s 失败: %w", cfg.OutputPath, err)
		}
		zc.OutputPaths = append(zc.OutputPaths, filepath.Join(cfg.OutputPath, logFileName))
	}
	return zc, nil
}

func Info(msg string)                             { sugar.Info(msg) }
func Infof(template string, args ...interface{})  { sugar.Infof(template, args...) }
func Debugf(template string, args ...interface{}) { sugar.Debugf(template, args...) }
func Warnf(template string, args ...interface{})  { sugar.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { sugar.Errorf(template, args...) }
func Fatalf(template string, args ...interface{}) { sugar.Fatalf(template, args...) }

// Infow 和 Warnw 记录键值对形式的结构化日志，供访问日志等场景使用。
func Infow(msg string, keysAndValues ...interface{}) { sugar.Infow(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...interface{}) { sugar.Warnw(msg, keysAndValues...) }

// Error 和 Fatal 把 err 作为 "error" 字段附加在消息上。Fatal 随后退出进程。
func Error(msg string, err error) { sugar.Errorw(msg, "error", err) }
func Fatal(msg string, err error) { sugar.Fatalw(msg, "error", err) }

// Sync 刷新缓冲区，进程退出前调用。
func Sync() {
	_ = sugar.Sync()
}
