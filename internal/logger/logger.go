package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wfunc/hil-runner/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *zap.Logger
	level  = zap.NewAtomicLevel()
	mu     sync.RWMutex

	// 模块日志器
	moduleLoggers map[string]*zap.Logger

	// 控制台输出，标准输出留给设备回显
	consoleWriter io.Writer = os.Stderr
)

// Init 初始化日志系统，可重复调用以应用新配置
func Init(cfg *config.LogConfig) error {
	mu.Lock()
	defer mu.Unlock()

	level.SetLevel(parseLevel(cfg.Level))

	encoder := newEncoder(cfg.Format)

	sinks, err := openSinks(cfg)
	if err != nil {
		return err
	}

	logger = zap.New(
		buildCore(encoder, sinks, level),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	// 初始化模块日志器
	moduleLoggers = make(map[string]*zap.Logger)
	for module, levelStr := range cfg.Modules {
		moduleLoggers[module] = zap.New(
			buildCore(encoder, sinks, parseLevel(levelStr)),
			zap.AddCaller(),
		).Named(module)
	}

	return nil
}

// logSinks 日志输出目标
type logSinks struct {
	console zapcore.WriteSyncer
	file    zapcore.WriteSyncer
	errFile zapcore.WriteSyncer
}

// newEncoder 根据格式选择编码器
func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// openSinks 创建控制台和文件输出
func openSinks(cfg *config.LogConfig) (*logSinks, error) {
	sinks := &logSinks{}

	if cfg.Output == "stderr" || cfg.Output == "both" || cfg.Output == "" {
		sinks.console = zapcore.AddSync(consoleWriter)
	}

	if cfg.Output == "file" || cfg.Output == "both" {
		filename := cfg.File.Filename
		if !filepath.IsAbs(filename) {
			filename = filepath.Join(cfg.File.Path, filename)
		}

		// 确保日志目录存在
		logDir := filepath.Dir(filename)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}

		// 创建文件写入器（支持日志轮转）
		sinks.file = zapcore.AddSync(&lumberjack.Logger{
			Filename:   filename,
			MaxSize:    cfg.File.MaxSize,    // MB
			MaxAge:     cfg.File.MaxAge,     // days
			MaxBackups: cfg.File.MaxBackups, // 保留文件数
			Compress:   cfg.File.Compress,
		})

		// 错误日志单独成文件
		sinks.errFile = zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, "error.log"),
			MaxSize:    cfg.File.MaxSize,
			MaxAge:     cfg.File.MaxAge,
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
		})
	}

	return sinks, nil
}

// buildCore 组合输出核心
func buildCore(encoder zapcore.Encoder, sinks *logSinks, enabler zapcore.LevelEnabler) zapcore.Core {
	var cores []zapcore.Core
	if sinks.console != nil {
		cores = append(cores, zapcore.NewCore(encoder, sinks.console, enabler))
	}
	if sinks.file != nil {
		cores = append(cores, zapcore.NewCore(encoder, sinks.file, enabler))
	}
	if sinks.errFile != nil {
		cores = append(cores, zapcore.NewCore(encoder, sinks.errFile, zapcore.ErrorLevel))
	}
	return zapcore.NewTee(cores...)
}

// parseLevel 解析日志级别
func parseLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogger 获取日志器
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		// 如果未初始化，使用默认配置
		defaultLogger, _ := zap.NewProduction()
		return defaultLogger
	}
	return logger
}

// GetModuleLogger 获取模块日志器
func GetModuleLogger(module string) *zap.Logger {
	mu.RLock()
	moduleLogger, ok := moduleLoggers[module]
	mu.RUnlock()

	if ok {
		return moduleLogger
	}
	return GetLogger().Named(module)
}

// Sync 同步日志缓冲区
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()

	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// Info 输出信息日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn 输出警告日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error 输出错误日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// LogError 记录错误日志
func LogError(err error, msg string, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// LogSerialLine 记录串口收发的一行文本
func LogSerialLine(log *zap.Logger, direction string, line string) {
	log.Debug("serial_line",
		zap.String("direction", direction), // "tx" or "rx"
		zap.String("line", strings.TrimRight(line, "\r\n")),
	)
}

// Cleanup 清理日志资源
func Cleanup() {
	if err := Sync(); err != nil && !isIgnorableSyncError(err) {
		fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
	}
}

// isIgnorableSyncError stderr 为终端时 fsync 会返回 EINVAL/ENOTTY
func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "inappropriate ioctl for device")
}
