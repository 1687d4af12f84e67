package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger zap 封装，对外提供 printf 风格接口
type Logger struct {
	zapLogger *zap.Logger
}

// Options 日志初始化选项
type Options struct {
	Level  string // debug, info, warn, error, fatal
	Output string // stdout, stderr, file
	File   string // output 为 file 时的日志路径
}

var defaultLogger *Logger

func init() {
	l, err := New(Options{Level: "info", Output: "stdout"})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defaultLogger = l
}

// New 按选项创建日志器。file 输出走 lumberjack 轮转。
func New(opts Options) (*Logger, error) {
	level := parseLevel(opts.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.MessageKey = "message"

	var zapLogger *zap.Logger
	switch opts.Output {
	case "file":
		file := opts.File
		if file == "" {
			file = "logs/app.log"
		}
		sink := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // 天
			Compress:   true,
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(sink), level)
		zapLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	default:
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.EncoderConfig = encoderConfig
		if opts.Output == "stderr" {
			config.OutputPaths = []string{"stderr"}
		} else {
			config.OutputPaths = []string{"stdout"}
		}
		var err error
		zapLogger, err = config.Build(zap.AddCallerSkip(2))
		if err != nil {
			return nil, err
		}
	}

	return &Logger{zapLogger: zapLogger}, nil
}

// Init 重建默认日志器，在配置加载后调用一次
func Init(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	defaultLogger.Sync()
	defaultLogger = l
	return nil
}

// Debug 调试日志
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zapLogger.Debug(fmt.Sprintf(format, args...))
}

// Info 信息日志
func (l *Logger) Info(format string, args ...interface{}) {
	l.zapLogger.Info(fmt.Sprintf(format, args...))
}

// Warn 警告日志
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zapLogger.Warn(fmt.Sprintf(format, args...))
}

// Error 错误日志
func (l *Logger) Error(format string, args ...interface{}) {
	l.zapLogger.Error(fmt.Sprintf(format, args...))
}

// Fatal 致命错误日志
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.zapLogger.Fatal(fmt.Sprintf(format, args...))
}

// Sync 刷新缓冲
func (l *Logger) Sync() {
	l.zapLogger.Sync()
}

// 全局函数，走默认日志器

func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }
func Info(format string, args ...interface{})  { defaultLogger.Info(format, args...) }
func Warn(format string, args ...interface{})  { defaultLogger.Warn(format, args...) }
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }
func Fatal(format string, args ...interface{}) { defaultLogger.Fatal(format, args...) }
func Sync()                                    { defaultLogger.Sync() }

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
