package logger

import (
	"os"

	"teachtrack_backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Log *zap.Logger

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// InitLogger 文件走JSON滚动日志，便于采集；
// 非release模式额外输出彩色控制台日志方便本地调试。
func InitLogger(cfg *config.Config) {
	path := cfg.Log.Path
	if path == "" {
		path = "logs/teachtrack.log"
	}
	maxSize := cfg.Log.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxAge := cfg.Log.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: 5,
		MaxAge:     maxAge,
		Compress:   true,
	})

	level := zap.InfoLevel
	if cfg.Server.Mode == "debug" {
		level = zap.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), fileWriter, level),
	}

	if cfg.Server.Mode != "release" {
		consoleCfg := encoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	Log = zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(zap.String("service", "teachtrack-backend")),
	)
}

// Sync 进程退出前刷新缓冲，stdout上的sync错误可忽略
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
