// Package zap wires the engine's named loggers to *zap.Logger instances,
// rotated through lumberjack, following the teacher's logger/zap package.
package zap

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	gorml "gorm.io/gorm/logger"

	"github.com/forbearing/uow/config"
	"github.com/forbearing/uow/logger"
	"github.com/forbearing/uow/types"
)

// Option configures encoder behavior for constructors.
type Option struct {
	DisableMsg   bool
	DisableLevel bool
}

// Init wires logger.Session, logger.Flush, and logger.Gorm from
// config.App.Logger. Call it once during application bootstrap.
func Init() error {
	logger.Session = New("session.log")
	logger.Flush = New("flush.log")
	logger.Gorm = NewGorm("gorm.log")
	return nil
}

// Clean flushes buffered log entries before process exit.
func Clean() {
	for _, l := range []types.Logger{logger.Session, logger.Flush} {
		if zl, ok := l.(*Logger); ok && zl != nil {
			_ = zl.zlog.Sync()
		}
	}
	if gl, ok := logger.Gorm.(*GormLogger); ok {
		if zl, ok := gl.l.(*Logger); ok {
			_ = zl.zlog.Sync()
		}
	}
}

// New builds a types.Logger backed by *zap.Logger.
// filename is the target log file name; "/dev/stdout" writes to the console.
func New(filename string, opts ...Option) *Logger {
	return &Logger{zlog: zap.New(
		zapcore.NewCore(newLogEncoder(opts...), newLogWriter(filename), newLogLevel()),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.FatalLevel),
	)}
}

// NewGorm builds a gorm logger.Interface.
func NewGorm(filename string) gorml.Interface {
	return &GormLogger{l: &Logger{zlog: zap.New(
		zapcore.NewCore(newLogEncoder(), newLogWriter(filename), newLogLevel()),
		zap.AddCaller(),
		zap.AddCallerSkip(5),
		zap.AddStacktrace(zapcore.FatalLevel),
	)}}
}

func newLogWriter(filename string) zapcore.WriteSyncer {
	switch strings.TrimSpace(filename) {
	case "/dev/stdout", "":
		return zapcore.AddSync(os.Stdout)
	case "/dev/stderr":
		return zapcore.AddSync(os.Stderr)
	default:
		dir := "/tmp/uow/logs"
		if config.App != nil && len(config.App.Logger.Dir) > 0 {
			dir = config.App.Logger.Dir
		}
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(dir, filename),
			MaxAge:     maxAge(),
			MaxSize:    maxSize(),
			MaxBackups: maxBackups(),
			LocalTime:  true,
			Compress:   compress(),
		})
	}
}

func newLogLevel() zapcore.Level {
	if config.App == nil || len(config.App.Logger.Level) == 0 {
		return zapcore.InfoLevel
	}
	level := new(zapcore.Level)
	if err := level.UnmarshalText([]byte(config.App.Logger.Level)); err != nil {
		return zapcore.InfoLevel
	}
	return *level
}

func newLogEncoder(opts ...Option) zapcore.Encoder {
	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if len(opts) > 0 {
		o := opts[0]
		if o.DisableMsg {
			encConfig.MessageKey = ""
		}
		if o.DisableLevel {
			encConfig.LevelKey = ""
		}
	}
	if config.App != nil && config.App.Logger.ConsoleOutput {
		return zapcore.NewConsoleEncoder(encConfig)
	}
	return zapcore.NewJSONEncoder(encConfig)
}

func maxAge() int {
	if config.App == nil || config.App.Logger.MaxAge == 0 {
		return 7
	}
	return config.App.Logger.MaxAge
}

func maxSize() int {
	if config.App == nil || config.App.Logger.MaxSize == 0 {
		return 100
	}
	return config.App.Logger.MaxSize
}

func maxBackups() int {
	if config.App == nil || config.App.Logger.MaxBackups == 0 {
		return 10
	}
	return config.App.Logger.MaxBackups
}

func compress() bool {
	return config.App != nil && config.App.Logger.Compress
}
