// Package logging provides the file-only structured logger. The terminal
// belongs to the UI, so nothing here ever writes to stdout or stderr.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	logger   *zap.Logger
	filePath string
}

// New opens a rotating JSON log at logFilePath.
func New(logFilePath string, verbose bool) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level)

	return &Logger{
		logger:   zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		filePath: logFilePath,
	}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zap.NewNop()}
}

func (l *Logger) Debug(module, message string, details map[string]any) {
	if l == nil {
		return
	}
	l.logger.Debug(message, zap.String("module", module), zap.Any("details", orEmpty(details)))
}

func (l *Logger) Info(module, message string, details map[string]any) {
	if l == nil {
		return
	}
	l.logger.Info(message, zap.String("module", module), zap.Any("details", orEmpty(details)))
}

func (l *Logger) Warn(module, message string, details map[string]any) {
	if l == nil {
		return
	}
	l.logger.Warn(message, zap.String("module", module), zap.Any("details", orEmpty(details)))
}

func (l *Logger) Error(module, message string, details map[string]any) {
	if l == nil {
		return
	}
	fields := []zap.Field{zap.String("module", module), zap.Any("details", orEmpty(details))}
	if err, ok := details["error"].(error); ok {
		fields = append(fields, zap.Error(err))
	}
	l.logger.Error(message, fields...)
}

func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.logger.Sync()
}

// Path is empty for Nop loggers.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

func orEmpty(details map[string]any) map[string]any {
	if details == nil {
		return map[string]any{}
	}
	return details
}
