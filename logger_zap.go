package libevents

import (
	"go.uber.org/zap"
)

type zapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger adapts a zap sugared logger.
func NewZapLogger(l *zap.SugaredLogger) Logger {
	return zapLogger{logger: l}
}

func (l zapLogger) WithField(key string, value any) Logger {
	return zapLogger{logger: l.logger.With(key, value)}
}

func (l zapLogger) Debug(args ...any)                 { l.logger.Debug(args...) }
func (l zapLogger) Debugf(format string, args ...any) { l.logger.Debugf(format, args...) }
func (l zapLogger) Info(args ...any)                  { l.logger.Info(args...) }
func (l zapLogger) Infof(format string, args ...any)  { l.logger.Infof(format, args...) }
func (l zapLogger) Warn(args ...any)                  { l.logger.Warn(args...) }
func (l zapLogger) Warnf(format string, args ...any)  { l.logger.Warnf(format, args...) }
func (l zapLogger) Error(args ...any)                 { l.logger.Error(args...) }
func (l zapLogger) Errorf(format string, args ...any) { l.logger.Errorf(format, args...) }
