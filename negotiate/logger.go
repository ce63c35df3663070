package negotiate

import (
	"go.uber.org/zap"
)

// zapLeveledLogger lets retryablehttp log through zap.
type zapLeveledLogger struct {
	l *zap.SugaredLogger
}

func newZapLeveledLogger(l *zap.Logger) *zapLeveledLogger {
	return &zapLeveledLogger{l: l.Sugar()}
}

func (z *zapLeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	z.l.Errorw(msg, keysAndValues...)
}

func (z *zapLeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	z.l.Infow(msg, keysAndValues...)
}

func (z *zapLeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.l.Debugw(msg, keysAndValues...)
}

func (z *zapLeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.l.Warnw(msg, keysAndValues...)
}
