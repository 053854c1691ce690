package core

import "github.com/hupe1980/travelmesh/logging"

// loggerAdapter gives RunContext and ToolContext the LogX helpers. Every line
// carries the bound attributes (session id, concurrent branch) ahead of the
// call-site arguments.
type loggerAdapter struct {
	logger logging.Logger
	attrs  []any
}

func newLoggerAdapter(l logging.Logger, attrs ...any) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}

	return &loggerAdapter{logger: l, attrs: attrs}
}

// with returns an adapter with an additional bound attribute.
func (l *loggerAdapter) with(key string, value any) *loggerAdapter {
	attrs := make([]any, 0, len(l.attrs)+2)
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, key, value)

	return &loggerAdapter{logger: l.logger, attrs: attrs}
}

func (l *loggerAdapter) args(args []any) []any {
	if len(l.attrs) == 0 {
		return args
	}

	out := make([]any, 0, len(l.attrs)+len(args))
	out = append(out, l.attrs...)

	return append(out, args...)
}

// Logger returns the underlying logger without bound attributes.
func (l *loggerAdapter) Logger() logging.Logger { return l.logger }

func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.args(args)...) }

func (l *loggerAdapter) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.args(args)...) }

func (l *loggerAdapter) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.args(args)...) }

func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, l.args(args)...) }
