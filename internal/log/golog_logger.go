package log

import "github.com/kataras/golog"

// GologLogger implements Logger on top of github.com/kataras/golog, the
// production logging backend (the teacher depends on it directly).
type GologLogger struct {
	logger *golog.Logger
	level  Level
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger, defaulting to LevelInfo.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{logger: logger, level: LevelInfo}
}

func (l *GologLogger) Debug(format string, v ...any) {
	if l.level <= LevelDebug {
		args := append([]any{format}, v...)
		l.logger.Debug(args...)
	}
}

func (l *GologLogger) Info(format string, v ...any) {
	if l.level <= LevelInfo {
		args := append([]any{format}, v...)
		l.logger.Info(args...)
	}
}

func (l *GologLogger) Warn(format string, v ...any) {
	if l.level <= LevelWarn {
		args := append([]any{format}, v...)
		l.logger.Warn(args...)
	}
}

func (l *GologLogger) Error(format string, v ...any) {
	if l.level <= LevelError {
		args := append([]any{format}, v...)
		l.logger.Error(args...)
	}
}

// SetLevel adjusts both this wrapper's filtering and the underlying logger.
func (l *GologLogger) SetLevel(level Level) {
	l.level = level

	gologLevel := "info"
	switch level {
	case LevelDebug:
		gologLevel = "debug"
	case LevelInfo:
		gologLevel = "info"
	case LevelWarn:
		gologLevel = "warn"
	case LevelError:
		gologLevel = "error"
	case LevelNone:
		gologLevel = "disable"
	}
	l.logger.SetLevel(gologLevel)
}

// GetLevel returns the wrapper's current filtering level.
func (l *GologLogger) GetLevel() Level {
	return l.level
}
