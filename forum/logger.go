package forum

import "github.com/rs/zerolog"

// Logger is a minimal logging interface accepted by the client.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

// noopLogger discards all logs.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// zerologAdapter bridges Logger onto a zerolog.Logger.
type zerologAdapter struct {
	l zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger into the client Logger interface.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologAdapter{l: l}
}

func (z *zerologAdapter) Debug(msg string, fields map[string]any) {
	z.l.Debug().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Info(msg string, fields map[string]any) {
	z.l.Info().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Warn(msg string, fields map[string]any) {
	z.l.Warn().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Error(msg string, fields map[string]any) {
	z.l.Error().Fields(fields).Msg(msg)
}
