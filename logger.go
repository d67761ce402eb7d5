package provider

import "log/slog"

// Logger is the interface for structured diagnostic logging used throughout
// this package. It is designed to be compatible with *slog.Logger from the
// standard library; applications may supply their own implementation, or
// rely on the default slog logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}
