package core

import "context"

// Logger is any service that can log messages.
// args are extra values attached to the message (errors, maps, the current account).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Pinger is implemented by backends able to report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
