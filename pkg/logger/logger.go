// Package logger provides a zap-based application logger.
package logger

import "go.uber.org/zap"

// Log is the global zap logger used across the project. It is a no-op
// until Init is called, so packages can log unconditionally.
var Log = zap.NewNop()

// Init configures the global logger in production mode.
func Init() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	Log = l
}

// InitDevelopment configures the global logger with human-readable output.
func InitDevelopment() {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	Log = l
}
