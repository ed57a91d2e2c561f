// Package logging keeps the runtime log away from the interactive
// console. By default messages go to stderr; SetupFile redirects them
// to <dir>/runtime.log so the REPL output stays clean.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

var (
	disabled = false
	logger   = log.New(os.Stderr, "", log.LstdFlags)
)

// SetupFile routes all subsequent log output to dir/runtime.log,
// creating the directory if needed. Returns the opened log path.
func SetupFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, "runtime.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	return path, nil
}

// Disable turns off all logging
func Disable() {
	disabled = true
}

// Enable turns logging back on
func Enable() {
	disabled = false
}

// Info logs an info message
func Info(v ...any) {
	if !disabled {
		logger.Println(v...)
	}
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	if !disabled {
		logger.Printf(format, v...)
	}
}

// Warn logs a warning message
func Warn(v ...any) {
	if !disabled {
		logger.Println(v...)
	}
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	if !disabled {
		logger.Printf(format, v...)
	}
}

// Error logs an error message
func Error(v ...any) {
	if !disabled {
		logger.Println(v...)
	}
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	if !disabled {
		logger.Printf(format, v...)
	}
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	if !disabled {
		logger.Printf(format, v...)
	}
}
