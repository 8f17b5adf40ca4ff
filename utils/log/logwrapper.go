/*
 * Copyright 2022 The AgentChain Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package log is a logrus wrapper providing one package-level logger for the
// whole project, so that components share a consistently configured output.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger.
type Logger logrus.Logger

// Fields wraps logrus.Fields.
type Fields logrus.Fields

// Level aliases of the underlying logrus levels.
const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
)

var std = logrus.New()

// StandardLogger returns the package-level logger.
func StandardLogger() *Logger {
	return (*Logger)(std)
}

// SetOutput sets the standard logger output.
func SetOutput(out io.Writer) {
	std.SetOutput(out)
}

// SetLevel sets the standard logger level.
func SetLevel(level logrus.Level) {
	std.SetLevel(level)
}

// GetLevel returns the standard logger level.
func GetLevel() logrus.Level {
	return std.GetLevel()
}

// SetStringLevel sets the standard logger level by a level string, falling
// back to defaultLevel on parse failure.
func SetStringLevel(lvl string, defaultLevel logrus.Level) {
	if level, err := logrus.ParseLevel(lvl); err != nil {
		std.SetLevel(defaultLevel)
	} else {
		std.SetLevel(level)
	}
}

// WithError creates an entry from the standard logger with an error field.
func WithError(err error) *Entry {
	return (*Entry)(std.WithField(logrus.ErrorKey, err))
}

// WithField creates an entry from the standard logger with a single field.
func WithField(key string, value interface{}) *Entry {
	return (*Entry)(std.WithField(key, value))
}

// WithFields creates an entry from the standard logger with multiple fields.
func WithFields(fields Fields) *Entry {
	return (*Entry)(std.WithFields(logrus.Fields(fields)))
}

// Debug logs a message at level Debug on the standard logger.
func Debug(args ...interface{}) {
	std.Debug(args...)
}

// Info logs a message at level Info on the standard logger.
func Info(args ...interface{}) {
	std.Info(args...)
}

// Warn logs a message at level Warn on the standard logger.
func Warn(args ...interface{}) {
	std.Warn(args...)
}

// Error logs a message at level Error on the standard logger.
func Error(args ...interface{}) {
	std.Error(args...)
}

// Fatal logs a message at level Fatal on the standard logger then calls
// os.Exit(1).
func Fatal(args ...interface{}) {
	std.Fatal(args...)
}

// Debugf logs a message at level Debug on the standard logger.
func Debugf(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Infof logs a message at level Info on the standard logger.
func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warnf logs a message at level Warn on the standard logger.
func Warnf(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Errorf logs a message at level Error on the standard logger.
func Errorf(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// Fatalf logs a message at level Fatal on the standard logger then calls
// os.Exit(1).
func Fatalf(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}
