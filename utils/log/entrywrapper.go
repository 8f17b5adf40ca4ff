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

package log

import (
	"github.com/sirupsen/logrus"
)

// Entry wraps logrus.Entry.
type Entry logrus.Entry

// WithError adds an error field to the entry.
func (entry *Entry) WithError(err error) *Entry {
	return (*Entry)((*logrus.Entry)(entry).WithField(logrus.ErrorKey, err))
}

// WithField adds a single field to the entry.
func (entry *Entry) WithField(key string, value interface{}) *Entry {
	return (*Entry)((*logrus.Entry)(entry).WithField(key, value))
}

// WithFields adds a map of fields to the entry.
func (entry *Entry) WithFields(fields Fields) *Entry {
	return (*Entry)((*logrus.Entry)(entry).WithFields(logrus.Fields(fields)))
}

// Debug logs the entry at level Debug.
func (entry *Entry) Debug(args ...interface{}) {
	(*logrus.Entry)(entry).Debug(args...)
}

// Info logs the entry at level Info.
func (entry *Entry) Info(args ...interface{}) {
	(*logrus.Entry)(entry).Info(args...)
}

// Warn logs the entry at level Warn.
func (entry *Entry) Warn(args ...interface{}) {
	(*logrus.Entry)(entry).Warn(args...)
}

// Error logs the entry at level Error.
func (entry *Entry) Error(args ...interface{}) {
	(*logrus.Entry)(entry).Error(args...)
}

// Fatal logs the entry at level Fatal then calls os.Exit(1).
func (entry *Entry) Fatal(args ...interface{}) {
	(*logrus.Entry)(entry).Fatal(args...)
}

// Debugf logs the entry at level Debug.
func (entry *Entry) Debugf(format string, args ...interface{}) {
	(*logrus.Entry)(entry).Debugf(format, args...)
}

// Infof logs the entry at level Info.
func (entry *Entry) Infof(format string, args ...interface{}) {
	(*logrus.Entry)(entry).Infof(format, args...)
}

// Warnf logs the entry at level Warn.
func (entry *Entry) Warnf(format string, args ...interface{}) {
	(*logrus.Entry)(entry).Warnf(format, args...)
}

// Errorf logs the entry at level Error.
func (entry *Entry) Errorf(format string, args ...interface{}) {
	(*logrus.Entry)(entry).Errorf(format, args...)
}
