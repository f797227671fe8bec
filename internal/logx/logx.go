// Copyright 2026 The pvcheck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logx is a thin level filter over the standard log package. The
// teacher logs with log.Printf/log.Println directly everywhere; pvcheck
// does the same, adding only a package-level threshold so -level can
// silence Debug output without introducing a structured-logging library
// nothing else in the examined corpus uses for CLI tools like this one.
package logx

import (
	"fmt"
	"log"
)

// Level orders the verbosity threshold, lowest first.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses the -level flag value, defaulting to Info on an
// unrecognized string.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

var threshold = Info

// SetLevel sets the process-wide logging threshold.
func SetLevel(l Level) { threshold = l }

func logf(l Level, format string, args ...any) {
	if l < threshold {
		return
	}
	log.Printf("[%s] %s", l, fmt.Sprintf(format, args...))
}

// Debugf logs at Debug level.
func Debugf(format string, args ...any) { logf(Debug, format, args...) }

// Infof logs at Info level.
func Infof(format string, args ...any) { logf(Info, format, args...) }

// Warnf logs at Warn level.
func Warnf(format string, args ...any) { logf(Warn, format, args...) }

// Errorf logs at Error level.
func Errorf(format string, args ...any) { logf(Error, format, args...) }
