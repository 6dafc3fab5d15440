package logger

/*
censub — find subdomains through Censys certificate search
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"io"
	"log"
	"os"
)

// Logger is the diagnostic logging surface shared by all components.
// Result lines meant for the user do not go through it.
type Logger interface {
	Printf(format string, v ...any)
	Println(v ...any)
	SetOutput(w io.Writer)
}

// StdLogger implements Logger on top of the standard log package.
type StdLogger struct{ logger *log.Logger }

// New returns a logger writing timestamped lines to stderr.
func New() *StdLogger {
	return &StdLogger{logger: log.New(os.Stderr, "censub: ", log.LstdFlags)}
}

// Printf formats and prints a log message.
func (s *StdLogger) Printf(format string, v ...any) { s.logger.Printf(format, v...) }

// Println prints a log message with a newline.
func (s *StdLogger) Println(v ...any) { s.logger.Println(v...) }

// SetOutput sets the output destination.
func (s *StdLogger) SetOutput(w io.Writer) { s.logger.SetOutput(w) }

// Discard drops everything. It is the default when --debug is off.
type Discard struct{}

func (Discard) Printf(string, ...any) {}
func (Discard) Println(...any)        {}
func (Discard) SetOutput(io.Writer)   {}

// ForDebug picks the logger matching the debug switch.
func ForDebug(debug bool) Logger {
	if debug {
		return New()
	}
	return Discard{}
}
