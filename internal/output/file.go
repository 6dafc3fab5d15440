// Package output reads and writes the plain-text files produced by a run.
package output

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
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/x-stp/censub/internal/metrics"
)

// DefaultBufferSize is the write buffer used for the subdomain file.
const DefaultBufferSize = 32 * 1024

// Metric labels for the two files a run touches.
const (
	labelOutput     = "output"
	labelResolution = "resolution"
)

// WriteLines creates or truncates path and writes one line per entry.
// It returns the number of bytes written.
func WriteLines(path string, lines []string) (int, error) {
	n, err := writeLines(path, lines)
	metrics.GetMetrics().RecordWrite(labelOutput, n, err)
	return n, err
}

func writeLines(path string, lines []string) (written int, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriterSize(f, DefaultBufferSize)
	for _, line := range lines {
		n, werr := w.WriteString(line + "\n")
		written += n
		if werr != nil {
			return written, werr
		}
	}
	if err := w.Flush(); err != nil {
		return written, err
	}
	return written, nil
}

// AppendLine opens path for appending (creating it if needed), writes line
// followed by a newline and closes the file again.
func AppendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		metrics.GetMetrics().RecordWrite(labelResolution, 0, err)
		return err
	}
	n, werr := f.WriteString(line + "\n")
	cerr := f.Close()
	err = errors.Join(werr, cerr)
	metrics.GetMetrics().RecordWrite(labelResolution, n, err)
	return err
}

// ReadLines returns the lines of path with trailing whitespace removed.
// Blank lines are dropped.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRightFunc(sc.Text(), unicode.IsSpace)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed reading %s: %w", path, err)
	}
	return lines, nil
}
