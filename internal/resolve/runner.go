package resolve

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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/x-stp/censub/internal/logger"
	"github.com/x-stp/censub/internal/metrics"
	"github.com/x-stp/censub/internal/output"
)

// Summary counts what a Runner did.
type Summary struct {
	Targets      int
	Resolved     int
	Failed       int
	AppendErrors int
}

// Runner resolves every name listed in a file, one at a time, and appends
// one line per name to a result file in input order.
type Runner struct {
	Resolver Resolver
	// Backend labels metrics ("host" or "dns").
	Backend string
	// Progress, when non-nil, receives a progress bar.
	Progress io.Writer
	// OnAppendError is told about result lines that could not be written.
	OnAppendError func(path, target string, err error)
	Logger        logger.Logger
}

// Run reads targets from inputPath and appends results to resultPath.
// Only failing to read inputPath is returned as an error; lookup failures
// are recorded as result lines and append failures go to OnAppendError.
func (r *Runner) Run(ctx context.Context, inputPath, resultPath string) (Summary, error) {
	log := r.Logger
	if log == nil {
		log = logger.Discard{}
	}

	targets, err := output.ReadLines(inputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("reading targets from %s: %w", inputPath, err)
	}

	sum := Summary{Targets: len(targets)}
	bar := r.newBar(len(targets))
	m := metrics.GetMetrics()

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		start := time.Now()
		text, lerr := r.Resolver.Resolve(ctx, target)
		m.RecordResolution(r.Backend, lerr == nil, time.Since(start))

		if lerr != nil {
			sum.Failed++
			text = Detail(lerr)
			log.Printf("lookup %s failed: %v", target, lerr)
		} else {
			sum.Resolved++
			text = OneLine(text)
		}

		if err := output.AppendLine(resultPath, text); err != nil {
			sum.AppendErrors++
			if r.OnAppendError != nil {
				r.OnAppendError(resultPath, target, err)
			}
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	log.Printf("resolution done: %d targets, %d resolved, %d failed", sum.Targets, sum.Resolved, sum.Failed)
	return sum, nil
}

func (r *Runner) newBar(n int) *progressbar.ProgressBar {
	if r.Progress == nil || n == 0 {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(r.Progress),
		progressbar.OptionSetDescription("Resolving"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
}
