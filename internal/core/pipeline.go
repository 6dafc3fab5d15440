package core

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
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/x-stp/censub/internal/censys"
	"github.com/x-stp/censub/internal/config"
	"github.com/x-stp/censub/internal/logger"
	"github.com/x-stp/censub/internal/metrics"
	"github.com/x-stp/censub/internal/output"
	"github.com/x-stp/censub/internal/report"
	"github.com/x-stp/censub/internal/resolve"
	"github.com/x-stp/censub/internal/subdomain"
)

// Searcher is the certificate search capability. *censys.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, fields []string) ([]censys.Record, error)
}

// Pipeline wires the stages of one run. Every field except Progress and
// Logger is required; Resolver is only used when the config asks for it.
type Pipeline struct {
	Config   *config.Config
	Searcher Searcher
	Resolver resolve.Resolver
	Reporter *report.Reporter
	Logger   logger.Logger
	// Progress receives the resolution progress bar; nil disables it.
	Progress io.Writer

	now func() time.Time
}

// Result describes a completed run.
type Result struct {
	Subdomains []string
	Elapsed    time.Duration
	// OutputPath is the absolute path written, empty when nothing was written.
	OutputPath string
	// WriteErr is the non-fatal failure to write the subdomain file, if any.
	WriteErr   error
	Resolution *resolve.Summary
	// LookupErr is set when some lookups failed; each failure is also a line
	// in the resolution file. Not fatal.
	LookupErr error
}

// Run executes the pipeline. A returned error is always fatal and carries a
// Kind (see KindOf); non-fatal problems are reported and kept in Result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	cfg := p.Config
	log := p.Logger
	if log == nil {
		log = logger.Discard{}
	}
	now := p.now
	if now == nil {
		now = time.Now
	}

	p.Reporter.Searching(cfg.Domain)
	start := now()

	records, err := p.Searcher.Search(ctx, censys.NamesQuery(cfg.Domain), []string{censys.FieldParsedNames})
	if err != nil {
		return nil, NewError(KindOf(err), err)
	}
	log.Printf("search returned %d records", len(records))

	set, skipped := subdomain.Extract(records, censys.FieldParsedNames)
	if skipped > 0 {
		log.Printf("skipped %d records with an unreadable %s field", skipped, censys.FieldParsedNames)
	}
	names, stats := subdomain.Filter(cfg.Domain, set)
	sort.Strings(names)
	metrics.GetMetrics().RecordFilter(set.Len(), len(names), stats.Wildcard, stats.OffDomain)
	log.Printf("kept %d of %d names (%d wildcard, %d off-domain)", len(names), set.Len(), stats.Wildcard, stats.OffDomain)

	res := &Result{Subdomains: names, Elapsed: now().Sub(start)}
	p.Reporter.Subdomains(cfg.Domain, names, res.Elapsed)

	p.persist(res)

	if cfg.ShouldResolve() {
		if err := p.resolve(ctx, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (p *Pipeline) persist(res *Result) {
	path := p.Config.OutputFile
	if path == "" || len(res.Subdomains) == 0 {
		return
	}
	if _, err := output.WriteLines(path, res.Subdomains); err != nil {
		res.WriteErr = NewError(KindWrite, err)
		p.Reporter.WriteFailed(path, err)
		return
	}
	res.OutputPath = absPath(path)
	p.Reporter.Wrote(len(res.Subdomains), res.OutputPath)
}

func (p *Pipeline) resolve(ctx context.Context, res *Result) error {
	if res.OutputPath == "" {
		p.Reporter.ResolutionSkipped("no subdomain file was written in this run")
		return nil
	}

	p.Reporter.Resolving()
	resultPath := p.Config.ResolutionFile()
	runner := &resolve.Runner{
		Resolver:      p.Resolver,
		Backend:       p.Config.Backend,
		Progress:      p.Progress,
		OnAppendError: p.Reporter.AppendFailed,
		Logger:        p.Logger,
	}

	sum, err := runner.Run(ctx, p.Config.OutputFile, resultPath)
	res.Resolution = &sum
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return NewError(KindUnexpected, err)
		}
		p.Reporter.ResolutionFailed(err)
		return nil
	}
	if sum.Failed > 0 {
		res.LookupErr = NewError(KindResolution, fmt.Errorf("%d of %d lookups failed", sum.Failed, sum.Targets))
		if p.Logger != nil {
			p.Logger.Printf("%v, see %s", res.LookupErr, resultPath)
		}
	}
	p.Reporter.WroteResolution(absPath(resultPath))
	return nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
