/*
Package main is the entry point for the censub command-line application.

censub lists the subdomains of a domain by searching the Censys certificate
index for certificates whose parsed names contain it. The names are filtered
down to concrete hostnames under the domain, printed, optionally written to a
file, and optionally resolved one by one into a companion ".dns" file.

Credentials come from a YAML config file, the CENSYS_API_ID and
CENSYS_API_SECRET environment variables, or flags, in increasing order of
precedence. The process exits 1 when credentials are missing or rejected, when
the account is rate limited, or on any other search failure; write and lookup
failures are reported without changing the exit status.
*/
package main

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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/x-stp/censub/internal/censys"
	"github.com/x-stp/censub/internal/client"
	"github.com/x-stp/censub/internal/config"
	"github.com/x-stp/censub/internal/core"
	"github.com/x-stp/censub/internal/logger"
	"github.com/x-stp/censub/internal/metrics"
	"github.com/x-stp/censub/internal/report"
	"github.com/x-stp/censub/internal/resolve"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// exitUsage is returned for malformed command lines.
const exitUsage = 2

// flags holds the raw command-line values. Settings other than credentials
// only override the config file when the flag was given explicitly.
type flags struct {
	configPath    string
	output        string
	resolve       bool
	apiID         string
	apiSecret     string
	apiURL        string
	maxPages      int
	rateLimit     float64
	timeout       int
	lookupTimeout int
	backend       string
	hostCommand   string
	nameserver    string
	metricsAddr   string
	metricsFile   string
	noProgress    bool
	noColor       bool
	debug         bool
}

// app carries the process-level dependencies so tests can swap them.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv config.LookupEnv
	// progress receives the resolution bar when enabled.
	progress io.Writer
}

func main() {
	a := &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
		progress:  os.Stderr,
	}
	os.Exit(a.run(os.Args[1:]))
}

// run executes the command line and returns the exit status.
func (a *app) run(args []string) int {
	var runErr error
	cmd := a.newRootCmd(&runErr)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		fmt.Fprintln(a.stderr, cmd.UsageString())
		return exitUsage
	}
	return core.ExitCode(runErr)
}

func (a *app) newRootCmd(runErr *error) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "censub [flags] domain",
		Short: "censub - find subdomains of a domain through Censys certificate search",
		Long: `censub searches the Censys certificate index for certificates naming a domain,
keeps the concrete hostnames under it, prints them and optionally saves and
resolves them.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*runErr = a.execute(cmd, args[0], &f)
			return nil
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML config file with Censys and resolver settings")
	fs.StringVarP(&f.output, "output", "o", "", "file to write found subdomains to, one per line")
	fs.BoolVarP(&f.resolve, "resolve", "r", false, "resolve found subdomains into <output>.dns (requires --output)")
	fs.StringVar(&f.apiID, "censys-api-id", "", "Censys API ID (overrides "+config.EnvAPIID+")")
	fs.StringVar(&f.apiSecret, "censys-api-secret", "", "Censys API secret (overrides "+config.EnvAPISecret+")")
	fs.StringVar(&f.apiURL, "api-url", config.DefaultAPIURL, "Censys API base URL")
	fs.IntVar(&f.maxPages, "max-pages", 0, "stop after this many result pages (0 = all)")
	fs.Float64Var(&f.rateLimit, "rate-limit", config.DefaultRateLimit, "Censys requests per second (0 = unpaced)")
	fs.IntVar(&f.timeout, "timeout", int(config.DefaultSearchTimeout/time.Second), "per-request timeout for Censys in seconds")
	fs.IntVar(&f.lookupTimeout, "lookup-timeout", int(config.DefaultLookupTimeout/time.Second), "per-hostname lookup timeout in seconds")
	fs.StringVar(&f.backend, "resolver", config.BackendHost, "lookup backend: host or dns")
	fs.StringVar(&f.hostCommand, "host-command", config.DefaultHostCommand, "lookup utility used by the host backend")
	fs.StringVar(&f.nameserver, "nameserver", config.DefaultNameserver, "nameserver used by the dns backend")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the run lasts (e.g. :9090)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write the run's Prometheus metrics to this file when it ends (textfile collector format)")
	fs.BoolVar(&f.noProgress, "no-progress", false, "hide the resolution progress bar")
	fs.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging on stderr")

	return cmd
}

// buildConfig layers defaults, the config file, the environment and flags.
func (a *app) buildConfig(cmd *cobra.Command, domain string, f *flags) (*config.Config, error) {
	cfg := config.Default()
	cfg.Domain = domain
	cfg.OutputFile = f.output
	cfg.Resolve = f.resolve
	cfg.MetricsAddr = f.metricsAddr
	cfg.MetricsFile = f.metricsFile
	cfg.NoProgress = f.noProgress
	cfg.NoColor = f.noColor
	cfg.Debug = f.debug

	var fileCreds config.Credentials
	if f.configPath != "" {
		file, err := config.LoadFile(f.configPath)
		if err != nil {
			return nil, core.NewError(core.KindConfiguration, err)
		}
		file.Apply(cfg)
		fileCreds = file.Credentials()
	}

	changed := cmd.Flags().Changed
	if changed("api-url") {
		cfg.APIURL = f.apiURL
	}
	if changed("max-pages") {
		cfg.MaxPages = f.maxPages
	}
	if changed("rate-limit") {
		cfg.RateLimit = f.rateLimit
	}
	if changed("timeout") {
		cfg.SearchTimeout = time.Duration(f.timeout) * time.Second
	}
	if changed("lookup-timeout") {
		cfg.LookupTimeout = time.Duration(f.lookupTimeout) * time.Second
	}
	if changed("resolver") {
		cfg.Backend = f.backend
	}
	if changed("host-command") {
		cfg.HostCommand = f.hostCommand
	}
	if changed("nameserver") {
		cfg.Nameserver = f.nameserver
	}

	creds, err := config.ResolveCredentials(
		fileCreds,
		config.EnvCredentials(a.lookupEnv),
		config.Credentials{ID: f.apiID, Secret: f.apiSecret},
	)
	if err != nil {
		return nil, core.NewError(core.KindConfiguration, err)
	}
	cfg.Credentials = creds

	if err := cfg.Validate(); err != nil {
		return nil, core.NewError(core.KindConfiguration, err)
	}
	return cfg, nil
}

// execute runs one search and reports fatal errors. The returned error
// decides the exit status.
func (a *app) execute(cmd *cobra.Command, domain string, f *flags) error {
	rep := report.New(a.stdout, a.stderr, !f.noColor && !color.NoColor)

	cfg, err := a.buildConfig(cmd, domain, f)
	if err != nil {
		a.reportFatal(rep, err)
		return err
	}
	log := logger.ForDebug(cfg.Debug)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" || cfg.MetricsFile != "" {
		metrics.EnableMetrics()
	}
	if cfg.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				rep.Failure(err)
			}
		}()
	}
	if cfg.MetricsAddr != "" {
		if err := metrics.StartMetricsServer(cfg.MetricsAddr); err != nil {
			err = core.NewError(core.KindConfiguration, fmt.Errorf("metrics server on %s: %w", cfg.MetricsAddr, err))
			a.reportFatal(rep, err)
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metrics.ShutdownMetricsServer(shutdownCtx); err != nil {
				log.Printf("metrics server shutdown: %v", err)
			}
		}()
	}

	client.InitHTTPClient(&client.Config{RequestTimeout: cfg.SearchTimeout})

	searcher, err := censys.NewClient(censys.Options{
		BaseURL:   cfg.APIURL,
		APIID:     cfg.Credentials.ID,
		APISecret: cfg.Credentials.Secret,
		MaxPages:  cfg.MaxPages,
		RateLimit: cfg.RateLimit,
		Logger:    log,
	})
	if err != nil {
		err = core.NewError(core.KindConfiguration, err)
		a.reportFatal(rep, err)
		return err
	}

	p := &core.Pipeline{
		Config:   cfg,
		Searcher: searcher,
		Resolver: newResolver(cfg),
		Reporter: rep,
		Logger:   log,
	}
	if !cfg.NoProgress {
		p.Progress = a.progress
	}

	if _, err := p.Run(ctx); err != nil {
		a.reportFatal(rep, err)
		return err
	}
	return nil
}

func newResolver(cfg *config.Config) resolve.Resolver {
	if cfg.Backend == config.BackendDNS {
		return resolve.NewDNSResolver(cfg.Nameserver, cfg.LookupTimeout)
	}
	return resolve.NewHostCommand(cfg.HostCommand, cfg.LookupTimeout)
}

func (a *app) reportFatal(rep *report.Reporter, err error) {
	switch core.KindOf(err) {
	case core.KindConfiguration:
		if errors.Is(err, config.ErrMissingCredentials) {
			rep.MissingCredentials()
			return
		}
		rep.Failure(err)
	case core.KindAuthentication:
		rep.InvalidCredentials()
	case core.KindRateLimit:
		rep.RateLimited()
	default:
		rep.Failure(err)
	}
}
