/*
Package config holds the run configuration for censub and resolves Censys
credentials from a config file, the environment and command-line flags.
*/
package config

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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the config file nor a flag sets a value.
const (
	DefaultAPIURL        = "https://search.censys.io/api/v1"
	DefaultRateLimit     = 0.4 // requests per second, free tier
	DefaultSearchTimeout = 60 * time.Second
	DefaultLookupTimeout = 15 * time.Second
	DefaultHostCommand   = "host"
	DefaultNameserver    = "8.8.8.8:53"

	BackendHost = "host"
	BackendDNS  = "dns"
)

// Environment variables consulted for credentials.
const (
	EnvAPIID     = "CENSYS_API_ID"
	EnvAPISecret = "CENSYS_API_SECRET"
)

// ErrMissingCredentials is returned when no complete id/secret pair could be found.
var ErrMissingCredentials = errors.New("censys API id and secret are not set")

// Credentials is the Censys API id/secret pair.
type Credentials struct {
	ID     string
	Secret string
}

// Complete reports whether both halves of the pair are set.
func (c Credentials) Complete() bool {
	return c.ID != "" && c.Secret != ""
}

// Config is built once at startup and handed to every component.
type Config struct {
	Domain      string
	OutputFile  string // empty: do not persist
	Resolve     bool
	Credentials Credentials

	APIURL        string
	MaxPages      int     // 0: every page the API reports
	RateLimit     float64 // page requests per second, <= 0 disables pacing
	SearchTimeout time.Duration
	LookupTimeout time.Duration

	Backend     string
	HostCommand string
	Nameserver  string

	MetricsAddr string
	// MetricsFile receives the run's metrics in text format when the run ends.
	MetricsFile string
	NoProgress  bool
	NoColor     bool
	Debug       bool
}

// Default returns a Config with every tunable at its default.
func Default() *Config {
	return &Config{
		APIURL:        DefaultAPIURL,
		RateLimit:     DefaultRateLimit,
		SearchTimeout: DefaultSearchTimeout,
		LookupTimeout: DefaultLookupTimeout,
		Backend:       BackendHost,
		HostCommand:   DefaultHostCommand,
		Nameserver:    DefaultNameserver,
	}
}

// ResolutionFile is the companion path that receives lookup results.
func (c *Config) ResolutionFile() string {
	return c.OutputFile + ".dns"
}

// ShouldResolve is true only when resolution was requested and there is a file to read back.
func (c *Config) ShouldResolve() bool {
	return c.Resolve && c.OutputFile != ""
}

// Validate checks the settings that do not depend on the network.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Domain) == "" {
		return errors.New("domain must not be empty")
	}
	if !c.Credentials.Complete() {
		return ErrMissingCredentials
	}
	switch c.Backend {
	case BackendHost, BackendDNS:
	default:
		return fmt.Errorf("unknown resolver backend %q (want %q or %q)", c.Backend, BackendHost, BackendDNS)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages must be >= 0, got %d", c.MaxPages)
	}
	if c.SearchTimeout < 0 {
		return fmt.Errorf("search timeout must be >= 0, got %s", c.SearchTimeout)
	}
	if c.LookupTimeout < 0 {
		return fmt.Errorf("lookup timeout must be >= 0, got %s", c.LookupTimeout)
	}
	return nil
}

// File mirrors the YAML config file layout.
type File struct {
	Censys struct {
		APIID     string  `yaml:"api_id"`
		APISecret string  `yaml:"api_secret"`
		APIURL    string  `yaml:"api_url"`
		MaxPages  int     `yaml:"max_pages"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"censys"`
	Timeouts struct {
		SearchSeconds int `yaml:"search_seconds"`
		LookupSeconds int `yaml:"lookup_seconds"`
	} `yaml:"timeouts"`
	Resolver struct {
		Backend     string `yaml:"backend"`
		HostCommand string `yaml:"host_command"`
		Nameserver  string `yaml:"nameserver"`
	} `yaml:"resolver"`
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &f, nil
}

// Apply copies every non-zero setting from the file into c.
// Credentials from the file are only the lowest-precedence source; see ResolveCredentials.
func (f *File) Apply(c *Config) {
	if f.Censys.APIURL != "" {
		c.APIURL = f.Censys.APIURL
	}
	if f.Censys.MaxPages != 0 {
		c.MaxPages = f.Censys.MaxPages
	}
	if f.Censys.RateLimit != 0 {
		c.RateLimit = f.Censys.RateLimit
	}
	if f.Timeouts.SearchSeconds > 0 {
		c.SearchTimeout = time.Duration(f.Timeouts.SearchSeconds) * time.Second
	}
	if f.Timeouts.LookupSeconds > 0 {
		c.LookupTimeout = time.Duration(f.Timeouts.LookupSeconds) * time.Second
	}
	if f.Resolver.Backend != "" {
		c.Backend = f.Resolver.Backend
	}
	if f.Resolver.HostCommand != "" {
		c.HostCommand = f.Resolver.HostCommand
	}
	if f.Resolver.Nameserver != "" {
		c.Nameserver = f.Resolver.Nameserver
	}
}

// Credentials returns the pair stored in the file, possibly incomplete.
func (f *File) Credentials() Credentials {
	return Credentials{ID: f.Censys.APIID, Secret: f.Censys.APISecret}
}
