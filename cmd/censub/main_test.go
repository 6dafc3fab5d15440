package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// censysStub answers certificate searches with a single page of names, or
// with status when it is not 200.
type censysStub struct {
	status int
	calls  atomic.Int32
	user   atomic.Value
}

func (s *censysStub) start(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		user, _, _ := r.BasicAuth()
		s.user.Store(user)

		w.Header().Set("Content-Type", "application/json")
		if s.status != 0 && s.status != http.StatusOK {
			w.WriteHeader(s.status)
			_, _ = w.Write([]byte(`{"status":"error","error_type":"x","error":"nope"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","results":[
			{"parsed.names":["www.example.com","*.example.com","example.org"]},
			{"parsed.names":["mail.example.com","www.example.com"]}
		],"metadata":{"count":2,"page":1,"pages":1}}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestApp(env map[string]string) (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &app{
		stdout: &stdout,
		stderr: &stderr,
		lookupEnv: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}, &stdout, &stderr
}

func baseArgs(url string, extra ...string) []string {
	return append([]string{"--api-url", url, "--rate-limit", "0", "--no-color"}, extra...)
}

func TestMissingCredentialsExitsBeforeSearching(t *testing.T) {
	stub := &censysStub{}
	url := stub.start(t)
	a, stdout, stderr := newTestApp(map[string]string{"CENSYS_API_ID": "only-id"})

	code := a.run(baseArgs(url, "example.com"))

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "[!] Please set your Censys API ID and secret")
	assert.Empty(t, stdout.String())
	assert.Zero(t, stub.calls.Load())
}

func TestRunWritesSubdomains(t *testing.T) {
	stub := &censysStub{}
	url := stub.start(t)
	a, stdout, stderr := newTestApp(map[string]string{"CENSYS_API_ID": "env-id", "CENSYS_API_SECRET": "env-secret"})
	out := filepath.Join(t.TempDir(), "subs.txt")

	code := a.run(baseArgs(url, "-o", out, "example.com"))

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "env-id", stub.user.Load())
	assert.Contains(t, stdout.String(), "[*] Found 2 unique subdomains of example.com")
	assert.Contains(t, stdout.String(), "  - mail.example.com\n")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com\nwww.example.com\n", string(data))
}

func TestFlagCredentialsOverrideEnvironment(t *testing.T) {
	stub := &censysStub{}
	url := stub.start(t)
	a, _, stderr := newTestApp(map[string]string{"CENSYS_API_ID": "env-id", "CENSYS_API_SECRET": "env-secret"})

	code := a.run(baseArgs(url, "--censys-api-id", "flag-id", "--censys-api-secret", "flag-secret", "example.com"))

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "flag-id", stub.user.Load())
}

func TestConfigFileSuppliesSettings(t *testing.T) {
	stub := &censysStub{}
	url := stub.start(t)
	a, _, stderr := newTestApp(nil)

	path := filepath.Join(t.TempDir(), "censub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"censys:\n  api_id: file-id\n  api_secret: file-secret\n  api_url: "+url+"\n  rate_limit: 100\n"), 0644))

	code := a.run([]string{"--config", path, "--no-color", "example.com"})

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "file-id", stub.user.Load())
}

func TestSearchFailuresExitNonZero(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"unauthorized", http.StatusUnauthorized, "[-] Your Censys credentials look invalid.\n"},
		{"rate limited", http.StatusTooManyRequests, "[-] Looks like you exceeded your Censys account limits rate. Exiting\n"},
		{"server error", http.StatusInternalServerError, "[-] "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &censysStub{status: tt.status}
			url := stub.start(t)
			a, stdout, stderr := newTestApp(map[string]string{"CENSYS_API_ID": "id", "CENSYS_API_SECRET": "secret"})
			out := filepath.Join(t.TempDir(), "subs.txt")

			code := a.run(baseArgs(url, "-o", out, "example.com"))

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr.String(), tt.want)
			assert.NotContains(t, stdout.String(), "Found")
			_, err := os.Stat(out)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestUsageErrors(t *testing.T) {
	a, _, stderr := newTestApp(nil)
	assert.Equal(t, exitUsage, a.run([]string{}))
	assert.Contains(t, stderr.String(), "accepts 1 arg(s)")

	a, _, _ = newTestApp(nil)
	assert.Equal(t, exitUsage, a.run([]string{"--no-such-flag", "example.com"}))
}

func TestInvalidBackendIsConfigurationError(t *testing.T) {
	a, _, stderr := newTestApp(map[string]string{"CENSYS_API_ID": "id", "CENSYS_API_SECRET": "secret"})

	code := a.run([]string{"--resolver", "carrier-pigeon", "example.com"})

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown resolver backend")
}

func TestVersionFlag(t *testing.T) {
	a, stdout, _ := newTestApp(nil)

	assert.Equal(t, 0, a.run([]string{"--version"}))
	assert.Contains(t, stdout.String(), "censub version "+version)
}

func TestMetricsFileWrittenAfterRun(t *testing.T) {
	stub := &censysStub{}
	url := stub.start(t)
	a, _, stderr := newTestApp(map[string]string{"CENSYS_API_ID": "id", "CENSYS_API_SECRET": "secret"})
	path := filepath.Join(t.TempDir(), "censub.prom")

	code := a.run(baseArgs(url, "--metrics-file", path, "example.com"))
	require.Equal(t, 0, code, stderr.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "censub_subdomains_kept 2")
	assert.Contains(t, string(data), `censub_search_requests_total{status="200"}`)
}

func TestNegativeTimeoutRejected(t *testing.T) {
	stub := &censysStub{}
	url := stub.start(t)
	a, _, stderr := newTestApp(map[string]string{"CENSYS_API_ID": "id", "CENSYS_API_SECRET": "secret"})

	code := a.run(baseArgs(url, "--timeout=-5", "example.com"))

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "search timeout must be >= 0")
	assert.Zero(t, stub.calls.Load())
}
