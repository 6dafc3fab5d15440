package resolve

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTargets(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subs.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestRunnerRecordsFailureInline(t *testing.T) {
	t.Parallel()

	input := writeTargets(t, "a.example.com", "b.example.com", "c.example.com")
	result := input + ".dns"

	var calls []string
	r := &Runner{
		Resolver: ResolverFunc(func(_ context.Context, host string) (string, error) {
			calls = append(calls, host)
			if host == "b.example.com" {
				return "", &LookupError{Host: host, Output: "Host b.example.com not found: 3(NXDOMAIN)\n", Err: errors.New("exit status 1")}
			}
			return "  " + host + " has address 192.0.2.1\n", nil
		}),
		Backend: "fake",
	}

	sum, err := r.Run(context.Background(), input, result)
	require.NoError(t, err)
	assert.Equal(t, Summary{Targets: 3, Resolved: 2, Failed: 1}, sum)
	assert.Equal(t, []string{"a.example.com", "b.example.com", "c.example.com"}, calls)

	b, err := os.ReadFile(result)
	require.NoError(t, err)
	assert.Equal(t,
		"a.example.com has address 192.0.2.1\n"+
			"Host b.example.com not found: 3(NXDOMAIN)\n"+
			"c.example.com has address 192.0.2.1\n",
		string(b))
}

func TestRunnerFoldsMultiLineOutput(t *testing.T) {
	t.Parallel()

	input := writeTargets(t, "a.example.com", "b.example.com", "c.example.com")
	result := input + ".dns"

	r := &Runner{Resolver: ResolverFunc(func(_ context.Context, host string) (string, error) {
		if host == "b.example.com" {
			return "", &LookupError{Host: host, Output: ";; connection timed out\n;; no servers could be reached\n"}
		}
		return host + " has address 192.0.2.1\n" +
			host + " has IPv6 address 2001:db8::1\n\n" +
			host + " mail is handled by 10 mx.example.com.\n", nil
	})}

	_, err := r.Run(context.Background(), input, result)
	require.NoError(t, err)

	b, err := os.ReadFile(result)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a.example.com has address 192.0.2.1; a.example.com has IPv6 address 2001:db8::1; "+
		"a.example.com mail is handled by 10 mx.example.com.", lines[0])
	assert.Equal(t, ";; connection timed out; ;; no servers could be reached", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "c.example.com has address"))
}

func TestOneLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a; b", OneLine("  a \n\n b\n"))
	assert.Equal(t, "single", OneLine("single\n"))
	assert.Empty(t, OneLine("\n \n"))
}

func TestRunnerAppendsToExistingResults(t *testing.T) {
	t.Parallel()

	input := writeTargets(t, "a.example.com")
	result := input + ".dns"
	require.NoError(t, os.WriteFile(result, []byte("previous run\n"), 0644))

	r := &Runner{Resolver: ResolverFunc(func(context.Context, string) (string, error) { return "ok", nil })}
	_, err := r.Run(context.Background(), input, result)
	require.NoError(t, err)

	b, err := os.ReadFile(result)
	require.NoError(t, err)
	assert.Equal(t, "previous run\nok\n", string(b))
}

func TestRunnerContinuesAfterAppendFailure(t *testing.T) {
	t.Parallel()

	input := writeTargets(t, "a.example.com", "b.example.com")
	result := filepath.Join(t.TempDir(), "missing-dir", "subs.txt.dns")

	var failed []string
	lookups := 0
	r := &Runner{
		Resolver: ResolverFunc(func(context.Context, string) (string, error) {
			lookups++
			return "ok", nil
		}),
		OnAppendError: func(_, target string, _ error) { failed = append(failed, target) },
	}

	sum, err := r.Run(context.Background(), input, result)
	require.NoError(t, err)
	assert.Equal(t, 2, lookups)
	assert.Equal(t, 2, sum.AppendErrors)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, failed)
}

func TestRunnerMissingInput(t *testing.T) {
	t.Parallel()

	r := &Runner{Resolver: ResolverFunc(func(context.Context, string) (string, error) { return "", nil })}
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "none.txt"), filepath.Join(t.TempDir(), "none.txt.dns"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	t.Parallel()

	input := writeTargets(t, "a.example.com", "b.example.com")
	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{Resolver: ResolverFunc(func(context.Context, string) (string, error) {
		cancel()
		return "ok", nil
	})}
	sum, err := r.Run(ctx, input, input+".dns")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Resolved)
}

func TestRunnerProgressBar(t *testing.T) {
	t.Parallel()

	input := writeTargets(t, "a.example.com")
	var progress bytes.Buffer
	r := &Runner{
		Resolver: ResolverFunc(func(context.Context, string) (string, error) { return "ok", nil }),
		Progress: &progress,
	}
	_, err := r.Run(context.Background(), input, input+".dns")
	require.NoError(t, err)
	assert.NotEmpty(t, progress.String())
}

func TestDetail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Host x not found", Detail(&LookupError{Host: "x", Output: " Host x not found \n"}))
	assert.Equal(t, "lookup x: boom", Detail(&LookupError{Host: "x", Err: errors.New("boom")}))
	assert.Equal(t, "plain", Detail(errors.New("plain\n")))
}
