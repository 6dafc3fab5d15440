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
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait lingers on output pipes after the command is killed.
const waitDelay = time.Second

// HostCommand runs an external lookup utility ("host" by default) with the
// hostname as its only argument. The name is passed as an argv entry, never
// through a shell.
type HostCommand struct {
	Path    string
	Timeout time.Duration // per invocation; 0 means no limit
}

// NewHostCommand returns a HostCommand for path, or "host" when path is empty.
func NewHostCommand(path string, timeout time.Duration) *HostCommand {
	if path == "" {
		path = "host"
	}
	return &HostCommand{Path: path, Timeout: timeout}
}

// Resolve runs the command and returns its trimmed standard output.
// A non-zero exit yields a *LookupError whose Output is the command's own
// message (stdout, then stderr) so it can be recorded verbatim.
func (h *HostCommand) Resolve(ctx context.Context, host string) (string, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, h.Path, host)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stdout.String())
		if detail == "" {
			detail = strings.TrimSpace(stderr.String())
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			detail = ""
			err = ctx.Err()
		}
		return "", &LookupError{Host: host, Output: detail, Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}
