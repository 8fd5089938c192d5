// Package hooks runs user commands when the wireless association changes.
package hooks

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/iwmon/internal/iwevent"
	"github.com/dmdmdm-nz/iwmon/internal/metrics"
	"github.com/dmdmdm-nz/iwmon/internal/procgroup"
)

const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long Run waits for output after the hook was killed.
const waitDelay = time.Second

// Hook is a command line bound to one event kind.
type Hook struct {
	Kind    iwevent.EventKind
	Argv    []string
	Timeout time.Duration
}

// Parse splits a shell-like command line into a Hook. Quoting follows
// POSIX shell word splitting; no shell is involved when the hook runs.
func Parse(kind iwevent.EventKind, cmdline string, timeout time.Duration) (Hook, error) {
	if !iwevent.IsKnown(kind) {
		return Hook{}, fmt.Errorf("%w: %q", iwevent.ErrUnsupportedEvent, string(kind))
	}
	argv, err := shlex.Split(cmdline)
	if err != nil {
		return Hook{}, fmt.Errorf("parse hook %q: %w", cmdline, err)
	}
	if len(argv) == 0 {
		return Hook{}, fmt.Errorf("empty hook command for %s", kind)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Hook{Kind: kind, Argv: argv, Timeout: timeout}, nil
}

// Run executes the hook and waits for it to finish or time out. On timeout
// the hook's whole process group is killed.
func (h Hook) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.Argv[0], h.Argv[1:]...)
	procgroup.Configure(cmd)
	cmd.Cancel = func() error { return procgroup.Kill(cmd) }
	cmd.WaitDelay = waitDelay

	out, err := cmd.CombinedOutput()

	entry := log.WithFields(log.Fields{
		"event": h.Kind,
		"hook":  strings.Join(h.Argv, " "),
	})
	if len(out) > 0 {
		entry.WithField("output", strings.TrimSpace(string(out))).Debug("Hook output")
	}
	if err != nil {
		metrics.HookRunsTotal.WithLabelValues(string(h.Kind), "error").Inc()
		entry.WithError(err).Warn("Hook failed")
		return err
	}
	metrics.HookRunsTotal.WithLabelValues(string(h.Kind), "ok").Inc()
	entry.Debug("Hook finished")
	return nil
}

// Options turns hooks into monitor callbacks.
func Options(hooks []Hook) []iwevent.Option {
	opts := make([]iwevent.Option, 0, len(hooks))
	for _, h := range hooks {
		opts = append(opts, iwevent.WithCallback(h.Kind, func() { _ = h.Run() }))
	}
	return opts
}
