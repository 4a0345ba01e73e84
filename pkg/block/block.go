// Package block implements spec.md §4.7's block action: installing
// firewall rules that drop traffic to and from a single anomalous
// address.
package block

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// CommandRunner executes an external command and returns its combined
// output. Swappable in tests so nothing shells out to a real firewall.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

const commandTimeout = 5 * time.Second

// Blocker installs iptables rules dropping traffic to/from a target IP.
// Only the rules for that address are affected; all other traffic,
// including the operator's own administration channel, is left alone.
type Blocker struct {
	runner CommandRunner
	logger *slog.Logger
}

// NewBlocker creates a Blocker. If runner is nil, a default runner backed
// by exec.CommandContext against the host's iptables binary is used.
func NewBlocker(runner CommandRunner, logger *slog.Logger) *Blocker {
	if runner == nil {
		runner = defaultRunner
	}
	return &Blocker{runner: runner, logger: logger}
}

// Block inserts DROP rules for inbound and outbound traffic to targetIP.
// Failure to install a rule is logged but not fatal, per spec.md §4.7.
func (b *Blocker) Block(ctx context.Context, targetIP string) error {
	rules := [][]string{
		{"-I", "INPUT", "-s", targetIP, "-j", "DROP"},
		{"-I", "OUTPUT", "-d", targetIP, "-j", "DROP"},
	}

	var firstErr error
	for _, args := range rules {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		out, err := b.runner(cctx, "iptables", args...)
		cancel()
		if err != nil {
			b.logger.Warn("failed to install firewall rule", "args", args, "output", out, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("installing rule %v: %w", args, err)
			}
			continue
		}
		b.logger.Info("installed firewall block rule", "target_ip", targetIP, "args", args)
	}
	return firstErr
}

func defaultRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}
