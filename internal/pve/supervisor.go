package pve

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/lxcconf"
)

// State is the startup supervisor state.
type State string

const (
	StateNotStarted             State = "not-started"
	StateStarting               State = "starting"
	StateRunning                State = "running"
	StateRetryingWithoutNesting State = "retrying-without-nesting"
	StateFailed                 State = "failed"
)

// DiagnosticLines is the maximum number of log lines captured on a
// terminal start failure.
const DiagnosticLines = 200

// StartOutcome summarizes a supervised start.
type StartOutcome struct {
	State          State
	Attempts       int
	NestingDropped bool

	// Diagnostic holds the failed start's output plus captured log lines.
	// Empty when the start succeeded.
	Diagnostic string
}

// Supervisor starts a container and recovers from exactly one known
// failure class: the AppArmor profile override conflicting with the
// nesting feature. Any other failure is terminal after one attempt.
type Supervisor struct {
	client *Client

	// ConflictSignature recognizes the recoverable conflict in the start
	// diagnostics. Tool-version-specific, so injected rather than fixed.
	ConflictSignature *regexp.Regexp

	// KeepNesting pins the nesting feature: the conflict recovery is
	// skipped and the conflict becomes terminal.
	KeepNesting bool
}

// NewSupervisor creates a Supervisor for the client.
func NewSupervisor(client *Client, conflictSignature *regexp.Regexp, keepNesting bool) *Supervisor {
	return &Supervisor{
		client:            client,
		ConflictSignature: conflictSignature,
		KeepNesting:       keepNesting,
	}
}

// Start drives the start state machine. At most two start attempts are
// ever issued: the initial one, plus a single retry after dropping the
// nesting feature flag.
func (s *Supervisor) Start(ctx context.Context, ctid int) (*StartOutcome, error) {
	outcome := &StartOutcome{State: StateNotStarted}

	outcome.State = StateStarting
	outcome.Attempts = 1
	out, err := s.client.Start(ctx, ctid)
	if err == nil {
		outcome.State = StateRunning
		return outcome, nil
	}

	logging.Warn("container start failed", "ctid", ctid, "attempt", 1)

	if !s.ConflictSignature.MatchString(out) {
		logging.Warn("unrecognized failure, not retrying", "ctid", ctid)
		return s.fail(ctx, ctid, outcome, out)
	}
	if s.KeepNesting {
		logging.Warn("nesting pinned by operator, not retrying", "ctid", ctid)
		return s.fail(ctx, ctid, outcome, out)
	}

	outcome.State = StateRetryingWithoutNesting
	if err := s.dropNesting(ctid); err != nil {
		return s.fail(ctx, ctid, outcome, out+"\n"+err.Error())
	}
	outcome.NestingDropped = true
	logging.UserWarning("AppArmor profile conflicts with nesting; retrying with nesting disabled (container isolation may be weaker)")

	outcome.Attempts = 2
	out, err = s.client.Start(ctx, ctid)
	if err == nil {
		outcome.State = StateRunning
		return outcome, nil
	}

	return s.fail(ctx, ctid, outcome, out)
}

// dropNesting rewrites the container's feature flag list, removing only
// the nesting entry and preserving every other flag verbatim.
func (s *Supervisor) dropNesting(ctid int) error {
	path := ConfPath(ctid)
	data, err := s.client.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	conf := lxcconf.Parse(data)
	features := conf.Features()
	rewritten := lxcconf.RemoveFeature(features, "nesting")
	if rewritten == features {
		return fmt.Errorf("nesting feature not present in %q", features)
	}
	conf.SetFeatures(rewritten)

	logging.Debug("feature flags rewritten", "ctid", ctid, "before", features, "after", rewritten)
	return s.client.fs.WriteFile(path, conf.Serialize(), 0640)
}

func (s *Supervisor) fail(ctx context.Context, ctid int, outcome *StartOutcome, diag string) (*StartOutcome, error) {
	outcome.State = StateFailed
	outcome.Diagnostic = strings.TrimSpace(diag)

	if captured := s.collectDiagnostics(ctx, ctid); captured != "" {
		outcome.Diagnostic += "\n" + captured
	}

	return outcome, fmt.Errorf("container %d failed to start", ctid)
}

// collectDiagnostics gathers up to DiagnosticLines recent log lines, in
// order of preference: the per-container log file, the container's
// service unit journal, then a debug-mode start attempt's log file.
func (s *Supervisor) collectDiagnostics(ctx context.Context, ctid int) string {
	logPath := fmt.Sprintf("/var/log/pve/lxc/%d.log", ctid)
	if data, err := s.client.fs.ReadFile(logPath); err == nil {
		return tailLines(string(data), DiagnosticLines)
	}

	unit := fmt.Sprintf("pve-container@%d", ctid)
	if out, err := s.client.exec.Execute(ctx, "journalctl", "-u", unit, "-n", fmt.Sprint(DiagnosticLines), "--no-pager"); err == nil && len(out) > 0 {
		return tailLines(string(out), DiagnosticLines)
	}

	debugLog := fmt.Sprintf("%s/lxc-%d-debug.log", os.TempDir(), ctid)
	if _, err := s.client.exec.Execute(ctx, "lxc-start", "-n", fmt.Sprint(ctid), "-F", "-l", "DEBUG", "-o", debugLog); err == nil {
		logging.Debug("debug start attempt unexpectedly succeeded", "ctid", ctid)
	}
	if data, err := s.client.fs.ReadFile(debugLog); err == nil {
		return tailLines(string(data), DiagnosticLines)
	}

	return ""
}

// tailLines returns the last n lines of s.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
