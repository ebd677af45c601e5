package pve

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/lxcconf"
)

// Dialect identifies which pct syntax the installed Proxmox version
// accepts for applying raw LXC configuration lines. The syntax changed
// across major releases, so it is probed once per run.
type Dialect string

const (
	DialectUnknown    Dialect = ""
	DialectDoubleDash Dialect = "double-dash" // pct set <id> --lxc.<key>=<val>
	DialectSingleDash Dialect = "single-dash" // pct set <id> -lxc.<key>=<val>
	DialectRawLXC     Dialect = "raw-lxc"     // pct set <id> --raw-lxc <key>=<val>
	DialectConfigFile Dialect = "config-file" // append to /etc/pve/lxc/<id>.conf
)

// probeOrder is the fixed preference order, most modern syntax first.
// DialectConfigFile is the last resort and always "accepted" as long as
// the configuration file is writable.
var probeOrder = []Dialect{DialectDoubleDash, DialectSingleDash, DialectRawLXC, DialectConfigFile}

// RawConfig applies raw LXC configuration lines to a container using the
// probed dialect. The probe is the real mutation: the first candidate
// whose trial invocation exits zero both applies the line and selects the
// dialect for every later call. A rejected candidate leaves no partial
// state, so no cleanup is needed between attempts.
type RawConfig struct {
	client  *Client
	dialect Dialect
}

// NewRawConfig creates a RawConfig applier for the client.
func NewRawConfig(client *Client) *RawConfig {
	return &RawConfig{client: client}
}

// Dialect returns the resolved dialect, or DialectUnknown before the
// first Apply.
func (r *RawConfig) Dialect() Dialect {
	return r.dialect
}

// Apply writes one raw LXC configuration line (key=value) to the
// container. The first call probes the candidate syntaxes in preference
// order; subsequent calls reuse the resolved dialect. Mixing dialects
// within a run is undefined behavior in pct, so once resolved the dialect
// is never re-probed.
func (r *RawConfig) Apply(ctx context.Context, ctid int, key, value string) error {
	if r.dialect != DialectUnknown {
		return r.applyWith(ctx, r.dialect, ctid, key, value)
	}

	var lastErr error
	for _, candidate := range probeOrder {
		err := r.applyWith(ctx, candidate, ctid, key, value)
		if err == nil {
			r.dialect = candidate
			logging.Debug("pct config dialect resolved", "dialect", candidate)
			return nil
		}
		logging.Debug("pct config dialect rejected", "dialect", candidate, "error", err)
		lastErr = err
	}

	return errors.DialectRejected(lastErr)
}

func (r *RawConfig) applyWith(ctx context.Context, d Dialect, ctid int, key, value string) error {
	id := strconv.Itoa(ctid)
	switch d {
	case DialectDoubleDash:
		_, err := r.client.exec.Execute(ctx, "pct", "set", id, fmt.Sprintf("--%s=%s", key, value))
		return err
	case DialectSingleDash:
		_, err := r.client.exec.Execute(ctx, "pct", "set", id, fmt.Sprintf("-%s=%s", key, value))
		return err
	case DialectRawLXC:
		_, err := r.client.exec.Execute(ctx, "pct", "set", id, "--raw-lxc", fmt.Sprintf("%s=%s", key, value))
		return err
	case DialectConfigFile:
		return r.applyToFile(ctid, key, value)
	default:
		return fmt.Errorf("unknown dialect %q", d)
	}
}

// applyToFile edits the persisted configuration directly: parse, replace
// any prior entry for the key, write back.
func (r *RawConfig) applyToFile(ctid int, key, value string) error {
	path := ConfPath(ctid)
	data, err := r.client.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	conf := lxcconf.Parse(data)
	conf.RemoveIf(func(e lxcconf.Entry) bool { return e.Key == key })
	conf.Append(key, value)

	if err := r.client.fs.WriteFile(path, conf.Serialize(), 0640); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// IsolationOverrides applies the raw configuration lines DSMR-reader's
// container needs: the AppArmor profile override and an empty capability
// drop list. All lines go through the same resolved dialect.
func (r *RawConfig) IsolationOverrides(ctx context.Context, ctid int) error {
	overrides := []struct{ key, value string }{
		{"lxc.apparmor.profile", "unconfined"},
		{"lxc.cap.drop", ""},
	}
	for _, o := range overrides {
		if err := r.Apply(ctx, ctid, o.key, o.value); err != nil {
			return err
		}
	}
	return nil
}
