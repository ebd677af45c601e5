// Package passthrough grants a container access to a host serial device,
// working around the differing pct option spellings across Proxmox
// releases.
package passthrough

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dsmr-tools/dsmr-provision/internal/device"
	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/lxcconf"
	"github.com/dsmr-tools/dsmr-provision/internal/pve"
)

// Method identifies how the device was granted.
type Method string

const (
	MethodStructured Method = "structured" // pct set <id> -dev0 path=<dev>
	MethodBareDev    Method = "bare-dev"   // pct set <id> -dev0 <dev>
	MethodBareUSB    Method = "bare-usb"   // pct set <id> -usb0 <dev>
	MethodConfFile   Method = "conf-file"  // mount entry + cgroup rule
)

// Result reports which strategy granted the device.
type Result struct {
	Method Method

	// ContainerPath is where the device appears inside the container.
	ContainerPath string
}

// Configurator attaches a resolved serial device to a container. The
// strategies are tried in a fixed order, newest pct spelling first, and
// the first one whose invocation exits zero wins. Every strategy is
// idempotent, so a re-run against an already-configured container leaves
// a single grant in place.
type Configurator struct {
	client *pve.Client
}

// NewConfigurator creates a Configurator for the client.
func NewConfigurator(client *pve.Client) *Configurator {
	return &Configurator{client: client}
}

// Attach grants the device to the container and reports the strategy
// that succeeded.
func (c *Configurator) Attach(ctx context.Context, ctid int, dev device.Resolved) (*Result, error) {
	id := strconv.Itoa(ctid)

	strategies := []struct {
		method Method
		args   []string
	}{
		{MethodStructured, []string{"set", id, "-dev0", "path=" + dev.Path}},
		{MethodBareDev, []string{"set", id, "-dev0", dev.Path}},
		{MethodBareUSB, []string{"set", id, "-usb0", dev.Path}},
	}

	var lastErr error
	for _, s := range strategies {
		_, err := c.client.Exec().Execute(ctx, "pct", s.args...)
		if err == nil {
			logging.Debug("device passthrough configured", "ctid", ctid, "method", s.method, "device", dev.Path)
			return &Result{Method: s.method, ContainerPath: containerPath(dev)}, nil
		}
		logging.Debug("passthrough strategy rejected", "ctid", ctid, "method", s.method, "error", err)
		lastErr = err
	}

	if err := c.attachViaConfFile(ctid, dev); err != nil {
		return nil, errors.DeviceError(fmt.Sprintf("all passthrough strategies failed for %s", dev.Path), lastErr)
	}
	logging.Debug("device passthrough configured", "ctid", ctid, "method", MethodConfFile, "device", dev.Path)
	return &Result{Method: MethodConfFile, ContainerPath: containerPath(dev)}, nil
}

// attachViaConfFile edits the persisted configuration directly, writing a
// bind-mount entry for the device node and a cgroup rule allowing it.
func (c *Configurator) attachViaConfFile(ctid int, dev device.Resolved) error {
	path := pve.ConfPath(ctid)
	data, err := c.client.FS().ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	conf := lxcconf.Parse(data)
	conf.ApplyDeviceGrant(lxcconf.DeviceGrant{
		HostPath: dev.Path,
		Major:    dev.Major,
		Minor:    dev.Minor,
	})

	return c.client.FS().WriteFile(path, conf.Serialize(), 0640)
}

func containerPath(dev device.Resolved) string {
	return lxcconf.DeviceGrant{HostPath: dev.Path}.ContainerPath()
}
