// Package device discovers and resolves host serial adapters for
// passthrough into a container.
package device

import (
	"fmt"
	"sort"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/system"
)

// SerialByIDDir is where the kernel exposes stable symlinks for
// USB-attached serial adapters.
const SerialByIDDir = "/dev/serial/by-id"

// Serial is a discovered serial adapter: the stable by-id name and the
// device node it currently points at.
type Serial struct {
	ID   string
	Path string
}

// Resolved is a serial device validated for passthrough.
type Resolved struct {
	// Path is the absolute device node path after symlink resolution.
	Path string

	// Major and Minor identify the device to the kernel's cgroup rules.
	Major uint32
	Minor uint32
}

// Resolver discovers and validates serial devices.
type Resolver struct {
	fs system.FileSystem
}

// NewResolver creates a Resolver backed by the given filesystem.
func NewResolver(fs system.FileSystem) *Resolver {
	return &Resolver{fs: fs}
}

// List returns the connected serial adapters, sorted by id. An absent
// by-id directory means no adapters are connected and is not an error.
func (r *Resolver) List() ([]Serial, error) {
	if !r.fs.Exists(SerialByIDDir) {
		return nil, nil
	}

	entries, err := r.fs.ReadDir(SerialByIDDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", SerialByIDDir, err)
	}

	var devices []Serial
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path, err := r.resolveByID(e.Name())
		if err != nil {
			logging.Debug("skipping unresolvable serial device", "id", e.Name(), "error", err)
			continue
		}
		devices = append(devices, Serial{ID: e.Name(), Path: path})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// resolveByID resolves a by-id entry name to its device node path. The
// name is operator-selected, so it is joined without trusting it to stay
// inside the by-id directory.
func (r *Resolver) resolveByID(name string) (string, error) {
	linkPath, err := securejoin.SecureJoin(SerialByIDDir, name)
	if err != nil {
		return "", fmt.Errorf("invalid device name %q: %w", name, err)
	}
	return r.fs.EvalSymlinks(linkPath)
}

// Resolve validates a device path for passthrough: the path (after
// following symlinks) must exist and be a character special file.
func (r *Resolver) Resolve(path string) (*Resolved, error) {
	target, err := r.fs.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", path, err)
	}

	if !r.fs.IsCharDevice(target) {
		return nil, fmt.Errorf("%s resolves to %s, which is not a character device", path, target)
	}

	major, minor, err := r.fs.DeviceNumbers(target)
	if err != nil {
		return nil, fmt.Errorf("cannot stat device numbers for %s: %w", target, err)
	}

	logging.Debug("resolved serial device", "path", target, "major", major, "minor", minor)
	return &Resolved{Path: target, Major: major, Minor: minor}, nil
}
