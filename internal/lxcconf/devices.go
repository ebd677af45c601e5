package lxcconf

import (
	"fmt"
	"path"
	"strings"
)

// Conf-file keys used for raw device grants.
const (
	MountEntryKey  = "lxc.mount.entry"
	DeviceAllowKey = "lxc.cgroup2.devices.allow"
)

// DeviceGrant describes a host character device exposed to the container.
type DeviceGrant struct {
	HostPath string
	Major    uint32
	Minor    uint32
}

// ContainerPath returns the in-container path of the device, derived from
// the host device's base name.
func (g DeviceGrant) ContainerPath() string {
	return "/dev/" + path.Base(g.HostPath)
}

// mountEntry renders the bind-mount line granting the device node.
func (g DeviceGrant) mountEntry() string {
	return fmt.Sprintf("%s dev/%s none bind,optional,create=file", g.HostPath, path.Base(g.HostPath))
}

// deviceAllow renders the cgroup rule granting read/write/mknod access.
func (g DeviceGrant) deviceAllow() string {
	return fmt.Sprintf("c %d:%d rwm", g.Major, g.Minor)
}

// ApplyDeviceGrant writes the bind-mount and device-allow entries for the
// grant. Prior entries for the same device path or major:minor pair are
// removed first, so reapplying the same grant never duplicates lines.
func (f *File) ApplyDeviceGrant(g DeviceGrant) {
	f.RemoveIf(func(e Entry) bool {
		switch e.Key {
		case MountEntryKey:
			return strings.HasPrefix(e.Value, g.HostPath+" ")
		case DeviceAllowKey:
			return strings.HasPrefix(e.Value, fmt.Sprintf("c %d:%d ", g.Major, g.Minor))
		}
		return false
	})
	f.Append(MountEntryKey, g.mountEntry())
	f.Append(DeviceAllowKey, g.deviceAllow())
}
