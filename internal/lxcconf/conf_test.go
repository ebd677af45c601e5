package lxcconf

import (
	"strings"
	"testing"
)

const sampleConf = `arch: amd64
cores: 2
features: nesting=1,fuse=1,keyctl=1
hostname: dsmr
memory: 2048
net0: name=eth0,bridge=vmbr0,ip=dhcp
ostype: debian
rootfs: local-lvm:vm-101-disk-0,size=8G
`

func TestParseSerialize_RoundTrip(t *testing.T) {
	f := Parse([]byte(sampleConf))
	if got := string(f.Serialize()); got != sampleConf {
		t.Errorf("round trip changed file:\ngot:\n%s\nwant:\n%s", got, sampleConf)
	}
}

func TestParse_PreservesCommentsAndSections(t *testing.T) {
	conf := "# managed by dsmr-provision\nfeatures: nesting=1\n\n[snap1]\nfeatures: nesting=1\n"
	f := Parse([]byte(conf))

	if got := string(f.Serialize()); got != conf {
		t.Errorf("round trip changed file:\ngot:\n%q\nwant:\n%q", got, conf)
	}

	// Snapshot section entries are untouched by transformations.
	f.SetFeatures("fuse=1")
	out := string(f.Serialize())
	if !strings.Contains(out, "[snap1]\nfeatures: nesting=1") {
		t.Errorf("snapshot section was modified:\n%s", out)
	}
	if !strings.Contains(out, "# managed by dsmr-provision\nfeatures: fuse=1") {
		t.Errorf("main section features not rewritten:\n%s", out)
	}
}

func TestGetSetAppend(t *testing.T) {
	f := Parse([]byte(sampleConf))

	v, ok := f.Get("hostname")
	if !ok || v != "dsmr" {
		t.Errorf("Get(hostname) = %q, %v", v, ok)
	}

	f.Set("hostname", "meterbox")
	if v, _ := f.Get("hostname"); v != "meterbox" {
		t.Errorf("Set did not replace value, got %q", v)
	}

	f.Append("lxc.apparmor.profile", "unconfined")
	if v, _ := f.Get("lxc.apparmor.profile"); v != "unconfined" {
		t.Errorf("Append did not add entry, got %q", v)
	}
}

func TestAppend_BeforeSnapshotSection(t *testing.T) {
	conf := "features: nesting=1\n[snap1]\ncores: 1\n"
	f := Parse([]byte(conf))

	f.Append("lxc.apparmor.profile", "unconfined")

	out := string(f.Serialize())
	idx := strings.Index(out, "lxc.apparmor.profile: unconfined")
	section := strings.Index(out, "[snap1]")
	if idx == -1 || section == -1 || idx > section {
		t.Errorf("appended entry should precede snapshot section:\n%s", out)
	}
}

func TestRemoveFeature(t *testing.T) {
	tests := []struct {
		features string
		drop     string
		want     string
	}{
		{"nesting=1,fuse=1,keyctl=1", "nesting", "fuse=1,keyctl=1"},
		{"fuse=1,nesting=1,keyctl=1", "nesting", "fuse=1,keyctl=1"},
		{"fuse=1,keyctl=1,nesting=1", "nesting", "fuse=1,keyctl=1"},
		{"nesting=1", "nesting", ""},
		{"fuse=1,keyctl=1", "nesting", "fuse=1,keyctl=1"},
		{"", "nesting", ""},
	}

	for _, tt := range tests {
		t.Run(tt.features, func(t *testing.T) {
			if got := RemoveFeature(tt.features, tt.drop); got != tt.want {
				t.Errorf("RemoveFeature(%q, %q) = %q, want %q", tt.features, tt.drop, got, tt.want)
			}
		})
	}
}

func TestHasFeature(t *testing.T) {
	tests := []struct {
		features string
		name     string
		want     bool
	}{
		{"nesting=1,fuse=1", "nesting", true},
		{"nesting=0,fuse=1", "nesting", false},
		{"fuse=1", "nesting", false},
		{"", "nesting", false},
	}

	for _, tt := range tests {
		if got := HasFeature(tt.features, tt.name); got != tt.want {
			t.Errorf("HasFeature(%q, %q) = %v, want %v", tt.features, tt.name, got, tt.want)
		}
	}
}

func TestSetFeatures_EmptyRemovesEntry(t *testing.T) {
	f := Parse([]byte(sampleConf))
	f.SetFeatures("")

	if _, ok := f.Get(FeaturesKey); ok {
		t.Error("empty feature list should remove the features entry")
	}
}

func TestApplyDeviceGrant(t *testing.T) {
	f := Parse([]byte(sampleConf))
	g := DeviceGrant{HostPath: "/dev/ttyUSB0", Major: 188, Minor: 0}

	f.ApplyDeviceGrant(g)

	out := string(f.Serialize())
	if !strings.Contains(out, "lxc.mount.entry: /dev/ttyUSB0 dev/ttyUSB0 none bind,optional,create=file") {
		t.Errorf("missing mount entry:\n%s", out)
	}
	if !strings.Contains(out, "lxc.cgroup2.devices.allow: c 188:0 rwm") {
		t.Errorf("missing device-allow entry:\n%s", out)
	}
	if g.ContainerPath() != "/dev/ttyUSB0" {
		t.Errorf("ContainerPath = %q, want /dev/ttyUSB0", g.ContainerPath())
	}
}

func TestApplyDeviceGrant_Idempotent(t *testing.T) {
	f := Parse([]byte(sampleConf))
	g := DeviceGrant{HostPath: "/dev/ttyUSB0", Major: 188, Minor: 0}

	f.ApplyDeviceGrant(g)
	f.ApplyDeviceGrant(g)

	if n := len(f.Entries(MountEntryKey)); n != 1 {
		t.Errorf("mount entries = %d, want exactly 1", n)
	}
	if n := len(f.Entries(DeviceAllowKey)); n != 1 {
		t.Errorf("device-allow entries = %d, want exactly 1", n)
	}
}

func TestApplyDeviceGrant_ReplacesStaleNumbers(t *testing.T) {
	f := Parse([]byte(sampleConf))

	// Device re-enumerated with a new minor number after replugging.
	f.ApplyDeviceGrant(DeviceGrant{HostPath: "/dev/ttyUSB0", Major: 188, Minor: 1})
	f.ApplyDeviceGrant(DeviceGrant{HostPath: "/dev/ttyUSB0", Major: 188, Minor: 0})

	if n := len(f.Entries(MountEntryKey)); n != 1 {
		t.Errorf("mount entries = %d, want exactly 1", n)
	}

	allows := f.Entries(DeviceAllowKey)
	// The stale 188:1 rule remains (removing it requires the old numbers),
	// but the current rule must be present exactly once.
	current := 0
	for _, e := range allows {
		if e.Value == "c 188:0 rwm" {
			current++
		}
	}
	if current != 1 {
		t.Errorf("current device-allow rule count = %d, want 1", current)
	}
}
