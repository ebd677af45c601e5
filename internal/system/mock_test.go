package system

import (
	"context"
	"errors"
	"io/fs"
	"testing"
)

func TestMockFS_ReadWrite(t *testing.T) {
	m := NewMockFS()

	if err := m.WriteFile("/etc/pve/lxc/101.conf", []byte("arch: amd64\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := m.ReadFile("/etc/pve/lxc/101.conf")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "arch: amd64\n" {
		t.Errorf("ReadFile = %q, want %q", data, "arch: amd64\n")
	}

	if _, err := m.ReadFile("/nonexistent"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile(nonexistent) = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_CharDevice(t *testing.T) {
	m := NewMockFS()
	m.AddCharDevice("/dev/ttyUSB0", 188, 0)

	if !m.IsCharDevice("/dev/ttyUSB0") {
		t.Error("IsCharDevice should be true for added char device")
	}

	major, minor, err := m.DeviceNumbers("/dev/ttyUSB0")
	if err != nil {
		t.Fatalf("DeviceNumbers failed: %v", err)
	}
	if major != 188 || minor != 0 {
		t.Errorf("DeviceNumbers = %d:%d, want 188:0", major, minor)
	}

	m.AddFile("/dev/null-plain", nil, 0644)
	if m.IsCharDevice("/dev/null-plain") {
		t.Error("IsCharDevice should be false for regular file")
	}
}

func TestMockFS_EvalSymlinks(t *testing.T) {
	m := NewMockFS()
	m.AddCharDevice("/dev/ttyUSB0", 188, 0)
	m.AddSymlink("/dev/serial/by-id/usb-FTDI_FT232R-if00-port0", "../../ttyUSB0")

	resolved, err := m.EvalSymlinks("/dev/serial/by-id/usb-FTDI_FT232R-if00-port0")
	if err != nil {
		t.Fatalf("EvalSymlinks failed: %v", err)
	}
	if resolved != "/dev/ttyUSB0" {
		t.Errorf("EvalSymlinks = %q, want %q", resolved, "/dev/ttyUSB0")
	}

	if _, err := m.EvalSymlinks("/dev/serial/by-id/missing"); err == nil {
		t.Error("EvalSymlinks of missing path should fail")
	}
}

func TestMockExecutor_PrefixMatching(t *testing.T) {
	m := NewMockExecutor()
	m.AddResponse("pct set 101 -dev0", nil, errors.New("unknown option"))
	m.AddResponse("pct set 101 -usb0", []byte(""), nil)
	m.DefaultResponse = MockResponse{Output: []byte("default")}

	// Longest matching prefix must win over shorter ones.
	m.AddResponse("pct set 101", nil, errors.New("generic failure"))

	if _, err := m.Execute(context.Background(), "pct", "set", "101", "-dev0", "path=/dev/ttyUSB0"); err == nil {
		t.Error("expected -dev0 response error")
	}
	if _, err := m.Execute(context.Background(), "pct", "set", "101", "-usb0", "/dev/ttyUSB0"); err != nil {
		t.Errorf("expected -usb0 success, got %v", err)
	}

	out, err := m.Execute(context.Background(), "pveam", "update")
	if err != nil || string(out) != "default" {
		t.Errorf("unmatched command should use default response, got %q, %v", out, err)
	}

	if len(m.Commands) != 3 {
		t.Errorf("recorded %d commands, want 3", len(m.Commands))
	}
}

func TestMockExecutor_CountPrefix(t *testing.T) {
	m := NewMockExecutor()
	ctx := context.Background()

	m.Execute(ctx, "pct", "start", "101")
	m.Execute(ctx, "pct", "start", "101")
	m.Execute(ctx, "pct", "exec", "101", "--", "sh", "-c", "true")

	if got := m.CountPrefix("pct start 101"); got != 2 {
		t.Errorf("CountPrefix = %d, want 2", got)
	}
}

func TestMockExecutor_LookPath(t *testing.T) {
	m := NewMockExecutor()
	m.MissingTools = []string{"pveam"}

	if _, err := m.LookPath("pct"); err != nil {
		t.Errorf("LookPath(pct) failed: %v", err)
	}
	if _, err := m.LookPath("pveam"); err == nil {
		t.Error("LookPath(pveam) should fail for missing tool")
	}
}

func TestMockExecutor_Stdin(t *testing.T) {
	m := NewMockExecutor()

	m.ExecuteWithStdin(context.Background(), "KEY=value\n", "pct", "exec", "101", "--", "sh", "-c", "cat > /opt/dsmr/.env")

	last, ok := m.LastCommand()
	if !ok {
		t.Fatal("no command recorded")
	}
	if last.Stdin != "KEY=value\n" {
		t.Errorf("Stdin = %q, want %q", last.Stdin, "KEY=value\n")
	}
}
