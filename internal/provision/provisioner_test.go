package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dsmr-tools/dsmr-provision/internal/compose"
	"github.com/dsmr-tools/dsmr-provision/internal/config"
	"github.com/dsmr-tools/dsmr-provision/internal/device"
	provErrors "github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/pve"
	"github.com/dsmr-tools/dsmr-provision/internal/system"
)

const testComposeTemplate = `services:
  dsmr:
    image: ghcr.io/xirixiz/dsmr-reader-docker:latest
  dsmrdb:
    image: postgres:16-alpine
`

const testEnvTemplate = `DJANGO_SECRET_KEY=changeme
DSMRREADER_DATALOGGER_MODE=serial
DSMRREADER_DATALOGGER_SERIAL_PORT=/dev/ttyUSB0
`

// fakeSource serves fixed template data without any network access.
type fakeSource struct {
	err error
}

func (f *fakeSource) FetchPair(ctx context.Context, composeURL, envURL string) ([]byte, []byte, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return []byte(testComposeTemplate), []byte(testEnvTemplate), nil
}

func newTestProvisioner() (*Provisioner, *system.MockExecutor, *system.MockFS) {
	exec := system.NewMockExecutor()
	exec.AddResponse("pvesh get /cluster/nextid", []byte("101\n"), nil)
	exec.AddResponse("pveam list local",
		[]byte("local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst 423.51MB\n"), nil)

	fs := system.NewMockFS()
	client := pve.NewClient(exec, fs)

	p := NewProvisioner(client, config.Default(), &fakeSource{})
	p.Delay = 0
	return p, exec, fs
}

func uploadedFile(exec *system.MockExecutor, path string) (string, bool) {
	for _, cmd := range exec.Commands {
		if strings.Contains(cmd.Line(), "cat > "+path) {
			return cmd.Stdin, true
		}
	}
	return "", false
}

func TestRun_USBEndToEnd(t *testing.T) {
	p, exec, _ := newTestProvisioner()

	res, err := p.Run(context.Background(), Options{
		Settings: compose.Settings{
			Username:   "gert",
			Password:   "pw",
			SecretKey:  "k",
			Method:     compose.MethodUSB,
			DevicePath: "/dev/ttyUSB0",
		},
		Device: device.Resolved{Path: "/dev/ttyUSB0", Major: 188, Minor: 0},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.CTID != 101 {
		t.Errorf("CTID = %d, want 101", res.CTID)
	}
	if res.Method != compose.MethodUSB {
		t.Errorf("Method = %q", res.Method)
	}
	if methodLabel(res.Method) != "USB" {
		t.Errorf("summary label = %q, want USB", methodLabel(res.Method))
	}

	// The device was granted before the container started.
	lines := exec.CommandLines()
	devIdx, startIdx := -1, -1
	for i, line := range lines {
		if strings.HasPrefix(line, "pct set 101 -dev0") && devIdx == -1 {
			devIdx = i
		}
		if line == "pct start 101" {
			startIdx = i
		}
	}
	if devIdx == -1 || startIdx == -1 || devIdx > startIdx {
		t.Errorf("device grant did not precede start: dev=%d start=%d\n%v", devIdx, startIdx, lines)
	}

	env, ok := uploadedFile(exec, "/opt/dsmr/.env")
	if !ok {
		t.Fatal("env file never uploaded")
	}
	if !strings.Contains(env, "DSMRREADER_DATALOGGER_MODE=serial") {
		t.Errorf("env missing serial mode:\n%s", env)
	}
	if !strings.Contains(env, "DSMRREADER_DATALOGGER_SERIAL_PORT=/dev/ttyUSB0") {
		t.Errorf("env missing serial port:\n%s", env)
	}

	composeData, ok := uploadedFile(exec, "/opt/dsmr/docker-compose.yml")
	if !ok {
		t.Fatal("compose file never uploaded")
	}
	if !strings.Contains(composeData, "/dev/ttyUSB0:/dev/ttyUSB0") {
		t.Errorf("compose missing device mapping:\n%s", composeData)
	}

	if n := exec.CountPrefix("pct exec 101"); n < 5 {
		t.Errorf("only %d in-container commands, expected setup plus install", n)
	}
}

func TestRun_TCPEndToEnd(t *testing.T) {
	p, exec, _ := newTestProvisioner()

	res, err := p.Run(context.Background(), Options{
		Settings: compose.Settings{
			Username:  "gert",
			Password:  "pw",
			SecretKey: "k",
			Method:    compose.MethodTCP,
			TCPHost:   "192.168.1.10",
			TCPPort:   2001,
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Method != compose.MethodTCP {
		t.Errorf("Method = %q", res.Method)
	}

	// No passthrough attempts for the tcp method.
	if n := exec.CountPrefix("pct set 101 -dev0"); n != 0 {
		t.Errorf("device passthrough attempted %d times for tcp", n)
	}

	env, ok := uploadedFile(exec, "/opt/dsmr/.env")
	if !ok {
		t.Fatal("env file never uploaded")
	}
	for _, want := range []string{
		"DSMRREADER_DATALOGGER_MODE=tcp",
		"DSMRREADER_DATALOGGER_TCP_HOST=192.168.1.10",
		"DSMRREADER_DATALOGGER_TCP_PORT=2001",
	} {
		if !strings.Contains(env, want) {
			t.Errorf("env missing %q:\n%s", want, env)
		}
	}
	if strings.Contains(env, "DSMRREADER_DATALOGGER_MODE=serial") {
		t.Errorf("stale serial mode entry remains:\n%s", env)
	}
	if strings.Contains(env, "DSMRREADER_DATALOGGER_SERIAL_PORT") {
		t.Errorf("stale serial port key remains:\n%s", env)
	}
}

func TestRun_MissingToolFailsEarly(t *testing.T) {
	p, exec, _ := newTestProvisioner()
	exec.MissingTools = []string{"pct"}

	_, err := p.Run(context.Background(), Options{
		Settings: compose.Settings{
			Username: "u", Password: "p",
			Method: compose.MethodTCP, TCPHost: "h", TCPPort: 23,
		},
	})
	if err == nil {
		t.Fatal("Run should fail without pct")
	}
	if provErrors.GetExitCode(err) != provErrors.ExitMissingTool {
		t.Errorf("exit code = %d, want %d", provErrors.GetExitCode(err), provErrors.ExitMissingTool)
	}
	if n := exec.CountPrefix("pvesh"); n != 0 {
		t.Errorf("provisioning proceeded past the prerequisite check")
	}
}

func TestRun_InvalidSettingsRejected(t *testing.T) {
	p, exec, _ := newTestProvisioner()

	_, err := p.Run(context.Background(), Options{
		Settings: compose.Settings{Username: "u", Password: "p", Method: compose.MethodUSB},
	})
	if err == nil {
		t.Fatal("Run should reject usb settings without a device")
	}
	if provErrors.GetExitCode(err) != provErrors.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", provErrors.GetExitCode(err), provErrors.ExitInvalidInput)
	}
	if len(exec.Commands) != 0 {
		t.Errorf("commands executed despite invalid settings: %v", exec.CommandLines())
	}
}

func TestRun_StartFailurePropagatesDiagnostics(t *testing.T) {
	p, exec, fs := newTestProvisioner()
	fs.AddFile("/etc/pve/lxc/101.conf", []byte("features: nesting=1\n"), 0640)
	exec.AddResponse("pct start 101", []byte("storage offline"), errors.New("exit status 1"))

	_, err := p.Run(context.Background(), Options{
		Settings: compose.Settings{
			Username: "u", Password: "p",
			Method: compose.MethodTCP, TCPHost: "h", TCPPort: 23,
		},
	})
	if err == nil {
		t.Fatal("Run should fail when the container cannot start")
	}
	if provErrors.GetExitCode(err) != provErrors.ExitContainerFailed {
		t.Errorf("exit code = %d, want %d", provErrors.GetExitCode(err), provErrors.ExitContainerFailed)
	}
	// Nothing was installed into a container that never started.
	if n := exec.CountPrefix("pct exec 101"); n != 0 {
		t.Errorf("%d in-container commands ran after a failed start", n)
	}
}

func TestFeatures_ForceNesting(t *testing.T) {
	cfg := config.Default()
	cfg.Features = "fuse=1"
	cfg.ForceNesting = true
	p := NewProvisioner(pve.NewClient(system.NewMockExecutor(), system.NewMockFS()), cfg, &fakeSource{})

	if got := p.features(); got != "fuse=1,nesting=1" {
		t.Errorf("features() = %q", got)
	}

	cfg.Features = "nesting=1,fuse=1"
	if got := p.features(); got != "nesting=1,fuse=1" {
		t.Errorf("features() with nesting already present = %q", got)
	}
}
