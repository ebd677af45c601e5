package compose

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const composeTemplate = `services:
  dsmr:
    image: ghcr.io/xirixiz/dsmr-reader-docker:latest
    ports:
      - 7777:80
    environment:
      - TZ=Europe/Amsterdam
  dsmrdb:
    image: postgres:16-alpine
`

func TestPatchCompose_USBAddsDeviceMapping(t *testing.T) {
	s := Settings{Method: MethodUSB, DevicePath: "/dev/ttyUSB0"}

	got, err := PatchCompose([]byte(composeTemplate), s)
	if err != nil {
		t.Fatalf("PatchCompose failed: %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(got, &doc); err != nil {
		t.Fatalf("patched output is not valid yaml: %v", err)
	}

	services := doc["services"].(map[string]any)
	dsmr := services["dsmr"].(map[string]any)
	devices, ok := dsmr["devices"].([]any)
	if !ok || len(devices) != 1 {
		t.Fatalf("devices = %#v, want one entry", dsmr["devices"])
	}
	if devices[0] != "/dev/ttyUSB0:/dev/ttyUSB0" {
		t.Errorf("devices[0] = %q", devices[0])
	}

	// The database service must be untouched.
	if _, ok := services["dsmrdb"].(map[string]any)["devices"]; ok {
		t.Error("devices mapping leaked into the dsmrdb service")
	}
}

func TestPatchCompose_TCPStripsDeviceMapping(t *testing.T) {
	withDevices := strings.Replace(composeTemplate,
		"    image: ghcr.io/xirixiz/dsmr-reader-docker:latest\n",
		"    image: ghcr.io/xirixiz/dsmr-reader-docker:latest\n    devices:\n      - /dev/ttyUSB0:/dev/ttyUSB0\n", 1)

	got, err := PatchCompose([]byte(withDevices), Settings{Method: MethodTCP})
	if err != nil {
		t.Fatalf("PatchCompose failed: %v", err)
	}

	if strings.Contains(string(got), "devices") {
		t.Errorf("devices mapping not removed for tcp:\n%s", got)
	}
}

func TestPatchCompose_RejectsUnexpectedDefinition(t *testing.T) {
	if _, err := PatchCompose([]byte("services:\n  other: {}\n"), Settings{Method: MethodUSB, DevicePath: "/dev/x"}); err == nil {
		t.Error("PatchCompose should fail when the datalogger service is absent")
	}
	if _, err := PatchCompose([]byte("not: compose\n"), Settings{Method: MethodUSB, DevicePath: "/dev/x"}); err == nil {
		t.Error("PatchCompose should fail without a services section")
	}
}
