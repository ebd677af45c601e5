// Package compose prepares and installs the DSMR-reader compose stack
// inside a provisioned container: fetching the upstream template pair,
// rewriting the environment file for the chosen connection method,
// patching the compose definition, and bringing the stack up.
package compose

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Connection methods for the datalogger.
const (
	MethodUSB = "usb" // local serial adapter passed through to the container
	MethodTCP = "tcp" // remote ser2net-style reader
)

// Environment keys rewritten in the upstream env template.
const (
	keyMode           = "DSMRREADER_DATALOGGER_MODE"
	keySerialPort     = "DSMRREADER_DATALOGGER_SERIAL_PORT"
	keySerialBaudrate = "DSMRREADER_DATALOGGER_SERIAL_BAUDRATE"
	keyTCPHost        = "DSMRREADER_DATALOGGER_TCP_HOST"
	keyTCPPort        = "DSMRREADER_DATALOGGER_TCP_PORT"
	keyAdminUser      = "DSMRREADER_ADMIN_USER"
	keyAdminPassword  = "DSMRREADER_ADMIN_PASSWORD"
	keySecretKey      = "DJANGO_SECRET_KEY"
)

// Settings holds the operator's answers for the compose stack.
type Settings struct {
	Username  string
	Password  string
	SecretKey string

	// Method is MethodUSB or MethodTCP.
	Method string

	// DevicePath is the in-container device node for MethodUSB.
	DevicePath string

	// TCPHost and TCPPort locate the remote reader for MethodTCP.
	TCPHost string
	TCPPort int
}

// Validate checks the settings are complete for the chosen method.
func (s *Settings) Validate() error {
	if s.Username == "" || s.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	switch s.Method {
	case MethodUSB:
		if s.DevicePath == "" {
			return fmt.Errorf("a device path is required for the usb method")
		}
	case MethodTCP:
		if s.TCPHost == "" || s.TCPPort == 0 {
			return fmt.Errorf("host and port are required for the tcp method")
		}
	default:
		return fmt.Errorf("unknown connection method %q", s.Method)
	}
	return nil
}

// GenerateSecretKey returns random secret key material for operators who
// leave the prompt blank.
func GenerateSecretKey() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// RenderEnv rewrites the upstream env template for the settings. Existing
// assignments for managed keys are replaced in place, commented-out
// assignments are activated, keys for the unselected connection method
// are dropped, and missing keys are appended. Unmanaged lines pass
// through untouched.
func RenderEnv(template []byte, s Settings) []byte {
	set := map[string]string{
		keyAdminUser:     s.Username,
		keyAdminPassword: s.Password,
		keySecretKey:     s.SecretKey,
		keyMode:          datalogger(s.Method),
	}
	var remove []string

	switch s.Method {
	case MethodUSB:
		set[keySerialPort] = s.DevicePath
		remove = []string{keyTCPHost, keyTCPPort}
	case MethodTCP:
		set[keyTCPHost] = s.TCPHost
		set[keyTCPPort] = fmt.Sprint(s.TCPPort)
		remove = []string{keySerialPort, keySerialBaudrate}
	}

	var out []string
	for _, line := range strings.Split(strings.TrimRight(string(template), "\n"), "\n") {
		key := assignedKey(line)
		if key == "" {
			out = append(out, line)
			continue
		}
		if contains(remove, key) {
			continue
		}
		if value, ok := set[key]; ok {
			out = append(out, key+"="+value)
			delete(set, key)
			continue
		}
		out = append(out, line)
	}

	// Managed keys the template never mentioned.
	for _, key := range []string{keyMode, keySerialPort, keyTCPHost, keyTCPPort, keyAdminUser, keyAdminPassword, keySecretKey} {
		if value, ok := set[key]; ok {
			out = append(out, key+"="+value)
		}
	}

	return []byte(strings.Join(out, "\n") + "\n")
}

// datalogger maps the operator-facing method name onto the value
// DSMR-reader expects.
func datalogger(method string) string {
	if method == MethodUSB {
		return "serial"
	}
	return "tcp"
}

// assignedKey extracts the key of a "KEY=VALUE" or "#KEY=VALUE" line, or
// "" when the line is not an assignment.
func assignedKey(line string) string {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	key, _, ok := strings.Cut(trimmed, "=")
	if !ok {
		return ""
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, " \t") {
		return ""
	}
	return key
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
