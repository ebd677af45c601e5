package tui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dsmr-tools/dsmr-provision/internal/compose"
	"github.com/dsmr-tools/dsmr-provision/internal/device"
)

// Prompter collects the wizard's answers with plain line-based prompts,
// for sessions where stdin is not a terminal.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter creates a Prompter reading from in and writing to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Collect asks every question in order and returns the answers.
func (p *Prompter) Collect(devices []device.Serial) (*Answers, error) {
	username, err := p.required("Admin username")
	if err != nil {
		return nil, err
	}
	password, err := p.required("Admin password")
	if err != nil {
		return nil, err
	}
	secret, err := p.ask("Secret key (blank to generate)")
	if err != nil {
		return nil, err
	}
	if secret == "" {
		secret = compose.GenerateSecretKey()
	}

	a := &Answers{Settings: compose.Settings{
		Username:  username,
		Password:  password,
		SecretKey: secret,
	}}

	method, err := p.ask("Connection method (usb/tcp)")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(method) {
	case compose.MethodUSB:
		a.Settings.Method = compose.MethodUSB
		if len(devices) == 0 {
			return nil, fmt.Errorf("no serial adapters found under %s", device.SerialByIDDir)
		}
		for i, d := range devices {
			fmt.Fprintf(p.out, "  %d. %s (%s)\n", i+1, d.ID, d.Path)
		}
		choice, err := p.ask("Adapter number")
		if err != nil {
			return nil, err
		}
		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(devices) {
			return nil, fmt.Errorf("invalid adapter choice %q", choice)
		}
		a.DeviceID = devices[idx-1].ID
		a.Settings.DevicePath = devices[idx-1].Path
	case compose.MethodTCP:
		a.Settings.Method = compose.MethodTCP
		host, err := p.required("Reader host")
		if err != nil {
			return nil, err
		}
		portStr, err := p.required("Reader port")
		if err != nil {
			return nil, err
		}
		port, err := parsePort(portStr)
		if err != nil {
			return nil, err
		}
		a.Settings.TCPHost = host
		a.Settings.TCPPort = port
	default:
		return nil, fmt.Errorf("unknown connection method %q", method)
	}

	return a, nil
}

func (p *Prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *Prompter) required(label string) (string, error) {
	value, err := p.ask(label)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return value, nil
}
