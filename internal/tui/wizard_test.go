package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dsmr-tools/dsmr-provision/internal/compose"
	"github.com/dsmr-tools/dsmr-provision/internal/device"
)

var testDevices = []device.Serial{
	{ID: "usb-FTDI_FT232R_USB_UART_A1B2C3-if00-port0", Path: "/dev/ttyUSB0"},
	{ID: "usb-Prolific_USB-Serial_Controller-if00-port0", Path: "/dev/ttyUSB1"},
}

func pressEnter(w *wizardModel) (bool, *Answers) {
	done, a, _ := w.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return done, a
}

func TestWizardStepTransitions(t *testing.T) {
	t.Run("username to password", func(t *testing.T) {
		w := newWizardModel(nil)
		if w.step != stepUsername {
			t.Fatalf("initial step = %v, want stepUsername", w.step)
		}

		w.usernameInput.SetValue("gert")
		done, a := pressEnter(&w)
		if done || a != nil {
			t.Error("should not be done after the username step")
		}
		if w.step != stepPassword {
			t.Errorf("step = %v, want stepPassword", w.step)
		}
	})

	t.Run("empty username rejected", func(t *testing.T) {
		w := newWizardModel(nil)
		pressEnter(&w)
		if w.step != stepUsername {
			t.Error("should stay on stepUsername with empty input")
		}
		if w.errText == "" {
			t.Error("expected an error message for the empty username")
		}
	})

	t.Run("empty password rejected", func(t *testing.T) {
		w := newWizardModel(nil)
		w.usernameInput.SetValue("gert")
		pressEnter(&w)
		pressEnter(&w)
		if w.step != stepPassword {
			t.Error("should stay on stepPassword with empty input")
		}
	})

	t.Run("blank secret key accepted", func(t *testing.T) {
		w := newWizardModel(nil)
		w.usernameInput.SetValue("gert")
		pressEnter(&w)
		w.passwordInput.SetValue("pw")
		pressEnter(&w)
		pressEnter(&w)
		if w.step != stepMethod {
			t.Errorf("step = %v, want stepMethod", w.step)
		}
	})

	t.Run("esc at first step cancels", func(t *testing.T) {
		w := newWizardModel(nil)
		done, a, _ := w.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if !done || a != nil {
			t.Error("Esc at the first step should cancel with nil answers")
		}
	})

	t.Run("ctrl-c cancels anywhere", func(t *testing.T) {
		w := newWizardModel(nil)
		w.step = stepMethod
		done, a, _ := w.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if !done || a != nil {
			t.Error("Ctrl+C should cancel with nil answers")
		}
	})
}

func TestWizardUSBFlow(t *testing.T) {
	w := newWizardModel(testDevices)
	w.usernameInput.SetValue("gert")
	pressEnter(&w)
	w.passwordInput.SetValue("pw")
	pressEnter(&w)
	w.secretInput.SetValue("mykey")
	pressEnter(&w)

	// First method choice is USB.
	if w.step != stepMethod {
		t.Fatalf("step = %v, want stepMethod", w.step)
	}
	pressEnter(&w)
	if w.step != stepDevice {
		t.Fatalf("step = %v, want stepDevice", w.step)
	}

	// Pick the first adapter.
	done, a := pressEnter(&w)
	if done || a != nil {
		t.Fatal("device pick should advance to confirm, not finish")
	}
	if w.step != stepConfirm {
		t.Fatalf("step = %v, want stepConfirm", w.step)
	}

	done, a = pressEnter(&w)
	if !done || a == nil {
		t.Fatal("confirm should finish the wizard")
	}

	if a.Settings.Method != compose.MethodUSB {
		t.Errorf("Method = %q", a.Settings.Method)
	}
	if a.Settings.DevicePath != "/dev/ttyUSB0" {
		t.Errorf("DevicePath = %q", a.Settings.DevicePath)
	}
	if a.DeviceID != testDevices[0].ID {
		t.Errorf("DeviceID = %q", a.DeviceID)
	}
	if a.Settings.SecretKey != "mykey" {
		t.Errorf("SecretKey = %q", a.Settings.SecretKey)
	}
	if err := a.Settings.Validate(); err != nil {
		t.Errorf("collected settings invalid: %v", err)
	}
}

func TestWizardTCPFlow(t *testing.T) {
	w := newWizardModel(nil)
	w.usernameInput.SetValue("gert")
	pressEnter(&w)
	w.passwordInput.SetValue("pw")
	pressEnter(&w)
	pressEnter(&w) // blank secret

	// Move to the TCP choice.
	w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	pressEnter(&w)
	if w.step != stepHost {
		t.Fatalf("step = %v, want stepHost", w.step)
	}

	w.hostInput.SetValue("192.168.1.10")
	pressEnter(&w)
	if w.step != stepPort {
		t.Fatalf("step = %v, want stepPort", w.step)
	}

	w.portInput.SetValue("2001")
	pressEnter(&w)
	if w.step != stepConfirm {
		t.Fatalf("step = %v, want stepConfirm", w.step)
	}

	done, a := pressEnter(&w)
	if !done || a == nil {
		t.Fatal("confirm should finish the wizard")
	}

	if a.Settings.Method != compose.MethodTCP {
		t.Errorf("Method = %q", a.Settings.Method)
	}
	if a.Settings.TCPHost != "192.168.1.10" || a.Settings.TCPPort != 2001 {
		t.Errorf("reader = %s:%d", a.Settings.TCPHost, a.Settings.TCPPort)
	}
	if a.Settings.SecretKey == "" {
		t.Error("blank secret key was not generated")
	}
	if err := a.Settings.Validate(); err != nil {
		t.Errorf("collected settings invalid: %v", err)
	}
}

func TestWizardUSBWithoutAdapters(t *testing.T) {
	w := newWizardModel(nil)
	w.step = stepMethod

	pressEnter(&w)
	if w.step != stepMethod {
		t.Errorf("step = %v, should stay on stepMethod without adapters", w.step)
	}
	if !strings.Contains(w.errText, "no serial adapters") {
		t.Errorf("errText = %q", w.errText)
	}
}

func TestWizardInvalidPortRejected(t *testing.T) {
	w := newWizardModel(nil)
	w.step = stepPort
	w.portInput.SetValue("70000")

	pressEnter(&w)
	if w.step != stepPort {
		t.Error("should stay on stepPort with an out-of-range port")
	}
	if w.errText == "" {
		t.Error("expected an error message for the invalid port")
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"2001", 2001, false},
		{" 23 ", 23, false},
		{"0", 0, true},
		{"65536", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePort(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePort(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parsePort(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
