package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dsmr-tools/dsmr-provision/internal/compose"
	"github.com/dsmr-tools/dsmr-provision/internal/device"
)

// wizardStep identifies the current step.
type wizardStep int

const (
	stepUsername wizardStep = iota
	stepPassword
	stepSecretKey
	stepMethod
	stepDevice
	stepHost
	stepPort
	stepConfirm
)

// Answers holds everything the wizard collected.
type Answers struct {
	Settings compose.Settings

	// DeviceID is the chosen adapter's by-id name for the usb method.
	DeviceID string
}

// wizardModel drives the multi-step provisioning wizard.
type wizardModel struct {
	step    wizardStep
	devices []device.Serial

	usernameInput  textinput.Model
	passwordInput  textinput.Model
	secretInput    textinput.Model
	hostInput      textinput.Model
	portInput      textinput.Model
	methodCursor   int
	deviceList     list.Model
	selectedID     string
	selectedPath   string
	selectedMethod string

	errText string

	width  int
	height int
}

// deviceItem implements list.Item for adapter selection.
type deviceItem struct {
	id   string
	path string
}

func (d deviceItem) Title() string       { return d.id }
func (d deviceItem) Description() string { return d.path }
func (d deviceItem) FilterValue() string { return d.id }

var (
	wizardTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				MarginBottom(1)

	wizardStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	wizardActiveStepStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	wizardLabelStyle = lipgloss.NewStyle().
				Bold(true).
				MarginBottom(1)

	wizardValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	wizardDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	wizardErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
)

// methodChoices is the ordered connection method menu.
var methodChoices = []struct {
	method string
	label  string
	desc   string
}{
	{compose.MethodUSB, "USB serial adapter", "P1 cable plugged into this host"},
	{compose.MethodTCP, "Remote TCP reader", "ser2net or similar on another machine"},
}

func newWizardModel(devices []device.Serial) wizardModel {
	ui := textinput.New()
	ui.Placeholder = "admin"
	ui.Focus()
	ui.CharLimit = 64
	ui.Width = 40

	pi := textinput.New()
	pi.Placeholder = "password"
	pi.EchoMode = textinput.EchoPassword
	pi.CharLimit = 128
	pi.Width = 40

	si := textinput.New()
	si.Placeholder = "leave blank to generate"
	si.EchoMode = textinput.EchoPassword
	si.CharLimit = 128
	si.Width = 40

	hi := textinput.New()
	hi.Placeholder = "192.168.1.10"
	hi.CharLimit = 253
	hi.Width = 40

	poi := textinput.New()
	poi.Placeholder = "2001"
	poi.CharLimit = 5
	poi.Width = 10

	return wizardModel{
		step:          stepUsername,
		devices:       devices,
		usernameInput: ui,
		passwordInput: pi,
		secretInput:   si,
		hostInput:     hi,
		portInput:     poi,
	}
}

func (w *wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update processes a message and returns (done, answers, cmd). done=true
// with nil answers means the wizard was cancelled.
func (w *wizardModel) Update(msg tea.Msg) (bool, *Answers, tea.Cmd) {
	if sizeMsg, ok := msg.(tea.WindowSizeMsg); ok {
		w.width = sizeMsg.Width
		w.height = sizeMsg.Height
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC:
			return true, nil, nil
		case tea.KeyEsc:
			return w.handleBack()
		}
	}

	switch w.step {
	case stepUsername:
		return w.updateText(msg, &w.usernameInput, w.advanceUsername)
	case stepPassword:
		return w.updateText(msg, &w.passwordInput, w.advancePassword)
	case stepSecretKey:
		return w.updateText(msg, &w.secretInput, w.advanceSecret)
	case stepMethod:
		return w.updateMethod(msg)
	case stepDevice:
		return w.updateDevice(msg)
	case stepHost:
		return w.updateText(msg, &w.hostInput, w.advanceHost)
	case stepPort:
		return w.updateText(msg, &w.portInput, w.advancePort)
	case stepConfirm:
		return w.updateConfirm(msg)
	}

	return false, nil, nil
}

func (w *wizardModel) handleBack() (bool, *Answers, tea.Cmd) {
	switch w.step {
	case stepUsername:
		// Esc at the first step cancels the wizard.
		return true, nil, nil
	case stepPassword:
		return w.goTo(stepUsername, &w.usernameInput)
	case stepSecretKey:
		return w.goTo(stepPassword, &w.passwordInput)
	case stepMethod:
		return w.goTo(stepSecretKey, &w.secretInput)
	case stepDevice, stepHost:
		w.blurAll()
		w.step = stepMethod
		return false, nil, nil
	case stepPort:
		return w.goTo(stepHost, &w.hostInput)
	case stepConfirm:
		w.blurAll()
		w.step = stepMethod
		return false, nil, nil
	}
	return false, nil, nil
}

func (w *wizardModel) goTo(step wizardStep, focus *textinput.Model) (bool, *Answers, tea.Cmd) {
	w.blurAll()
	w.step = step
	w.errText = ""
	focus.Focus()
	return false, nil, textinput.Blink
}

func (w *wizardModel) blurAll() {
	w.usernameInput.Blur()
	w.passwordInput.Blur()
	w.secretInput.Blur()
	w.hostInput.Blur()
	w.portInput.Blur()
}

// updateText forwards input to the step's text field, calling advance on
// Enter.
func (w *wizardModel) updateText(msg tea.Msg, ti *textinput.Model, advance func() (bool, *Answers, tea.Cmd)) (bool, *Answers, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		return advance()
	}

	var cmd tea.Cmd
	*ti, cmd = ti.Update(msg)
	return false, nil, cmd
}

func (w *wizardModel) advanceUsername() (bool, *Answers, tea.Cmd) {
	if strings.TrimSpace(w.usernameInput.Value()) == "" {
		w.errText = "a username is required"
		return false, nil, nil
	}
	return w.goTo(stepPassword, &w.passwordInput)
}

func (w *wizardModel) advancePassword() (bool, *Answers, tea.Cmd) {
	if w.passwordInput.Value() == "" {
		w.errText = "a password is required"
		return false, nil, nil
	}
	return w.goTo(stepSecretKey, &w.secretInput)
}

func (w *wizardModel) advanceSecret() (bool, *Answers, tea.Cmd) {
	w.blurAll()
	w.step = stepMethod
	w.errText = ""
	return false, nil, nil
}

func (w *wizardModel) updateMethod(msg tea.Msg) (bool, *Answers, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "j", "down", "tab":
			w.methodCursor = (w.methodCursor + 1) % len(methodChoices)
		case "k", "up":
			w.methodCursor = (w.methodCursor - 1 + len(methodChoices)) % len(methodChoices)
		case "enter":
			w.selectedMethod = methodChoices[w.methodCursor].method
			if w.selectedMethod == compose.MethodUSB {
				if len(w.devices) == 0 {
					w.errText = "no serial adapters found under /dev/serial/by-id"
					return false, nil, nil
				}
				w.loadDeviceList()
				w.step = stepDevice
				w.errText = ""
				return false, nil, nil
			}
			return w.goTo(stepHost, &w.hostInput)
		}
	}
	return false, nil, nil
}

func (w *wizardModel) updateDevice(msg tea.Msg) (bool, *Answers, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		if item, ok := w.deviceList.SelectedItem().(deviceItem); ok {
			w.selectedID = item.id
			w.selectedPath = item.path
			w.step = stepConfirm
			return false, nil, nil
		}
		return false, nil, nil
	}

	var cmd tea.Cmd
	w.deviceList, cmd = w.deviceList.Update(msg)
	return false, nil, cmd
}

func (w *wizardModel) advanceHost() (bool, *Answers, tea.Cmd) {
	if strings.TrimSpace(w.hostInput.Value()) == "" {
		w.errText = "a host is required"
		return false, nil, nil
	}
	return w.goTo(stepPort, &w.portInput)
}

func (w *wizardModel) advancePort() (bool, *Answers, tea.Cmd) {
	if _, err := parsePort(w.portInput.Value()); err != nil {
		w.errText = err.Error()
		return false, nil, nil
	}
	w.blurAll()
	w.step = stepConfirm
	w.errText = ""
	return false, nil, nil
}

func (w *wizardModel) updateConfirm(msg tea.Msg) (bool, *Answers, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter", "y":
			return true, w.answers(), nil
		case "n":
			w.blurAll()
			w.step = stepUsername
			w.errText = ""
			w.usernameInput.Focus()
			return false, nil, textinput.Blink
		}
	}
	return false, nil, nil
}

func (w *wizardModel) answers() *Answers {
	a := &Answers{
		Settings: compose.Settings{
			Username:  strings.TrimSpace(w.usernameInput.Value()),
			Password:  w.passwordInput.Value(),
			SecretKey: strings.TrimSpace(w.secretInput.Value()),
			Method:    w.selectedMethod,
		},
	}
	if a.Settings.SecretKey == "" {
		a.Settings.SecretKey = compose.GenerateSecretKey()
	}
	switch w.selectedMethod {
	case compose.MethodUSB:
		a.DeviceID = w.selectedID
		a.Settings.DevicePath = w.selectedPath
	case compose.MethodTCP:
		a.Settings.TCPHost = strings.TrimSpace(w.hostInput.Value())
		a.Settings.TCPPort, _ = parsePort(w.portInput.Value())
	}
	return a
}

func (w *wizardModel) loadDeviceList() {
	var items []list.Item
	for _, d := range w.devices {
		items = append(items, deviceItem{id: d.ID, path: d.Path})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 70, 12)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	if w.width > 0 {
		l.SetWidth(w.width - 4)
	}
	if w.height > 0 {
		l.SetHeight(w.height - 10)
	}

	w.deviceList = l
}

func (w *wizardModel) View() string {
	var b strings.Builder

	b.WriteString(wizardTitleStyle.Render("Provision DSMR-reader"))
	b.WriteString("\n")
	b.WriteString(w.progressBar())
	b.WriteString("\n\n")

	switch w.step {
	case stepUsername:
		b.WriteString(wizardLabelStyle.Render("Admin username:"))
		b.WriteString("\n")
		b.WriteString(w.usernameInput.View())
	case stepPassword:
		b.WriteString(wizardLabelStyle.Render("Admin password:"))
		b.WriteString("\n")
		b.WriteString(w.passwordInput.View())
	case stepSecretKey:
		b.WriteString(wizardLabelStyle.Render("Secret key:"))
		b.WriteString("\n")
		b.WriteString(w.secretInput.View())
		b.WriteString("\n\n")
		b.WriteString(wizardDimStyle.Render("Leave blank to generate a random key."))
	case stepMethod:
		b.WriteString(wizardLabelStyle.Render("Connection method:"))
		b.WriteString("\n\n")
		for i, c := range methodChoices {
			cursor := " "
			line := fmt.Sprintf("  %s %s", cursor, c.label)
			if i == w.methodCursor {
				line = selectedStyle.Render(fmt.Sprintf("  > %s", c.label))
			}
			b.WriteString(line)
			b.WriteString("\n")
			b.WriteString(wizardDimStyle.Render("      " + c.desc))
			b.WriteString("\n")
		}
	case stepDevice:
		b.WriteString(wizardLabelStyle.Render("Select serial adapter:"))
		b.WriteString("\n")
		b.WriteString(w.deviceList.View())
	case stepHost:
		b.WriteString(wizardLabelStyle.Render("Reader host:"))
		b.WriteString("\n")
		b.WriteString(w.hostInput.View())
	case stepPort:
		b.WriteString(wizardLabelStyle.Render("Reader port:"))
		b.WriteString("\n")
		b.WriteString(w.portInput.View())
	case stepConfirm:
		b.WriteString(wizardLabelStyle.Render("Confirm:"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  Username: %s\n", wizardValueStyle.Render(strings.TrimSpace(w.usernameInput.Value()))))
		b.WriteString(fmt.Sprintf("  Method:   %s\n", wizardValueStyle.Render(w.selectedMethod)))
		if w.selectedMethod == compose.MethodUSB {
			b.WriteString(fmt.Sprintf("  Device:   %s\n", wizardValueStyle.Render(w.selectedPath)))
		} else {
			b.WriteString(fmt.Sprintf("  Reader:   %s\n", wizardValueStyle.Render(
				strings.TrimSpace(w.hostInput.Value())+":"+strings.TrimSpace(w.portInput.Value()))))
		}
		b.WriteString("\n")
		b.WriteString(wizardDimStyle.Render("Enter to provision, n to restart, Esc to go back."))
	}

	if w.errText != "" {
		b.WriteString("\n\n")
		b.WriteString(wizardErrStyle.Render(w.errText))
	}

	return b.String()
}

func (w *wizardModel) progressBar() string {
	steps := []struct {
		num  int
		name string
	}{
		{1, "Account"},
		{2, "Method"},
		{3, "Source"},
		{4, "Confirm"},
	}

	currentStep := 1
	switch w.step {
	case stepMethod:
		currentStep = 2
	case stepDevice, stepHost, stepPort:
		currentStep = 3
	case stepConfirm:
		currentStep = 4
	}

	var parts []string
	for _, s := range steps {
		label := fmt.Sprintf("%d. %s", s.num, s.name)
		if s.num == currentStep {
			parts = append(parts, wizardActiveStepStyle.Render(label))
		} else {
			parts = append(parts, wizardStepStyle.Render(label))
		}
	}

	return strings.Join(parts, wizardDimStyle.Render(" > "))
}

// parsePort validates a TCP port string.
func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("port must be a number between 1 and 65535")
	}
	return port, nil
}
