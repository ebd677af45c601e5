package tui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/dsmr-tools/dsmr-provision/internal/device"
)

// model adapts wizardModel to the tea.Model interface.
type model struct {
	wizard  wizardModel
	done    bool
	answers *Answers
}

func (m model) Init() tea.Cmd {
	return m.wizard.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	done, answers, cmd := m.wizard.Update(msg)
	if done {
		m.done = true
		m.answers = answers
		return m, tea.Quit
	}
	return m, cmd
}

func (m model) View() string {
	if m.done {
		return ""
	}
	return m.wizard.View()
}

// IsInteractive reports whether stdin and stdout are attached to a
// terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// RunWizard runs the interactive provisioning wizard. A nil result with
// nil error means the operator cancelled.
func RunWizard(devices []device.Serial) (*Answers, error) {
	m := model{wizard: newWizardModel(devices)}
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	return finalModel.(model).answers, nil
}
