package installer

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var ErrInterrupted = errors.New("parley setup interrupted")

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Step represents a single step in the setup wizard.
type Step interface {
	Init() tea.Cmd
	// Update returns nil once the step is complete.
	Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd)
	View(state *InstallState) string
}

// Options says where the wizard writes its files.
type Options struct {
	RuntimePath string
	Force       bool
}

func getSteps(opts Options) []Step {
	return []Step{
		NewProviderStep(),
		NewAPIKeyStep(),
		NewOllamaURLStep(),
		NewCustomURLStep(),
		NewModelStep(),
		NewMemoryBackendStep(),
		NewDatabaseURLStep(),
		NewTTSProviderStep(),
		NewTTSKeyStep(),
		NewSaveEnvStep(opts.RuntimePath, opts.Force),
		NewInitializeFilesStep(opts.RuntimePath, opts.Force),
	}
}

// nextMsg makes a step run its Update without waiting for a key press.
type nextMsg struct{}

func next() tea.Msg { return nextMsg{} }

// model is the Bubble Tea model that walks through the steps.
type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
	width       int
	height      int
}

func newModel(steps []Step) model {
	return model{
		steps: steps,
		state: NewInstallState(),
	}
}

func (m model) Init() tea.Cmd {
	if len(m.steps) > 0 {
		return m.steps[0].Init()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	nextStep, cmd := m.steps[m.currentStep].Update(msg, m.state, m.width, m.height)
	if nextStep == nil {
		m.currentStep++
		if m.currentStep >= len(m.steps) {
			return m, tea.Quit
		}
		return m, m.steps[m.currentStep].Init()
	}

	m.steps[m.currentStep] = nextStep
	return m, cmd
}

func (m model) done() bool {
	return m.currentStep >= len(m.steps)
}

func (m model) View() string {
	if m.quitting {
		return "Setup cancelled.\n"
	}
	if m.done() {
		return "Configuration complete!\n"
	}
	return titleStyle.Render("Setting up Parley") + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard asks for the provider settings and writes .env and prompts.yaml
// into opts.RuntimePath.
func RunWizard(opts Options) (*InstallState, error) {
	p := tea.NewProgram(newModel(getSteps(opts)), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := m.(model)
	if final.quitting || !final.done() {
		return nil, ErrInterrupted
	}
	return final.state, nil
}
