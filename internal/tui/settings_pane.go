package tui

import (
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/decomposer/internal/config"
)

// SettingsPaneModel manages the settings form overlay. Saved settings apply
// to the next run; the tree on screen keeps the bounds it was started with.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.Config
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error
	fields      *settingsFields
}

// settingsFields holds the form bindings (strings for Huh). It lives behind a
// pointer because the form keeps addresses into it while the pane is copied
// by value through Update.
type settingsFields struct {
	saveTarget     string
	provider       string
	model          string
	command        string
	callTimeout    string
	circuitBreaker bool
	maxDepth       string
	minFanOut      string
	duplicateRoles string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.Config, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
		fields:      &settingsFields{},
	}
	m.loadFields()
	m.buildForm()
	return m
}

// loadFields copies the config into the form bindings.
func (m *SettingsPaneModel) loadFields() {
	m.fields.saveTarget = "global"
	m.fields.provider = m.config.Reasoner.Provider
	m.fields.model = m.config.Reasoner.Model
	m.fields.command = m.config.Reasoner.Command
	m.fields.callTimeout = m.config.Reasoner.CallTimeout.String()
	m.fields.circuitBreaker = m.config.Reasoner.CircuitBreaker
	m.fields.maxDepth = strconv.Itoa(m.config.Engine.MaxDepth)
	m.fields.minFanOut = strconv.Itoa(m.config.Engine.MinFanOut)
	m.fields.duplicateRoles = m.config.Engine.DuplicateRoles
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	providers := make([]huh.Option[string], 0, len(config.Providers))
	for _, p := range config.Providers {
		providers = append(providers, huh.NewOption(p, p))
	}
	policies := make([]huh.Option[string], 0, len(config.DuplicateRolePolicies))
	for _, p := range config.DuplicateRolePolicies {
		policies = append(policies, huh.NewOption(p, p))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global (~/.decomposer/config.yaml)", "global"),
					huh.NewOption("Project (.decomposer/config.yaml)", "project"),
				).
				Value(&m.fields.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewSelect[string]().
				Key("provider").
				Title("Provider").
				Options(providers...).
				Value(&m.fields.provider),

			huh.NewInput().
				Key("model").
				Title("Model").
				Value(&m.fields.model).
				Placeholder("provider default"),

			huh.NewInput().
				Key("command").
				Title("CLI Command").
				Description("Binary for the claude, codex and goose providers").
				Value(&m.fields.command),

			huh.NewInput().
				Key("callTimeout").
				Title("Call Timeout").
				Value(&m.fields.callTimeout).
				Placeholder("2m0s").
				Validate(validateDuration),

			huh.NewConfirm().
				Key("circuitBreaker").
				Title("Circuit Breaker").
				Description("Fail every call fast after 5 consecutive failures anywhere in the run").
				Affirmative("On").
				Negative("Off").
				Value(&m.fields.circuitBreaker),
		).Title("Reasoner"),

		huh.NewGroup(
			huh.NewInput().
				Key("maxDepth").
				Title("Max Depth").
				Value(&m.fields.maxDepth).
				Validate(validatePositive),

			huh.NewInput().
				Key("minFanOut").
				Title("Min Fan-out").
				Value(&m.fields.minFanOut).
				Validate(validatePositive),

			huh.NewSelect[string]().
				Key("duplicateRoles").
				Title("Duplicate Roles").
				Options(policies...).
				Value(&m.fields.duplicateRoles),
		).Title("Decomposition"),
	)
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1")
	}
	return nil
}

func validateDuration(s string) error {
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("enter a duration such as 90s or 2m")
	}
	return nil
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == KeyEsc {
		// Cancel without saving
		m.visible = false
		m.saved = false
		return m, nil
	}

	// Delegate to form
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.err = m.save()
		m.saved = m.err == nil
		if m.saved {
			m.visible = false
		}
	}

	return m, cmd
}

// save validates the form values on a copy of the config and writes it to
// the chosen target. The live config is only updated on success.
func (m *SettingsPaneModel) save() error {
	next := *m.config
	next.Reasoner.Provider = m.fields.provider
	next.Reasoner.Model = m.fields.model
	next.Reasoner.Command = m.fields.command

	timeout, err := time.ParseDuration(m.fields.callTimeout)
	if err != nil {
		return fmt.Errorf("call timeout: %w", err)
	}
	next.Reasoner.CallTimeout = timeout
	next.Reasoner.CircuitBreaker = m.fields.circuitBreaker
	if next.Engine.MaxDepth, err = strconv.Atoi(m.fields.maxDepth); err != nil {
		return fmt.Errorf("max depth: %w", err)
	}
	if next.Engine.MinFanOut, err = strconv.Atoi(m.fields.minFanOut); err != nil {
		return fmt.Errorf("min fan-out: %w", err)
	}
	next.Engine.DuplicateRoles = m.fields.duplicateRoles

	if err := next.Validate(); err != nil {
		return err
	}

	targetPath := m.globalPath
	if m.fields.saveTarget == "project" {
		targetPath = m.projectPath
	}
	if err := config.Save(&next, targetPath); err != nil {
		return err
	}
	*m.config = next
	return nil
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string
	switch {
	case m.err != nil:
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err)) +
			"\n\n" + StyleHelp.Render("Press esc to close.")
	default:
		content = m.form.View()
	}

	// Wrap in styled border
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(max(10, m.width-4)).
		Height(max(5, m.height-4))

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings (applies to the next run)")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(max(20, w-8)).WithHeight(max(10, h-8))
	}
}

// SetVisible shows or hides the settings pane.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	// Rebuild form to reset state
	if v {
		m.loadFields()
		m.buildForm()
		m.SetSize(m.width, m.height)
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}

// Saved reports whether the last submission was written.
func (m SettingsPaneModel) Saved() bool {
	return m.saved
}
