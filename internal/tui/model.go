// Package tui renders a decomposition while it runs. It never touches the
// engine: the tree is read through periodic snapshots and activity arrives
// over the event bus.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/decomposer/internal/config"
	"github.com/aristath/decomposer/internal/events"
	"github.com/aristath/decomposer/internal/tree"
)

// DefaultPollInterval is used when the configured interval is not positive.
const DefaultPollInterval = 100 * time.Millisecond

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTree PaneID = iota
	PaneDetail
	PaneActivity
)

// DoneMsg tells the model the engine has returned.
type DoneMsg struct {
	Err error
}

// pollMsg triggers a snapshot refresh.
type pollMsg struct{}

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	root         *tree.Node
	treePane     TreePaneModel
	detailPane   DetailPaneModel
	activityPane ActivityPaneModel
	settingsPane SettingsPaneModel
	focusedPane  PaneID
	eventSub     <-chan events.Event
	pollInterval time.Duration
	width        int
	height       int
	quitting     bool
	done         bool
	showSettings bool
}

// New creates a TUI model watching root. When bus is non-nil the model
// subscribes to all of its events.
func New(root *tree.Node, bus *events.EventBus, cfg *config.Config, globalPath, projectPath string) Model {
	interval := cfg.TUI.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var sub <-chan events.Event
	if bus != nil {
		sub = bus.SubscribeAll(256)
	}

	m := Model{
		root:         root,
		treePane:     NewTreePaneModel(),
		detailPane:   NewDetailPaneModel(),
		activityPane: NewActivityPaneModel(),
		settingsPane: NewSettingsPaneModel(cfg, globalPath, projectPath),
		focusedPane:  PaneTree,
		eventSub:     sub,
		pollInterval: interval,
	}
	m.refresh()
	m.updateFocusStates()
	return m
}

// Init starts polling and event delivery.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), waitForEvent(m.eventSub))
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Done reports whether the engine has returned.
func (m Model) Done() bool { return m.done }

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If settings panel is open, route all keys to it (modal behavior)
		if m.showSettings {
			var cmd tea.Cmd
			m.settingsPane, cmd = m.settingsPane.Update(msg)
			cmds = append(cmds, cmd)

			// Settings pane closes itself after save or esc
			if !m.settingsPane.IsVisible() {
				m.showSettings = false
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % 3
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + 2) % 3 // +2 is equivalent to -1 mod 3
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTree
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneDetail
			m.updateFocusStates()

		case KeyPane3:
			m.focusedPane = PaneActivity
			m.updateFocusStates()

		default:
			// Delegate to focused pane
			switch m.focusedPane {
			case PaneTree:
				var cmd tea.Cmd
				m.treePane, cmd = m.treePane.Update(msg)
				cmds = append(cmds, cmd)
				m.syncDetail()
			case PaneDetail:
				var cmd tea.Cmd
				m.detailPane, cmd = m.detailPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)
		m.syncDetail()

	case pollMsg:
		m.refresh()
		if !m.done {
			cmds = append(cmds, m.poll())
		}

	case DoneMsg:
		m.done = true
		m.activityPane.SetDone(msg.Err)
		m.refresh()

	case events.Event:
		var cmd tea.Cmd
		m.activityPane, cmd = m.activityPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))

	default:
		// Form internals (cursor blink and the like) while the overlay is open
		if m.showSettings {
			var cmd tea.Cmd
			m.settingsPane, cmd = m.settingsPane.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// refresh takes a new snapshot and hands it to the panes.
func (m *Model) refresh() {
	snap := m.root.Snapshot()
	m.treePane.SetSnapshot(snap)
	m.activityPane.SetStats(snap.Stats())
	m.syncDetail()
}

func (m *Model) syncDetail() {
	if node, ok := m.treePane.Selected(); ok {
		m.detailPane.SetNode(node)
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	rightPane := lipgloss.JoinVertical(lipgloss.Left, m.detailPane.View(), m.activityPane.View())
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.treePane.View(), rightPane)

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, HelpView())
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 40) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1 // reserve 1 line for help bar
	rightTopHeight := (availableHeight * 60) / 100
	rightBottomHeight := availableHeight - rightTopHeight

	m.treePane.SetSize(leftWidth, availableHeight)
	m.detailPane.SetSize(rightWidth, rightTopHeight)
	m.activityPane.SetSize(rightWidth, rightBottomHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.treePane.SetFocused(m.focusedPane == PaneTree)
	m.detailPane.SetFocused(m.focusedPane == PaneDetail)
	m.activityPane.SetFocused(m.focusedPane == PaneActivity)
}
