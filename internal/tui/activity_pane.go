package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/decomposer/internal/events"
	"github.com/aristath/decomposer/internal/tree"
)

// maxActivityLines bounds the event log kept for display.
const maxActivityLines = 500

// ActivityPaneModel shows run progress counted from the latest snapshot and
// a log of engine events.
type ActivityPaneModel struct {
	stats   tree.Stats
	roles   map[string]string // node ID -> role, learned from node.started
	lines   []string
	done    bool
	runErr  error
	elapsed time.Duration
	width   int
	height  int
	focused bool
}

// NewActivityPaneModel creates an empty activity pane.
func NewActivityPaneModel() ActivityPaneModel {
	return ActivityPaneModel{roles: make(map[string]string)}
}

// SetStats updates the progress counts.
func (m *ActivityPaneModel) SetStats(stats tree.Stats) {
	m.stats = stats
}

// SetDone marks the run finished.
func (m *ActivityPaneModel) SetDone(err error) {
	m.done = true
	m.runErr = err
}

// Update handles messages for the activity pane.
func (m ActivityPaneModel) Update(msg tea.Msg) (ActivityPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case events.RunCompletedEvent:
		m.elapsed = msg.Duration
		m.appendLine(msg.Timestamp, fmt.Sprintf("run completed: %d nodes, %d failed", msg.Nodes, msg.Failed))

	case events.Event:
		if started, ok := msg.(events.NodeStartedEvent); ok {
			m.roles[started.ID] = started.Role
		}
		m.appendLine(eventTime(msg), m.describe(msg))
	}
	return m, nil
}

func (m *ActivityPaneModel) appendLine(ts time.Time, text string) {
	m.lines = append(m.lines, fmt.Sprintf("%s %s", ts.Format("15:04:05"), text))
	if len(m.lines) > maxActivityLines {
		m.lines = m.lines[len(m.lines)-maxActivityLines:]
	}
}

func (m ActivityPaneModel) describe(ev events.Event) string {
	who := fmt.Sprintf("d%d %s", ev.NodeDepth(), m.roles[ev.NodeID()])
	switch e := ev.(type) {
	case events.NodeStartedEvent:
		return who + " started"
	case events.NodeElaboratedEvent:
		if e.Failed {
			return StyleStatusFailed.Render(who+" elaboration failed") + fmt.Sprintf(" (%s)", e.Duration.Round(time.Millisecond))
		}
		return fmt.Sprintf("%s elaborated (%s)", who, e.Duration.Round(time.Millisecond))
	case events.NodeDecomposedEvent:
		if e.Err != nil {
			return StyleStatusFailed.Render(fmt.Sprintf("%s decomposition failed: %v", who, e.Err))
		}
		return fmt.Sprintf("%s proposed %d subtasks", who, e.Candidates)
	case events.NodeFanOutRejectedEvent:
		return StyleStatusRunning.Render(fmt.Sprintf("%s too few subtasks (%d < %d), not expanding", who, e.Candidates, e.MinFanOut))
	case events.NodeTerminalEvent:
		return fmt.Sprintf("%s at max depth %d", who, e.MaxDepth)
	case events.NodeResolvedEvent:
		return StyleStatusComplete.Render(fmt.Sprintf("%s resolved with %d children", who, e.Children))
	default:
		return fmt.Sprintf("%s %s", who, ev.EventType())
	}
}

func eventTime(ev events.Event) time.Time {
	switch e := ev.(type) {
	case events.NodeStartedEvent:
		return e.Timestamp
	case events.NodeElaboratedEvent:
		return e.Timestamp
	case events.NodeDecomposedEvent:
		return e.Timestamp
	case events.NodeFanOutRejectedEvent:
		return e.Timestamp
	case events.NodeTerminalEvent:
		return e.Timestamp
	case events.NodeResolvedEvent:
		return e.Timestamp
	case events.RunCompletedEvent:
		return e.Timestamp
	default:
		return time.Now()
	}
}

// View renders the activity pane.
func (m ActivityPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Progress")
	b.WriteString(title)
	b.WriteString("\n")

	resolved := m.stats.ByStatus[tree.StatusResolved]
	working := m.stats.ByStatus[tree.StatusElaborating] + m.stats.ByStatus[tree.StatusDecomposing]
	waiting := m.stats.ByStatus[tree.StatusWaiting] + m.stats.ByStatus[tree.StatusPending]

	b.WriteString(fmt.Sprintf("Nodes: %d  Resolved: %s  Working: %s  Waiting: %s  Failed: %s  Depth: %d\n",
		m.stats.Total,
		StyleStatusComplete.Render(fmt.Sprintf("%d", resolved)),
		StyleStatusRunning.Render(fmt.Sprintf("%d", working)),
		StyleStatusWaiting.Render(fmt.Sprintf("%d", waiting)),
		StyleStatusFailed.Render(fmt.Sprintf("%d", m.stats.Failed)),
		m.stats.MaxDepth))

	// Progress bar
	if m.stats.Total > 0 {
		barWidth := max(0, min(m.width-16, 40))
		resolvedWidth := (resolved * barWidth) / m.stats.Total
		workingWidth := (working * barWidth) / m.stats.Total
		waitingWidth := barWidth - resolvedWidth - workingWidth

		bar := StyleStatusComplete.Render(strings.Repeat("=", max(0, resolvedWidth)))
		bar += StyleStatusRunning.Render(strings.Repeat("-", max(0, workingWidth)))
		bar += StyleStatusPending.Render(strings.Repeat(".", max(0, waitingWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n", bar, resolved, m.stats.Total))
	}

	switch {
	case m.done && m.runErr != nil:
		b.WriteString(StyleStatusFailed.Render(fmt.Sprintf("Run aborted: %v", m.runErr)))
		b.WriteString("\n")
	case m.done:
		b.WriteString(StyleStatusComplete.Render(fmt.Sprintf("Run complete in %s", m.elapsed.Round(time.Millisecond))))
		b.WriteString("\n")
	}

	header := b.String()
	logHeight := m.height - 2 - lipgloss.Height(header)
	if logHeight > 0 && len(m.lines) > 0 {
		start := max(0, len(m.lines)-logHeight)
		b.WriteString(strings.Join(m.lines[start:], "\n"))
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *ActivityPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ActivityPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
