package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/decomposer/internal/tree"
)

// DetailPaneModel shows the selected node's specification, interface and
// output in a scrollable viewport.
type DetailPaneModel struct {
	viewport viewport.Model
	content  string
	nodeID   string
	width    int
	height   int
	focused  bool
}

// NewDetailPaneModel creates an empty detail pane.
func NewDetailPaneModel() DetailPaneModel {
	return DetailPaneModel{viewport: viewport.New(0, 0)}
}

// SetNode shows node. The scroll position is kept while the same node's
// content is unchanged, and reset when another node is selected.
func (m *DetailPaneModel) SetNode(node tree.Snapshot) {
	content := renderDetail(node, m.viewport.Width)
	if node.ID == m.nodeID && content == m.content {
		return
	}
	reselected := node.ID != m.nodeID
	m.nodeID = node.ID
	m.content = content
	m.viewport.SetContent(content)
	if reselected {
		m.viewport.GotoTop()
	}
}

func renderDetail(node tree.Snapshot, width int) string {
	wrap := lipgloss.NewStyle().Width(max(10, width))

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s\n", StatusIcon(node.Status, node.Failed), StyleLabel.Render(node.Label),
		StyleStatusPending.Render(fmt.Sprintf("id %s · depth %d · %s", node.ID, node.Depth, node.Status)))

	section := func(name, text string) {
		b.WriteString("\n")
		b.WriteString(StyleTitle.UnsetPadding().Render(name))
		b.WriteString("\n")
		b.WriteString(wrap.Render(text))
		b.WriteString("\n")
	}

	section("Specification", node.Specification)
	if node.Interface != "" {
		section("Interface", node.Interface)
	}
	switch {
	case !node.HasOutput:
		section("Output", StyleStatusPending.Render("(waiting for elaboration)"))
	case node.Failed:
		section("Output", StyleStatusFailed.Render(node.Output))
	default:
		section("Output", node.Output)
	}
	return b.String()
}

// Update scrolls the viewport while focused.
func (m DetailPaneModel) Update(msg tea.Msg) (DetailPaneModel, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok && !m.focused {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail pane.
func (m DetailPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(m.viewport.View())
}

// SetSize updates the pane dimensions. Content is re-wrapped on the next
// SetNode.
func (m *DetailPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(10, w-4)
	m.viewport.Height = max(3, h-2)
	m.content = ""
}

// SetFocused updates the focus state.
func (m *DetailPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
