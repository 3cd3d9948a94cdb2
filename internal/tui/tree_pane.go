package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/decomposer/internal/tree"
)

// mapCellWidth is the number of columns one layout column occupies in map mode.
const mapCellWidth = 16

// nodeRow is one line of the outline.
type nodeRow struct {
	ID     string
	Label  string
	Depth  int
	Status tree.Status
	Failed bool
}

// TreePaneModel shows the latest snapshot as an indented outline or, in map
// mode, on the layout grid. Selection follows the node ID across polls.
type TreePaneModel struct {
	snap       tree.Snapshot
	rows       []nodeRow
	selectedID string
	offset     int // first visible row in list mode
	mapMode    bool
	width      int
	height     int
	focused    bool
}

// NewTreePaneModel creates an empty tree pane.
func NewTreePaneModel() TreePaneModel {
	return TreePaneModel{}
}

// SetSnapshot replaces the displayed tree. The selection is kept when the
// node is still present and falls back to the root otherwise.
func (m *TreePaneModel) SetSnapshot(snap tree.Snapshot) {
	m.snap = snap
	m.rows = make([]nodeRow, 0, len(m.rows))
	snap.Walk(func(node, _ *tree.Snapshot) bool {
		m.rows = append(m.rows, nodeRow{
			ID:     node.ID,
			Label:  node.Label,
			Depth:  node.Depth,
			Status: node.Status,
			Failed: node.Failed,
		})
		return true
	})

	if m.selectedIndex() < 0 && len(m.rows) > 0 {
		m.selectedID = m.rows[0].ID
	}
	m.clampOffset()
}

// Update handles navigation keys while focused.
func (m TreePaneModel) Update(msg tea.Msg) (TreePaneModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused || len(m.rows) == 0 {
		return m, nil
	}

	idx := m.selectedIndex()
	switch key.String() {
	case KeyJ, KeyDown:
		if idx < len(m.rows)-1 {
			idx++
		}
	case KeyK, KeyUp:
		if idx > 0 {
			idx--
		}
	case KeyHome:
		idx = 0
	case KeyEnd:
		idx = len(m.rows) - 1
	case KeyMap:
		m.mapMode = !m.mapMode
	}
	if idx >= 0 {
		m.selectedID = m.rows[idx].ID
	}
	m.clampOffset()
	return m, nil
}

// Selected returns the snapshot of the selected node.
func (m TreePaneModel) Selected() (tree.Snapshot, bool) {
	if m.selectedID == "" {
		return tree.Snapshot{}, false
	}
	return m.snap.Find(m.selectedID)
}

// MapMode reports whether the grid view is active.
func (m TreePaneModel) MapMode() bool { return m.mapMode }

// View renders the tree pane.
func (m TreePaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := "Tree"
	if m.mapMode {
		title = "Tree (map)"
	}
	var b strings.Builder
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")

	bodyHeight := m.bodyHeight()
	switch {
	case len(m.rows) == 0:
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	case m.mapMode:
		b.WriteString(m.renderMap(m.width-4, bodyHeight))
	default:
		b.WriteString(m.renderList(m.width-4, bodyHeight))
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

func (m TreePaneModel) renderList(width, height int) string {
	selected := m.selectedIndex()
	end := min(len(m.rows), m.offset+height)

	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		indent := strings.Repeat("  ", r.Depth-1)
		label := truncate(r.Label, width-len(indent)-8)
		line := fmt.Sprintf("%s%s %s %s", indent, StatusIcon(r.Status, r.Failed), label,
			StyleStatusPending.Render(fmt.Sprintf("d%d", r.Depth)))
		if i == selected {
			line = StyleSelected.Render(fmt.Sprintf("%s%s %s d%d", indent, statusGlyph(r.Status, r.Failed), label, r.Depth))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderMap draws every node's label at its layout position. Even lines
// carry labels, odd lines the connectors from a parent to its children.
// The window scrolls so the selected node stays visible.
func (m TreePaneModel) renderMap(width, height int) string {
	placements := tree.Layout(m.snap)
	grid := newMapGrid(placements, m.selectedID)

	selX, selY := 0, 0
	for _, p := range placements {
		if p.ID == m.selectedID {
			selX, selY = mapX(p.Column), 2*p.Row
		}
	}
	x0 := max(0, min(selX-width/2, grid.width()-width))
	y0 := max(0, min(selY-height/2, len(grid)-height))

	var lines []string
	for y := y0; y < len(grid) && y < y0+height; y++ {
		row := grid[y]
		if x0 >= len(row) {
			lines = append(lines, "")
			continue
		}
		row = row[x0:]
		if len(row) > width {
			row = row[:width]
		}
		lines = append(lines, strings.TrimRight(string(row), " "))
	}
	return strings.Join(lines, "\n")
}

type mapGrid [][]rune

func mapX(column float64) int {
	return int(column*mapCellWidth + 0.5)
}

func newMapGrid(placements []tree.Placement, selectedID string) mapGrid {
	rows, cols := 0, 0
	for _, p := range placements {
		rows = max(rows, 2*p.Row+1)
		cols = max(cols, mapX(p.Column)+mapCellWidth)
	}

	grid := make(mapGrid, rows)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", cols))
	}

	x := make(map[string]int, len(placements))
	for _, p := range placements {
		x[p.ID] = mapX(p.Column)
	}
	parents := make(map[string]int) // parent ID -> connector line
	for _, p := range placements {
		if p.Parent == "" {
			continue
		}
		// Connector under the parent row, spanning parent to child.
		y := 2*p.Row - 1
		px, cx := x[p.Parent], x[p.ID]
		for i := min(px, cx); i <= max(px, cx); i++ {
			if grid[y][i] == ' ' {
				grid[y][i] = '─'
			}
		}
		grid[y][cx] = '┬'
		parents[p.Parent] = y
	}
	for id, y := range parents {
		if grid[y][x[id]] == '┬' {
			grid[y][x[id]] = '┼'
		} else {
			grid[y][x[id]] = '┴'
		}
	}
	for _, p := range placements {
		label := statusGlyph(p.Status, p.Failed) + " " + truncate(p.Label, mapCellWidth-5)
		if p.ID == selectedID {
			label = "[" + label + "]"
		}
		grid.write(2*p.Row, x[p.ID], label)
	}
	return grid
}

func (g mapGrid) width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

func (g mapGrid) write(y, x int, s string) {
	for _, r := range s {
		if x >= len(g[y]) {
			return
		}
		g[y][x] = r
		x++
	}
}

func (m TreePaneModel) selectedIndex() int {
	for i, r := range m.rows {
		if r.ID == m.selectedID {
			return i
		}
	}
	return -1
}

func (m TreePaneModel) bodyHeight() int {
	return max(1, m.height-3)
}

// clampOffset scrolls the list so the selected row is visible.
func (m *TreePaneModel) clampOffset() {
	h := m.bodyHeight()
	idx := max(0, m.selectedIndex())
	if idx < m.offset {
		m.offset = idx
	}
	if idx >= m.offset+h {
		m.offset = idx - h + 1
	}
	m.offset = max(0, min(m.offset, len(m.rows)-1))
}

// SetSize updates the pane dimensions.
func (m *TreePaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.clampOffset()
}

// SetFocused updates the focus state.
func (m *TreePaneModel) SetFocused(focused bool) {
	m.focused = focused
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) > n-3 {
		r = r[:n-3]
	}
	return string(r) + "..."
}
