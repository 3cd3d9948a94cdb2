package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/decomposer/internal/config"
	"github.com/aristath/decomposer/internal/events"
	"github.com/aristath/decomposer/internal/tree"
)

// webApp builds a resolved root with three children, the middle one failed.
func webApp(t *testing.T) *tree.Node {
	t.Helper()
	root := tree.NewRoot("Build a web app")
	if err := root.SetOutput("a plan for the app", false); err != nil {
		t.Fatalf("SetOutput: %v", err)
	}

	var children []tree.Child
	for _, role := range []string{"frontend", "backend", "db"} {
		c := root.NewChild(role, "build the "+role, role+" interface")
		failed := role == "backend"
		out := role + " details"
		if failed {
			out = "Error: rate limited"
		}
		if err := c.SetOutput(out, failed); err != nil {
			t.Fatalf("SetOutput(%s): %v", role, err)
		}
		if err := c.AttachChildren(nil); err != nil {
			t.Fatalf("AttachChildren(%s): %v", role, err)
		}
		c.SetStatus(tree.StatusResolved)
		children = append(children, tree.Child{Role: role, Node: c})
	}
	if err := root.AttachChildren(children); err != nil {
		t.Fatalf("AttachChildren: %v", err)
	}
	root.SetStatus(tree.StatusResolved)
	return root
}

func newTestModel(t *testing.T, root *tree.Node, bus *events.EventBus) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	m := New(root, bus, cfg, filepath.Join(dir, "global.yaml"), filepath.Join(dir, "project.yaml"))
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func assertContains(t *testing.T, view string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(view, w) {
			t.Errorf("expected view to contain %q", w)
		}
	}
}

func TestView_BeforeSize(t *testing.T) {
	m := New(tree.NewRoot("spec"), nil, config.DefaultConfig(), "", "")
	if got := m.View(); got != "Initializing..." {
		t.Errorf("expected Initializing..., got %q", got)
	}
}

func TestView_ShowsTreeAndDetail(t *testing.T) {
	m := newTestModel(t, webApp(t), nil)

	assertContains(t, m.View(), "Root", "frontend", "backend", "db", "Build a web app", "a plan for the app", "Nodes: 4")
}

// TestPoll_PicksUpMutations verifies a poll tick re-reads the live tree.
func TestPoll_PicksUpMutations(t *testing.T) {
	root := tree.NewRoot("spec")
	m := newTestModel(t, root, nil)
	assertContains(t, m.View(), "waiting for elaboration")

	if err := root.SetOutput("first answer", false); err != nil {
		t.Fatalf("SetOutput: %v", err)
	}
	child := root.NewChild("worker", "sub spec", "")
	if err := root.AttachChildren([]tree.Child{{Role: "worker", Node: child}}); err != nil {
		t.Fatalf("AttachChildren: %v", err)
	}

	m = update(t, m, pollMsg{})
	assertContains(t, m.View(), "first answer", "worker")
}

func TestPoll_ReschedulesUntilDone(t *testing.T) {
	m := newTestModel(t, tree.NewRoot("spec"), nil)

	if _, cmd := m.Update(pollMsg{}); cmd == nil {
		t.Error("expected polling to continue while running")
	}

	m = update(t, m, DoneMsg{})
	if !m.Done() {
		t.Error("expected model to be done")
	}
	if _, cmd := m.Update(pollMsg{}); cmd != nil {
		t.Error("expected polling to stop once the engine returned")
	}
}

func TestDone_WithErrorIsShown(t *testing.T) {
	m := newTestModel(t, tree.NewRoot("spec"), nil)
	m = update(t, m, DoneMsg{Err: errors.New("interrupted")})
	assertContains(t, m.View(), "Run aborted: interrupted")
}

func TestNavigation_SelectsNodeForDetail(t *testing.T) {
	m := newTestModel(t, webApp(t), nil)

	m = update(t, m, key("j"))
	m = update(t, m, key("j"))

	selected, ok := m.treePane.Selected()
	if !ok {
		t.Fatal("expected a selection")
	}
	if selected.Label != "backend" {
		t.Errorf("expected backend selected, got %q", selected.Label)
	}
	assertContains(t, m.View(), "build the backend", "backend interface", "Error: rate limited")
}

func TestNavigation_SelectionSurvivesPoll(t *testing.T) {
	m := newTestModel(t, webApp(t), nil)
	m = update(t, m, key("G"))
	before, _ := m.treePane.Selected()

	m = update(t, m, pollMsg{})
	after, ok := m.treePane.Selected()
	if !ok {
		t.Fatal("expected a selection after poll")
	}
	if before.ID != after.ID {
		t.Errorf("expected selection %s kept, got %s", before.ID, after.ID)
	}
	if after.Label != "db" {
		t.Errorf("expected db selected, got %q", after.Label)
	}
}

func TestNavigation_KeysOnlyReachFocusedPane(t *testing.T) {
	m := newTestModel(t, webApp(t), nil)
	m = update(t, m, key("tab"))
	if m.focusedPane != PaneDetail {
		t.Fatalf("expected detail pane focused, got %v", m.focusedPane)
	}

	m = update(t, m, key("j"))
	if selected, _ := m.treePane.Selected(); selected.Label != tree.RootLabel {
		t.Errorf("expected tree selection unchanged while detail is focused, got %q", selected.Label)
	}

	m = update(t, m, key("1"))
	if m.focusedPane != PaneTree {
		t.Errorf("expected tree pane focused, got %v", m.focusedPane)
	}
}

func TestMapMode_Toggle(t *testing.T) {
	m := newTestModel(t, webApp(t), nil)

	m = update(t, m, key("m"))
	if !m.treePane.MapMode() {
		t.Fatal("expected map mode on")
	}
	assertContains(t, m.View(), "Tree (map)", "┬")

	m = update(t, m, key("m"))
	if m.treePane.MapMode() {
		t.Error("expected map mode off")
	}
}

func TestEvents_AppearInActivityLog(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	m := newTestModel(t, tree.NewRoot("spec"), bus)

	now := time.Now()
	m = update(t, m, events.NodeStartedEvent{ID: "n1", Role: "frontend", Depth: 2, Timestamp: now})
	m = update(t, m, events.NodeFanOutRejectedEvent{ID: "n1", Depth: 2, Candidates: 1, MinFanOut: 2, Timestamp: now})
	m = update(t, m, events.RunCompletedEvent{RootID: "r", Nodes: 3, Failed: 1, Duration: time.Second, Timestamp: now})

	assertContains(t, m.View(), "d2 frontend started", "too few subtasks (1 < 2)", "run completed: 3 nodes, 1 failed")
}

func TestEvents_CommandReadsBus(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	m := newTestModel(t, tree.NewRoot("spec"), bus)

	bus.Publish(events.TopicNode, events.NodeTerminalEvent{ID: "x", Depth: 3, MaxDepth: 3})
	msg := waitForEvent(m.eventSub)()
	ev, ok := msg.(events.NodeTerminalEvent)
	if !ok {
		t.Fatalf("expected NodeTerminalEvent, got %T", msg)
	}
	if ev.ID != "x" {
		t.Errorf("expected ID x, got %q", ev.ID)
	}

	if cmd := waitForEvent(nil); cmd != nil {
		t.Error("expected no command without a subscription")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, tree.NewRoot("spec"), nil)

	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if got := next.View(); got != "Goodbye!\n" {
		t.Errorf("expected goodbye view, got %q", got)
	}
}

func TestSettings_OpenAndCancel(t *testing.T) {
	m := newTestModel(t, tree.NewRoot("spec"), nil)

	m = update(t, m, key("s"))
	if !m.showSettings {
		t.Fatal("expected settings open")
	}
	assertContains(t, m.View(), "Settings")

	m = update(t, m, key("esc"))
	if m.showSettings {
		t.Error("expected settings closed")
	}
	if m.settingsPane.Saved() {
		t.Error("expected cancel not to save")
	}
}

func TestSettings_SaveWritesChosenTarget(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	pane := NewSettingsPaneModel(cfg, filepath.Join(dir, "global.yaml"), filepath.Join(dir, "project", "config.yaml"))

	pane.fields.saveTarget = "project"
	pane.fields.provider = "static"
	pane.fields.maxDepth = "5"
	pane.fields.callTimeout = "30s"
	if err := pane.save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	if cfg.Reasoner.Provider != "static" {
		t.Errorf("expected provider static, got %q", cfg.Reasoner.Provider)
	}
	if cfg.Engine.MaxDepth != 5 {
		t.Errorf("expected max depth 5, got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Reasoner.CallTimeout != 30*time.Second {
		t.Errorf("expected call timeout 30s, got %s", cfg.Reasoner.CallTimeout)
	}

	data, err := os.ReadFile(filepath.Join(dir, "project", "config.yaml"))
	if err != nil {
		t.Fatalf("reading project config: %v", err)
	}
	assertContains(t, string(data), "provider: static")
	if _, err := os.Stat(filepath.Join(dir, "global.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected no global config written, stat err = %v", err)
	}
}

// TestSettings_CircuitBreakerToggle verifies the breaker starts off and the
// overlay can switch it on.
func TestSettings_CircuitBreakerToggle(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	pane := NewSettingsPaneModel(cfg, filepath.Join(dir, "global.yaml"), "")

	if pane.fields.circuitBreaker {
		t.Fatal("expected circuit breaker off in a fresh form")
	}

	pane.fields.circuitBreaker = true
	if err := pane.save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !cfg.Reasoner.CircuitBreaker {
		t.Error("expected live config to enable the circuit breaker")
	}

	data, err := os.ReadFile(filepath.Join(dir, "global.yaml"))
	if err != nil {
		t.Fatalf("reading global config: %v", err)
	}
	assertContains(t, string(data), "circuit_breaker: true")
}

func TestSettings_InvalidValuesLeaveConfigUntouched(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	pane := NewSettingsPaneModel(cfg, filepath.Join(dir, "global.yaml"), "")

	pane.fields.maxDepth = "0"
	if err := pane.save(); err == nil {
		t.Error("expected error for max depth 0")
	}
	if cfg.Engine.MaxDepth != 3 {
		t.Errorf("expected max depth untouched at 3, got %d", cfg.Engine.MaxDepth)
	}

	pane.fields.maxDepth = "3"
	pane.fields.callTimeout = "soon"
	if err := pane.save(); err == nil {
		t.Error("expected error for unparsable timeout")
	}
	if _, err := os.Stat(filepath.Join(dir, "global.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected nothing written, stat err = %v", err)
	}
}

// TestMapGrid_CentresParents verifies the root label sits over the middle
// child and the connector row joins all three.
func TestMapGrid_CentresParents(t *testing.T) {
	root := webApp(t)
	placements := tree.Layout(root.Snapshot())
	grid := newMapGrid(placements, "")

	if len(grid) != 3 {
		t.Fatalf("expected 3 grid lines, got %d", len(grid))
	}
	if i := strings.Index(string(grid[0]), "✓"); i != mapCellWidth {
		t.Errorf("expected root centred at column %d, got %d", mapCellWidth, i)
	}

	assertContains(t, string(grid[2]), "frontend", "✗ backend", "db")

	connectors := []rune(string(grid[1]))
	for col, want := range map[int]rune{0: '┬', mapCellWidth: '┼', 2 * mapCellWidth: '┬'} {
		if connectors[col] != want {
			t.Errorf("connector at %d: expected %q, got %q", col, want, connectors[col])
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghijklmnop", 10, "abcdefg..."},
		{"abcdefgh", 1, "a..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
