package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/aristath/decomposer/internal/tree"
)

var (
	labelColor   = color.New(color.Bold, color.FgCyan)
	resolvedMark = color.New(color.FgGreen)
	pendingMark  = color.New(color.FgYellow)
	failedText   = color.New(color.FgRed)
	dim          = color.New(color.Faint)
)

// printTree writes the snapshot as an outline: every node's label, depth and
// specification, followed by its output.
func printTree(w io.Writer, root tree.Snapshot) {
	printNode(w, root, "", "", true)

	stats := root.Stats()
	fmt.Fprintf(w, "\n%d nodes, %d leaves, %d failed, depth %d\n", stats.Total, stats.Leaves, stats.Failed, stats.MaxDepth)
}

func printNode(w io.Writer, node tree.Snapshot, prefix, branch string, last bool) {
	mark := pendingMark.Sprint("…")
	switch {
	case node.Failed:
		mark = failedText.Sprint("✗")
	case node.Status == tree.StatusResolved:
		mark = resolvedMark.Sprint("✓")
	}
	fmt.Fprintf(w, "%s%s%s %s %s\n", prefix, branch, mark, labelColor.Sprint(node.Label), dim.Sprintf("(depth %d)", node.Depth))

	// Body lines continue the vertical rule when more siblings follow.
	body := prefix
	if branch != "" {
		if last {
			body += "    "
		} else {
			body += "│   "
		}
	}
	rule := body
	if len(node.Children) > 0 {
		rule += "│ "
	} else {
		rule += "  "
	}

	writeBlock(w, rule, dim.Sprint("spec: ")+node.Specification)
	if node.Interface != "" {
		writeBlock(w, rule, dim.Sprint("interface: ")+node.Interface)
	}
	switch {
	case !node.HasOutput:
		writeBlock(w, rule, dim.Sprint("(no output)"))
	case node.Failed:
		writeBlock(w, rule, failedText.Sprint(node.Output))
	default:
		writeBlock(w, rule, node.Output)
	}

	for i, c := range node.Children {
		isLast := i == len(node.Children)-1
		childBranch := "├── "
		if isLast {
			childBranch = "└── "
		}
		printNode(w, c, body, childBranch, isLast)
	}
}

func writeBlock(w io.Writer, prefix, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "%s%s\n", prefix, line)
	}
}

// printJSON writes the snapshot as indented JSON.
func printJSON(w io.Writer, root tree.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encoding tree: %w", err)
	}
	return nil
}
