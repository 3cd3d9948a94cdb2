package engine

import (
	"fmt"
	"strconv"

	"github.com/aristath/decomposer/internal/reasoning"
)

// DuplicateRoles decides what happens when one decomposition proposes the
// same role more than once.
type DuplicateRoles string

const (
	// DuplicateRename keeps every subtask, suffixing repeats: "db", "db-2".
	DuplicateRename DuplicateRoles = "rename"
	// DuplicateOverwrite runs every subtask; the last one launched under a
	// role replaces the earlier ones, keeping the first position.
	DuplicateOverwrite DuplicateRoles = "overwrite"
	// DuplicateDrop keeps the first subtask per role and never runs repeats.
	DuplicateDrop DuplicateRoles = "drop"
)

// Policy bounds a decomposition.
type Policy struct {
	MaxDepth       int // nodes at this depth never decompose
	MinFanOut      int // fewer accepted subtasks than this means none are
	DuplicateRoles DuplicateRoles
}

// DefaultPolicy returns the reference bounds: three levels, fan-out of at
// least two, repeated roles renamed.
func DefaultPolicy() Policy {
	return Policy{
		MaxDepth:       3,
		MinFanOut:      2,
		DuplicateRoles: DuplicateRename,
	}
}

// Validate rejects policies that cannot terminate or cannot be applied.
func (p Policy) Validate() error {
	if p.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got %d", p.MaxDepth)
	}
	if p.MinFanOut < 1 {
		return fmt.Errorf("min fan-out must be at least 1, got %d", p.MinFanOut)
	}
	switch p.DuplicateRoles {
	case DuplicateRename, DuplicateOverwrite, DuplicateDrop:
		return nil
	default:
		return fmt.Errorf("unknown duplicate role policy %q", p.DuplicateRoles)
	}
}

// accept applies the duplicate-role policy and returns the subtasks to launch,
// in proposal order, each under the role it will be filed under.
func (p Policy) accept(subtasks []reasoning.Subtask) []reasoning.Subtask {
	out := make([]reasoning.Subtask, 0, len(subtasks))
	used := make(map[string]bool, len(subtasks))

	for _, s := range subtasks {
		if used[s.Role] {
			switch p.DuplicateRoles {
			case DuplicateDrop:
				continue
			case DuplicateRename:
				s.Role = uniqueRole(s.Role, used)
			}
		}
		used[s.Role] = true
		out = append(out, s)
	}
	return out
}

func uniqueRole(role string, used map[string]bool) string {
	for i := 2; ; i++ {
		candidate := role + "-" + strconv.Itoa(i)
		if !used[candidate] {
			return candidate
		}
	}
}
