package reasoning

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoSubtasks is returned when a reply contains no recognisable subtask list.
var ErrNoSubtasks = errors.New("reply contains no subtask list")

type processList struct {
	Processes *[]Subtask `json:"processes"`
}

// ParseSubtasks extracts the subtask list from a decomposition reply. The
// reply should be {"processes": [...]}, but surrounding prose, markdown
// fences and a bare array are tolerated. Entries without a role or prompt are
// skipped. An empty list is a valid answer and returns no error.
func ParseSubtasks(reply string) ([]Subtask, error) {
	var firstErr error

	for i := 0; i < len(reply); i++ {
		if reply[i] != '{' && reply[i] != '[' {
			continue
		}

		entries, err := decodeAt(reply[i:])
		if err == nil {
			return clean(entries), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSubtasks, firstErr)
	}
	return nil, ErrNoSubtasks
}

// decodeAt decodes the first JSON value of s, ignoring whatever follows it.
func decodeAt(s string) ([]Subtask, error) {
	dec := json.NewDecoder(strings.NewReader(s))

	if s[0] == '[' {
		var entries []Subtask
		if err := dec.Decode(&entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var list processList
	if err := dec.Decode(&list); err != nil {
		return nil, err
	}
	if list.Processes == nil {
		return nil, errors.New(`object has no "processes" field`)
	}
	return *list.Processes, nil
}

func clean(entries []Subtask) []Subtask {
	out := make([]Subtask, 0, len(entries))
	for _, e := range entries {
		e.Role = strings.TrimSpace(e.Role)
		if e.Role == "" || strings.TrimSpace(e.Prompt) == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}
