package tree

// Placement is a node's position on the layout grid. Column is fractional
// because a parent is centred over its children.
type Placement struct {
	ID     string
	Label  string
	Status Status
	Failed bool
	Column float64
	Row    int
	Parent string // empty for the root
}

// Layout assigns grid positions: leaves take consecutive columns from the
// left in child order and every parent sits at the mean column of its
// children. Row is the depth below the root (root is row 0). Placements are
// returned in pre-order.
func Layout(root Snapshot) []Placement {
	var out []Placement
	next := 0.0
	layoutNode(root, "", 0, &next, &out)
	return out
}

func layoutNode(s Snapshot, parent string, row int, next *float64, out *[]Placement) float64 {
	idx := len(*out)
	*out = append(*out, Placement{
		ID:     s.ID,
		Label:  s.Label,
		Status: s.Status,
		Failed: s.Failed,
		Row:    row,
		Parent: parent,
	})

	var col float64
	if len(s.Children) == 0 {
		col = *next
		*next++
	} else {
		sum := 0.0
		for _, c := range s.Children {
			sum += layoutNode(c, s.ID, row+1, next, out)
		}
		col = sum / float64(len(s.Children))
	}

	(*out)[idx].Column = col
	return col
}
