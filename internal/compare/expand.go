package compare

// ExpandState tracks which comparison groups show their rows. Groups are
// expanded until collapsed. Methods return a new state.
type ExpandState struct {
	collapsed map[string]bool
}

func (s ExpandState) Expanded(id string) bool { return !s.collapsed[id] }

func (s ExpandState) Toggle(id string) ExpandState {
	c := s.clone()
	c.collapsed[id] = !s.collapsed[id]
	return c
}

// ToggleAll collapses every group if all are expanded, otherwise expands every group.
func (s ExpandState) ToggleAll(ids []string) ExpandState {
	allExpanded := s.AllExpanded(ids)
	c := s.clone()
	for _, id := range ids {
		c.collapsed[id] = allExpanded
	}
	return c
}

// AllExpanded reports whether every listed group is expanded.
func (s ExpandState) AllExpanded(ids []string) bool {
	for _, id := range ids {
		if !s.Expanded(id) {
			return false
		}
	}
	return true
}

func (s ExpandState) clone() ExpandState {
	c := ExpandState{collapsed: make(map[string]bool, len(s.collapsed))}
	for k, v := range s.collapsed {
		c.collapsed[k] = v
	}
	return c
}

// GroupIDs lists the group keys of a comparison in display order.
func (c Comparison) GroupIDs() []string {
	out := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		out = append(out, g.Key)
	}
	return out
}
