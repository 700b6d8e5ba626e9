package hierarchy

import (
	"errors"
	"slices"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

var ErrNoEnabledDimension = errors.New("at least one hierarchy dimension must stay enabled")

// PathEntry is one step of the drill breadcrumb.
type PathEntry struct {
	Dimension models.Dimension `json:"dimension"`
	Value     string           `json:"value"`
}

// Navigator is the drill state of a hierarchy view. Every method returns a
// new Navigator and leaves the receiver unchanged.
type Navigator struct {
	Order   []models.Dimension        `json:"order"`
	Enabled map[models.Dimension]bool `json:"enabled"`
	GroupBy models.Dimension          `json:"group_by"`
	Path    []PathEntry               `json:"path"`
}

// NewNavigator starts at the top of the given order with every dimension enabled.
func NewNavigator(order []models.Dimension) Navigator {
	if len(order) == 0 {
		order = models.DefaultHierarchy
	}
	n := Navigator{
		Order:   slices.Clone(order),
		Enabled: make(map[models.Dimension]bool, len(order)),
		GroupBy: order[0],
	}
	for _, d := range order {
		n.Enabled[d] = true
	}
	return n
}

func (n Navigator) clone() Navigator {
	c := Navigator{
		Order:   slices.Clone(n.Order),
		Enabled: make(map[models.Dimension]bool, len(n.Enabled)),
		GroupBy: n.GroupBy,
		Path:    slices.Clone(n.Path),
	}
	for k, v := range n.Enabled {
		c.Enabled[k] = v
	}
	return c
}

// Filter is the active drill filter, the last path entry.
func (n Navigator) Filter() (PathEntry, bool) {
	if len(n.Path) == 0 {
		return PathEntry{}, false
	}
	return n.Path[len(n.Path)-1], true
}

// Depth is the number of drill steps taken.
func (n Navigator) Depth() int { return len(n.Path) }

// CanDrill reports whether the current grouping has a level below it.
func (n Navigator) CanDrill() bool {
	_, ok := n.next(n.GroupBy)
	return ok
}

// DrillDown narrows to one group of the current grouping and advances to the
// next enabled dimension. At the leaf dimension it does nothing.
func (n Navigator) DrillDown(value string) Navigator {
	nextDim, ok := n.next(n.GroupBy)
	if !ok {
		return n.clone()
	}
	c := n.clone()
	c.Path = append(c.Path, PathEntry{Dimension: n.GroupBy, Value: value})
	c.GroupBy = nextDim
	return c
}

// DrillUp pops the last drill step and regroups by its dimension.
func (n Navigator) DrillUp() Navigator {
	c := n.clone()
	if len(c.Path) == 0 {
		return c
	}
	last := c.Path[len(c.Path)-1]
	c.Path = c.Path[:len(c.Path)-1]
	c.GroupBy = last.Dimension
	return c
}

// Reset clears the drill path and groups by the first enabled dimension.
func (n Navigator) Reset() Navigator {
	c := n.clone()
	c.Path = nil
	if d, ok := c.firstEnabled(); ok {
		c.GroupBy = d
	}
	return c
}

// SetGroupBy regroups the current drill position by an enabled dimension.
func (n Navigator) SetGroupBy(d models.Dimension) (Navigator, error) {
	if !n.Enabled[d] {
		return n, &models.ParamError{Param: "group_by", Value: d}
	}
	c := n.clone()
	c.GroupBy = d
	return c, nil
}

// Reorder moves the dimension at index from to index to.
func (n Navigator) Reorder(from, to int) (Navigator, error) {
	if from < 0 || from >= len(n.Order) {
		return n, &models.ParamError{Param: "from", Value: from}
	}
	if to < 0 || to >= len(n.Order) {
		return n, &models.ParamError{Param: "to", Value: to}
	}
	c := n.clone()
	d := c.Order[from]
	c.Order = slices.Delete(c.Order, from, from+1)
	c.Order = slices.Insert(c.Order, to, d)
	return c, nil
}

// SetEnabled toggles a dimension. Disabling the current grouping moves it to
// the next enabled dimension, wrapping to the start of the order.
func (n Navigator) SetEnabled(d models.Dimension, on bool) (Navigator, error) {
	if !slices.Contains(n.Order, d) {
		return n, &models.ParamError{Param: "dimension", Value: d}
	}
	c := n.clone()
	c.Enabled[d] = on
	if _, ok := c.firstEnabled(); !ok {
		return n, ErrNoEnabledDimension
	}
	if !on && c.GroupBy == d {
		if nd, ok := c.next(d); ok {
			c.GroupBy = nd
		} else {
			c.GroupBy, _ = c.firstEnabled()
		}
	}
	return c, nil
}

// EnabledOrder lists the enabled dimensions in hierarchy order.
func (n Navigator) EnabledOrder() []models.Dimension {
	var out []models.Dimension
	for _, d := range n.Order {
		if n.Enabled[d] {
			out = append(out, d)
		}
	}
	return out
}

func (n Navigator) next(d models.Dimension) (models.Dimension, bool) {
	i := slices.Index(n.Order, d)
	if i < 0 {
		return "", false
	}
	for _, nd := range n.Order[i+1:] {
		if n.Enabled[nd] {
			return nd, true
		}
	}
	return "", false
}

func (n Navigator) firstEnabled() (models.Dimension, bool) {
	for _, d := range n.Order {
		if n.Enabled[d] {
			return d, true
		}
	}
	return "", false
}
