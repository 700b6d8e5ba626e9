// Package hierarchy groups channel metrics by a categorical dimension and
// tracks drill navigation through an ordered dimension hierarchy.
package hierarchy

import (
	"sort"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

// Totals holds the summed KPIs of a set of members.
type Totals struct {
	Current float64 `json:"current"`
	Spend   float64 `json:"spend"`
	Volume  float64 `json:"volume"`
	Value   float64 `json:"value"`
	Profit  float64 `json:"profit"`
	CPA     float64 `json:"cpa"`
	ROI     float64 `json:"roi"`
	Count   int     `json:"count"`
}

func (t *Totals) add(m models.ChannelMetric) {
	t.Current += m.Current
	t.Spend += m.Adjusted
	t.Volume += m.Volume
	t.Value += m.Value
	t.Profit += m.Profit
	t.CPA += m.CPA.ValueOrZero()
	t.ROI += m.ROI.ValueOrZero()
	t.Count++
}

func (t *Totals) merge(o Totals) {
	t.Current += o.Current
	t.Spend += o.Spend
	t.Volume += o.Volume
	t.Value += o.Value
	t.Profit += o.Profit
	t.CPA += o.CPA
	t.ROI += o.ROI
	t.Count += o.Count
}

// KPI reads one summed KPI.
func (t Totals) KPI(k models.KPI) float64 {
	switch k {
	case models.KPISpend:
		return t.Spend
	case models.KPIVolume:
		return t.Volume
	case models.KPIValue:
		return t.Value
	case models.KPIProfit:
		return t.Profit
	case models.KPICPA:
		return t.CPA
	case models.KPIROI:
		return t.ROI
	}
	return 0
}

// Group is every member sharing one value of a dimension.
type Group struct {
	Dimension models.Dimension       `json:"dimension"`
	Key       string                 `json:"key"`
	Members   []models.ChannelMetric `json:"members"`
	Totals    Totals                 `json:"totals"`
}

type Result struct {
	GroupBy    models.Dimension `json:"group_by"`
	Groups     []Group          `json:"groups"`
	GrandTotal Totals           `json:"grand_total"`
}

// Find returns the group with the given key.
func (r Result) Find(key string) (Group, bool) {
	for _, g := range r.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// GroupBy partitions members by dimension. Members keep their input order
// inside a group; groups are ordered by total spend, largest first, ties by
// first appearance. The input slice is not modified.
func GroupBy(members []models.ChannelMetric, by models.Dimension) Result {
	res := Result{GroupBy: by, Groups: []Group{}}
	idx := map[string]int{}
	for _, m := range members {
		k := m.Attr(by)
		i, ok := idx[k]
		if !ok {
			i = len(res.Groups)
			idx[k] = i
			res.Groups = append(res.Groups, Group{Dimension: by, Key: k})
		}
		g := &res.Groups[i]
		g.Members = append(g.Members, m)
		g.Totals.add(m)
	}
	sort.SliceStable(res.Groups, func(i, j int) bool {
		return res.Groups[i].Totals.Spend > res.Groups[j].Totals.Spend
	})
	for _, g := range res.Groups {
		res.GrandTotal.merge(g.Totals)
	}
	return res
}

// Sum totals members without grouping.
func Sum(members []models.ChannelMetric) Totals {
	var t Totals
	for _, m := range members {
		t.add(m)
	}
	return t
}

// Filter keeps the members matching every entry of a drill path.
func Filter(members []models.ChannelMetric, path []PathEntry) []models.ChannelMetric {
	if len(path) == 0 {
		return members
	}
	out := make([]models.ChannelMetric, 0, len(members))
	for _, m := range members {
		if matches(m, path) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m models.ChannelMetric, path []PathEntry) bool {
	for _, p := range path {
		if m.Attr(p.Dimension) != p.Value {
			return false
		}
	}
	return true
}

// View is what a drill position shows.
type View struct {
	Result
	Path []PathEntry `json:"path"`
	// Top is the grand total over all members regardless of drill depth.
	Top Totals `json:"top"`
}

// Apply groups the members visible at the navigator's drill position.
func Apply(members []models.ChannelMetric, nav Navigator) View {
	return View{
		Result: GroupBy(Filter(members, nav.Path), nav.GroupBy),
		Path:   append([]PathEntry(nil), nav.Path...),
		Top:    Sum(members),
	}
}
