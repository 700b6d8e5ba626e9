// Package compare computes KPI deltas between two scenarios grouped the same way.
package compare

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/guregu/null/v6"

	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
)

// Delta is one compared value.
type Delta struct {
	Key          string     `json:"key"`
	Name         string     `json:"name"`
	Left         float64    `json:"left"`
	Right        float64    `json:"right"`
	Delta        float64    `json:"delta"`
	DeltaPercent null.Float `json:"delta_percent"`
	Favorable    bool       `json:"favorable"`
}

// PercentLabel renders the percent, "-" when undefined.
func (d Delta) PercentLabel() string {
	if !d.DeltaPercent.Valid {
		return "-"
	}
	return strconv.FormatFloat(d.DeltaPercent.Float64, 'f', 1, 64)
}

type GroupDelta struct {
	Delta
	Rows []Delta `json:"rows"`
}

type Comparison struct {
	KPI     models.KPI       `json:"kpi"`
	GroupBy models.Dimension `json:"group_by"`
	LeftID  string           `json:"left_id"`
	RightID string           `json:"right_id"`
	Groups  []GroupDelta     `json:"groups"`
	Total   Delta            `json:"total"`
}

// NewDelta computes right-left and its percent of left for a KPI.
func NewDelta(kpi models.KPI, key string, left, right float64) Delta {
	d := Delta{Key: key, Name: key, Left: left, Right: right, Delta: right - left}
	if left != 0 {
		d.DeltaPercent = null.FloatFrom(d.Delta / left * 100)
	}
	d.Favorable = Favorable(kpi, d.Delta)
	return d
}

// Favorable reports whether a delta is an improvement. Lower CPA is better;
// for every other KPI higher is better.
func Favorable(kpi models.KPI, delta float64) bool {
	if kpi.LowerIsBetter() {
		return delta <= 0
	}
	return delta >= 0
}

// Diff groups both scenarios by the same dimension and compares them group by
// group and channel by channel. Both sides must contain the same groups and
// the same channels per group.
func Diff(left, right models.Scenario, by models.Dimension, kpi models.KPI) (Comparison, error) {
	lr := hierarchy.GroupBy(left.Channels, by)
	rr := hierarchy.GroupBy(right.Channels, by)
	if err := checkStructure(lr, rr); err != nil {
		return Comparison{}, err
	}

	out := Comparison{KPI: kpi, GroupBy: by, LeftID: left.ID, RightID: right.ID, Groups: make([]GroupDelta, 0, len(lr.Groups))}
	for _, lg := range lr.Groups {
		rg, _ := rr.Find(lg.Key)
		gd := GroupDelta{Delta: NewDelta(kpi, lg.Key, lg.Totals.KPI(kpi), rg.Totals.KPI(kpi))}
		rm := byCurve(rg.Members)
		for _, lm := range lg.Members {
			d := NewDelta(kpi, leafKey(lm), lm.KPI(kpi), rm[lm.CurveID].KPI(kpi))
			d.Name = lm.Name
			gd.Rows = append(gd.Rows, d)
		}
		out.Groups = append(out.Groups, gd)
	}
	out.Total = NewDelta(kpi, "total", lr.GrandTotal.KPI(kpi), rr.GrandTotal.KPI(kpi))
	return out, nil
}

func checkStructure(l, r hierarchy.Result) error {
	var mis models.MismatchError
	for _, lg := range l.Groups {
		rg, ok := r.Find(lg.Key)
		if !ok {
			mis.MissingRight = append(mis.MissingRight, lg.Key)
			continue
		}
		lm, rm := byCurve(lg.Members), byCurve(rg.Members)
		for id, m := range lm {
			if _, ok := rm[id]; !ok {
				mis.MissingRight = append(mis.MissingRight, lg.Key+"/"+leafKey(m))
			}
		}
		for id, m := range rm {
			if _, ok := lm[id]; !ok {
				mis.MissingLeft = append(mis.MissingLeft, lg.Key+"/"+leafKey(m))
			}
		}
	}
	for _, rg := range r.Groups {
		if _, ok := l.Find(rg.Key); !ok {
			mis.MissingLeft = append(mis.MissingLeft, rg.Key)
		}
	}
	for _, g := range l.Groups {
		mis.Duplicated = append(mis.Duplicated, duplicates("left", g)...)
	}
	for _, g := range r.Groups {
		mis.Duplicated = append(mis.Duplicated, duplicates("right", g)...)
	}
	if len(mis.MissingLeft) == 0 && len(mis.MissingRight) == 0 && len(mis.Duplicated) == 0 {
		return nil
	}
	sort.Strings(mis.MissingLeft)
	sort.Strings(mis.MissingRight)
	sort.Strings(mis.Duplicated)
	return &mis
}

// duplicates lists leaves of g whose curve occurs more than once.
func duplicates(side string, g hierarchy.Group) []string {
	seen := make(map[int]bool, len(g.Members))
	var out []string
	for _, m := range g.Members {
		if seen[m.CurveID] {
			out = append(out, side+":"+g.Key+"/"+leafKey(m))
		}
		seen[m.CurveID] = true
	}
	return out
}

func byCurve(ms []models.ChannelMetric) map[int]models.ChannelMetric {
	out := make(map[int]models.ChannelMetric, len(ms))
	for _, m := range ms {
		out[m.CurveID] = m
	}
	return out
}

func leafKey(m models.ChannelMetric) string { return fmt.Sprintf("curve-%d", m.CurveID) }
