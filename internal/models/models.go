package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
)

// Curve is one channel's response function definition.
type Curve struct {
	ID              int     `json:"curve_id" yaml:"curve_id"`
	Name            string  `json:"curve_name" yaml:"curve_name"`
	ModelID         int     `json:"model_id" yaml:"model_id"`
	Pillar          string  `json:"pillar" yaml:"pillar"`
	CampaignProduct string  `json:"campaign_product" yaml:"campaign_product"`
	MediaGroup      string  `json:"media_group" yaml:"media_group"`
	Family          string  `json:"type" yaml:"type"`
	Alpha           float64 `json:"alpha" yaml:"alpha"`
	Beta            float64 `json:"beta" yaml:"beta"`
	Color           string  `json:"color" yaml:"color"`
}

const FamilyTanh = "tanh"

// Attr returns the value of a grouping dimension for the curve.
func (c Curve) Attr(d Dimension) string {
	switch d {
	case DimPillar:
		return c.Pillar
	case DimCampaignProduct:
		return c.CampaignProduct
	case DimMediaGroup:
		return c.MediaGroup
	case DimCurveName:
		return c.Name
	case DimModel:
		return strconv.Itoa(c.ModelID)
	}
	return ""
}

// SpendRecord is the weekly spend laydown of one curve, keyed by "{year}_wk{n}".
type SpendRecord struct {
	CurveID int                `json:"curve_id" yaml:"curve_id"`
	Weeks   map[string]float64 `json:"weeks" yaml:"weeks"`
}

var weekRe = regexp.MustCompile(`^(\d{4})_wk(\d{1,2})$`)

// WeekLabel formats a week key.
func WeekLabel(year, n int) string { return fmt.Sprintf("%d_wk%d", year, n) }

// ParseWeek splits a week key into year and week number.
func ParseWeek(label string) (year, n int, err error) {
	m := weekRe.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, &ParamError{Param: "week", Value: label}
	}
	year, _ = strconv.Atoi(m[1])
	n, _ = strconv.Atoi(m[2])
	if n < 1 || n > 52 {
		return 0, 0, &ParamError{Param: "week", Value: label}
	}
	return year, n, nil
}

// Total sums the weeks in [from, to] of the given year. A zero range sums every week.
func (r SpendRecord) Total(year, from, to int) float64 {
	var s float64
	for k, v := range r.Weeks {
		y, n, err := ParseWeek(k)
		if err != nil {
			continue
		}
		if from == 0 && to == 0 {
			s += v
			continue
		}
		if y == year && n >= from && n <= to {
			s += v
		}
	}
	return s
}

// Model is an MMM model grouping a set of curves.
type Model struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Market string `json:"market" yaml:"market"`
	Brand  string `json:"brand" yaml:"brand"`
}

// Hierarchy is market -> brand -> sub brand -> channel names.
type Hierarchy map[string]map[string]map[string][]string

// CPM is the cost per mille of a curve for a week.
type CPM struct {
	CurveID int     `json:"curve_id" yaml:"curve_id"`
	Week    string  `json:"week" yaml:"week"`
	CPM     float64 `json:"cpm" yaml:"cpm"`
}

// ChannelMetric is the derived per-curve result for one scenario.
type ChannelMetric struct {
	CurveID         int        `json:"curve_id"`
	Name            string     `json:"name"`
	ModelID         int        `json:"model_id"`
	Pillar          string     `json:"pillar"`
	CampaignProduct string     `json:"campaign_product"`
	MediaGroup      string     `json:"media_group"`
	Color           string     `json:"color,omitempty"`
	Current         float64    `json:"current_budget"`
	Adjusted        float64    `json:"adjusted_budget"`
	ChangePercent   float64    `json:"change_percent"`
	Volume          float64    `json:"volume"`
	Value           float64    `json:"value"`
	Profit          float64    `json:"profit"`
	CPA             null.Float `json:"cpa"`
	ROI             null.Float `json:"roi"`
	Guardrail       bool       `json:"guardrail"`
}

// Attr returns the value of a grouping dimension for the metric.
func (m ChannelMetric) Attr(d Dimension) string {
	switch d {
	case DimPillar:
		return m.Pillar
	case DimCampaignProduct:
		return m.CampaignProduct
	case DimMediaGroup:
		return m.MediaGroup
	case DimCurveName:
		return m.Name
	case DimModel:
		return strconv.Itoa(m.ModelID)
	}
	return ""
}

// KPI reads a selectable KPI; null CPA/ROI read as 0.
func (m ChannelMetric) KPI(k KPI) float64 {
	switch k {
	case KPISpend:
		return m.Adjusted
	case KPIVolume:
		return m.Volume
	case KPIValue:
		return m.Value
	case KPIProfit:
		return m.Profit
	case KPICPA:
		return m.CPA.ValueOrZero()
	case KPIROI:
		return m.ROI.ValueOrZero()
	}
	return 0
}

type ScenarioType string

const (
	Simulation   ScenarioType = "Simulation"
	Optimization ScenarioType = "Optimization"
)

// Scenario is a named set of channel metrics produced by a wizard run.
type Scenario struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       ScenarioType    `json:"type"`
	ModelID    int             `json:"model_id"`
	TimePeriod string          `json:"time_period"`
	Tags       []string        `json:"tags"`
	CreatedAt  time.Time       `json:"created_at"`
	Channels   []ChannelMetric `json:"channels"`
	Totals     Totals          `json:"totals"`
}

// Totals is the scenario-level roll-up.
type Totals struct {
	BaseSpend     float64    `json:"base_spend"`
	Spend         float64    `json:"spend"`
	Volume        float64    `json:"volume"`
	Value         float64    `json:"value"`
	Profit        float64    `json:"profit"`
	ChangePercent float64    `json:"change_percent"`
	CPA           null.Float `json:"cpa"`
	ROI           null.Float `json:"roi"`
}

// ChartPoint is one sample of a response curve; X is spend in thousands.
type ChartPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ChartSeries struct {
	CurveID int          `json:"curve_id"`
	Name    string       `json:"name"`
	Color   string       `json:"color,omitempty"`
	Points  []ChartPoint `json:"points"`
}

// Catalog is the reference data the planner works from.
type Catalog struct {
	Models    []Model       `json:"models" yaml:"models"`
	Curves    []Curve       `json:"curves" yaml:"curves"`
	Spend     []SpendRecord `json:"spend" yaml:"spend"`
	Hierarchy Hierarchy     `json:"hierarchy" yaml:"hierarchy"`
	CPMs      []CPM         `json:"cpms" yaml:"cpms"`
}

// CurvesFor returns the curves of the given models, all curves when none are given.
func (c *Catalog) CurvesFor(modelIDs ...int) []Curve {
	if len(modelIDs) == 0 {
		return append([]Curve(nil), c.Curves...)
	}
	want := make(map[int]bool, len(modelIDs))
	for _, id := range modelIDs {
		want[id] = true
	}
	var out []Curve
	for _, cv := range c.Curves {
		if want[cv.ModelID] {
			out = append(out, cv)
		}
	}
	return out
}

// CPMByCurve averages the weekly CPMs of each curve.
func (c *Catalog) CPMByCurve() map[int]float64 {
	sum := map[int]float64{}
	n := map[int]int{}
	for _, p := range c.CPMs {
		sum[p.CurveID] += p.CPM
		n[p.CurveID]++
	}
	for id := range sum {
		sum[id] /= float64(n[id])
	}
	return sum
}

// DuplicateID returns the first id that occurs more than once.
func DuplicateID(ids []int) (int, bool) {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return 0, false
}
