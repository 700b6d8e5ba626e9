package budget

import (
	"fmt"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/floats"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

// Line is one channel of a working plan.
type Line struct {
	Curve    models.Curve `json:"curve"`
	Current  float64      `json:"current"`
	Adjusted float64      `json:"adjusted"`
}

// Snapshot is a consistent view of a plan and every derived value.
type Snapshot struct {
	Lines   []Line                 `json:"lines"`
	Metrics []models.ChannelMetric `json:"metrics"`
	Totals  models.Totals          `json:"totals"`
	Flagged []int                  `json:"flagged"`
}

// Warn reports whether any channel crossed the guardrail.
func (s Snapshot) Warn() bool { return len(s.Flagged) > 0 }

// Evaluate computes metrics for every line.
func (e *Engine) Evaluate(lines []Line) (Snapshot, error) {
	snap := Snapshot{
		Lines:   append([]Line(nil), lines...),
		Metrics: make([]models.ChannelMetric, 0, len(lines)),
	}
	for _, l := range lines {
		m, err := e.Compute(l.Curve, l.Current, l.Adjusted)
		if err != nil {
			return Snapshot{}, fmt.Errorf("curve %d: %w", l.Curve.ID, err)
		}
		if m.Guardrail {
			snap.Flagged = append(snap.Flagged, m.CurveID)
		}
		snap.Metrics = append(snap.Metrics, m)
	}
	snap.Totals = Totals(snap.Metrics)
	return snap, nil
}

// ApplyBulk sets every channel to current*(1+pct/100) and recomputes the plan.
// The input is never modified; on error no partial result is returned.
func (e *Engine) ApplyBulk(lines []Line, pct float64) (Snapshot, error) {
	if pct < -100 {
		return Snapshot{}, &models.ParamError{Param: "pct", Value: pct}
	}
	next := make([]Line, len(lines))
	for i, l := range lines {
		next[i] = l
		next[i].Adjusted = Round(l.Current * (1 + pct/100))
	}
	return e.Evaluate(next)
}

// SetAdjusted replaces one channel's adjusted spend.
func SetAdjusted(lines []Line, curveID int, v float64) ([]Line, error) {
	if v < 0 {
		return nil, &models.ParamError{Param: "adjusted", Value: v}
	}
	return update(lines, curveID, func(l *Line) { l.Adjusted = v })
}

// SetChangePercent sets one channel's adjusted spend from a percent change.
func SetChangePercent(lines []Line, curveID int, pct float64) ([]Line, error) {
	if pct < -100 {
		return nil, &models.ParamError{Param: "pct", Value: pct}
	}
	return update(lines, curveID, func(l *Line) { l.Adjusted = Round(l.Current * (1 + pct/100)) })
}

// Remove drops a channel from the plan.
func Remove(lines []Line, curveID int) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Curve.ID != curveID {
			out = append(out, l)
		}
	}
	return out
}

func update(lines []Line, curveID int, f func(*Line)) ([]Line, error) {
	out := append([]Line(nil), lines...)
	for i := range out {
		if out[i].Curve.ID == curveID {
			f(&out[i])
			return out, nil
		}
	}
	return nil, fmt.Errorf("curve %d: %w", curveID, models.ErrNotFound)
}

// Totals rolls a set of channel metrics up to scenario level.
func Totals(ms []models.ChannelMetric) models.Totals {
	base := make([]float64, len(ms))
	spend := make([]float64, len(ms))
	vol := make([]float64, len(ms))
	val := make([]float64, len(ms))
	for i, m := range ms {
		base[i], spend[i], vol[i], val[i] = m.Current, m.Adjusted, m.Volume, m.Value
	}
	t := models.Totals{
		BaseSpend: floats.Sum(base),
		Spend:     floats.Sum(spend),
		Volume:    floats.Sum(vol),
		Value:     floats.Sum(val),
	}
	t.Profit = t.Value - t.Spend
	t.ChangePercent = ChangePercent(t.BaseSpend, t.Spend)
	if cpa, err := Ratio(t.Spend, t.Volume); err == nil {
		t.CPA = null.FloatFrom(Round(cpa))
	}
	if roi, err := Ratio(t.Value-t.Spend, t.Spend); err == nil {
		t.ROI = null.FloatFrom(Round(roi * 100))
	}
	return t
}
