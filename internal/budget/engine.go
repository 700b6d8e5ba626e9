// Package budget turns (curve, current spend, adjusted spend) into channel
// metrics and applies what-if edits to a working set of channels.
package budget

import (
	"math"

	"github.com/guregu/null/v6"

	"github.com/AngelCh415/mmm-planner/internal/curve"
	"github.com/AngelCh415/mmm-planner/internal/models"
)

const DefaultGuardrailPct = 50

// ResponseModel estimates volume and value for a spend level.
type ResponseModel interface {
	Volume(c models.Curve, spend float64) float64
	Value(c models.Curve, spend float64) float64
}

// LinearModel applies fixed per-unit rates.
type LinearModel struct {
	VolumeRate float64
	ValueRate  float64
}

func DefaultModel() LinearModel { return LinearModel{VolumeRate: 0.08, ValueRate: 2.4} }

func (m LinearModel) Volume(_ models.Curve, spend float64) float64 { return spend * m.VolumeRate }
func (m LinearModel) Value(_ models.Curve, spend float64) float64  { return spend * m.ValueRate }

// CurveModel reads volume off the channel's response curve. A zero MaxSpend
// means curve.DefaultMaxSpend.
type CurveModel struct {
	MaxSpend     float64
	UnitValue    float64 // value per unit of volume
	VolumePerRes float64 // volume per unit of curve response
}

func (m CurveModel) Volume(c models.Curve, spend float64) float64 {
	maxSpend := m.MaxSpend
	if maxSpend <= 0 {
		maxSpend = curve.DefaultMaxSpend
	}
	r, err := curve.Evaluate(c.Alpha, c.Beta, spend, maxSpend)
	if err != nil {
		return 0
	}
	return r * m.VolumePerRes
}

func (m CurveModel) Value(c models.Curve, spend float64) float64 {
	return m.Volume(c, spend) * m.UnitValue
}

type Engine struct {
	Model              ResponseModel
	GuardrailThreshold float64
}

func NewEngine(model ResponseModel, guardrailPct float64) *Engine {
	if model == nil {
		model = DefaultModel()
	}
	if guardrailPct <= 0 {
		guardrailPct = DefaultGuardrailPct
	}
	return &Engine{Model: model, GuardrailThreshold: guardrailPct}
}

// Compute derives the full metric row for one channel.
func (e *Engine) Compute(c models.Curve, current, adjusted float64) (models.ChannelMetric, error) {
	if current < 0 || math.IsNaN(current) {
		return models.ChannelMetric{}, &models.ParamError{Param: "current", Value: current}
	}
	if adjusted < 0 || math.IsNaN(adjusted) {
		return models.ChannelMetric{}, &models.ParamError{Param: "adjusted", Value: adjusted}
	}
	m := models.ChannelMetric{
		CurveID:         c.ID,
		Name:            c.Name,
		ModelID:         c.ModelID,
		Pillar:          c.Pillar,
		CampaignProduct: c.CampaignProduct,
		MediaGroup:      c.MediaGroup,
		Color:           c.Color,
		Current:         current,
		Adjusted:        adjusted,
		ChangePercent:   ChangePercent(current, adjusted),
		Volume:          Round(e.Model.Volume(c, adjusted)),
		Value:           Round(e.Model.Value(c, adjusted)),
	}
	m.Profit = m.Value - adjusted
	if cpa, err := Ratio(adjusted, m.Volume); err == nil {
		m.CPA = null.FloatFrom(Round(cpa))
	}
	if roi, err := Ratio(m.Value-adjusted, adjusted); err == nil {
		m.ROI = null.FloatFrom(Round(roi * 100))
	}
	m.Guardrail = Guardrail(m, e.GuardrailThreshold)
	return m, nil
}

// ChangePercent is round((adjusted-current)/current*100), 0 when current is 0.
func ChangePercent(current, adjusted float64) float64 {
	r, err := Ratio(adjusted-current, current)
	if err != nil {
		return 0
	}
	return Round(r * 100)
}

// Ratio divides, reporting ErrDivisionByZero instead of producing Inf or NaN.
func Ratio(num, den float64) (float64, error) {
	if den == 0 {
		return 0, models.ErrDivisionByZero
	}
	return num / den, nil
}

// Guardrail flags a change whose magnitude reaches the threshold.
func Guardrail(m models.ChannelMetric, thresholdPct float64) bool {
	if thresholdPct <= 0 {
		thresholdPct = DefaultGuardrailPct
	}
	return math.Abs(m.ChangePercent) >= thresholdPct
}

// Round rounds half up, like the planner UI always did.
func Round(f float64) float64 { return math.Floor(f + 0.5) }
