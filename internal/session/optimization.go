package session

import (
	"slices"

	"github.com/AngelCh415/mmm-planner/internal/budget"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
	"github.com/AngelCh415/mmm-planner/internal/optimize"
)

// Optimization is the budget optimizer wizard.
type Optimization struct {
	Step        Step                 `json:"step"`
	ModelIDs    []int                `json:"model_ids"`
	CurveIDs    []int                `json:"curve_ids"`
	Range       hierarchy.WeekRange  `json:"range"`
	TotalBudget float64              `json:"total_budget"`
	Rails       []optimize.Guardrail `json:"guardrails"`
	Outcome     *optimize.Result     `json:"outcome,omitempty"`
	Snapshot    budget.Snapshot      `json:"snapshot"`
	Result      *models.Scenario     `json:"result,omitempty"`
}

// StartOptimization selects the curves of the given models over a period and
// seeds guardrails and the total budget from current spend.
func (p Planner) StartOptimization(cat *models.Catalog, modelIDs []int, rng hierarchy.WeekRange) (Optimization, error) {
	if err := rng.Validate(); err != nil {
		return Optimization{}, err
	}
	curves := cat.CurvesFor(modelIDs...)
	if len(curves) == 0 {
		return Optimization{}, &models.ParamError{Param: "models", Value: modelIDs}
	}
	spend := currentSpend(cat, rng)
	o := Optimization{
		Step:     StepAdjust,
		ModelIDs: slices.Clone(modelIDs),
		CurveIDs: curveIDs(curves),
		Range:    rng,
		Rails:    make([]optimize.Guardrail, len(curves)),
	}
	for i, c := range curves {
		o.Rails[i] = optimize.Guardrail{CurveID: c.ID, Current: spend[c.ID]}
		o.TotalBudget += spend[c.ID]
	}
	return o, nil
}

func (p Planner) SetTotalBudget(o Optimization, total float64) (Optimization, error) {
	if !(total > 0) {
		return o, &models.ParamError{Param: "total_budget", Value: total}
	}
	o.TotalBudget = total
	o.Outcome, o.Result = nil, nil
	return o, nil
}

// SetGuardrail bounds one curve. A zero max leaves it unbounded.
func (p Planner) SetGuardrail(o Optimization, curveID int, min, max float64) (Optimization, error) {
	if min < 0 || (max > 0 && max < min) {
		return o, &models.ParamError{Param: "guardrail", Value: curveID}
	}
	rails := slices.Clone(o.Rails)
	i := slices.IndexFunc(rails, func(g optimize.Guardrail) bool { return g.CurveID == curveID })
	if i < 0 {
		return o, &models.ParamError{Param: "curve_id", Value: curveID}
	}
	rails[i].Min, rails[i].Max = min, max
	o.Rails = rails
	o.Outcome, o.Result = nil, nil
	return o, nil
}

// RunOptimization reallocates the budget and turns the allocation into an
// Optimization scenario.
func (p Planner) RunOptimization(o Optimization, cat *models.Catalog, opt optimize.Options, meta RunMeta) (Optimization, error) {
	curves, err := curvesByID(cat, o.CurveIDs)
	if err != nil {
		return o, err
	}
	opt.TotalBudget = o.TotalBudget
	if opt.CPM == nil {
		opt.CPM = cat.CPMByCurve()
	}
	res, err := optimize.Run(curves, o.Rails, opt)
	if err != nil {
		return o, err
	}
	lines := make([]budget.Line, len(curves))
	for i, c := range curves {
		a := res.Allocations[i]
		lines[i] = budget.Line{Curve: c, Current: a.Current, Adjusted: budget.Round(a.Optimized)}
	}
	snap, err := p.Engine.Evaluate(lines)
	if err != nil {
		return o, err
	}
	sc := p.scenario(models.Optimization, cat, o.ModelIDs, o.Range, snap, meta)
	o.Outcome = &res
	o.Snapshot = snap
	o.Result = &sc
	o.Step = StepResults
	return o, nil
}
