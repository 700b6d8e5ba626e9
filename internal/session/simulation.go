package session

import (
	"slices"

	"github.com/AngelCh415/mmm-planner/internal/budget"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
)

// Simulation is the what-if wizard: pick curves, pick a period, edit spend,
// then run.
type Simulation struct {
	Step     Step                `json:"step"`
	ModelIDs []int               `json:"model_ids"`
	CurveIDs []int               `json:"curve_ids"`
	Range    hierarchy.WeekRange `json:"range"`
	Snapshot budget.Snapshot     `json:"snapshot"`
	Result   *models.Scenario    `json:"result,omitempty"`
}

// SelectModels selects the models and every curve they own.
func (p Planner) SelectModels(s Simulation, cat *models.Catalog, modelIDs []int) Simulation {
	next := Simulation{Step: StepSelect, Range: s.Range}
	next.ModelIDs = slices.Clone(modelIDs)
	next.CurveIDs = curveIDs(cat.CurvesFor(modelIDs...))
	return next
}

// ToggleCurve adds or removes one curve from the selection.
func (p Planner) ToggleCurve(s Simulation, id int) Simulation {
	s.CurveIDs = toggle(s.CurveIDs, id)
	s.Step = StepSelect
	s.Snapshot = budget.Snapshot{}
	s.Result = nil
	return s
}

func (p Planner) SetPeriod(s Simulation, rng hierarchy.WeekRange) (Simulation, error) {
	if len(s.CurveIDs) == 0 {
		return s, &models.ParamError{Param: "curves", Value: 0}
	}
	if id, dup := models.DuplicateID(s.CurveIDs); dup {
		return s, &models.ParamError{Param: "curve_id", Value: id}
	}
	if err := rng.Validate(); err != nil {
		return s, err
	}
	s.Range = rng
	s.Step = StepPeriod
	s.Result = nil
	return s, nil
}

// Prepare fills the plan with current spend for the period, unchanged.
func (p Planner) Prepare(s Simulation, cat *models.Catalog) (Simulation, error) {
	if len(s.CurveIDs) == 0 {
		return s, &models.ParamError{Param: "curves", Value: 0}
	}
	curves, err := curvesByID(cat, s.CurveIDs)
	if err != nil {
		return s, err
	}
	spend := currentSpend(cat, s.Range)
	lines := make([]budget.Line, len(curves))
	for i, c := range curves {
		lines[i] = budget.Line{Curve: c, Current: spend[c.ID], Adjusted: spend[c.ID]}
	}
	snap, err := p.Engine.Evaluate(lines)
	if err != nil {
		return s, err
	}
	s.Snapshot = snap
	s.Step = StepAdjust
	s.Result = nil
	return s, nil
}

func (p Planner) Adjust(s Simulation, curveID int, adjusted float64) (Simulation, error) {
	lines, err := budget.SetAdjusted(s.Snapshot.Lines, curveID, adjusted)
	if err != nil {
		return s, err
	}
	return p.reevaluate(s, lines)
}

func (p Planner) AdjustPercent(s Simulation, curveID int, pct float64) (Simulation, error) {
	lines, err := budget.SetChangePercent(s.Snapshot.Lines, curveID, pct)
	if err != nil {
		return s, err
	}
	return p.reevaluate(s, lines)
}

// Bulk applies the same percent change to every line.
func (p Planner) Bulk(s Simulation, pct float64) (Simulation, error) {
	snap, err := p.Engine.ApplyBulk(s.Snapshot.Lines, pct)
	if err != nil {
		return s, err
	}
	s.Snapshot = snap
	s.Result = nil
	return s, nil
}

func (p Planner) RemoveCurve(s Simulation, curveID int) (Simulation, error) {
	s.CurveIDs = slices.DeleteFunc(slices.Clone(s.CurveIDs), func(id int) bool { return id == curveID })
	return p.reevaluate(s, budget.Remove(s.Snapshot.Lines, curveID))
}

// Run freezes the plan into a Simulation scenario.
func (p Planner) Run(s Simulation, cat *models.Catalog, meta RunMeta) (Simulation, error) {
	if s.Step < StepAdjust || len(s.Snapshot.Lines) == 0 {
		return s, &models.ParamError{Param: "step", Value: s.Step}
	}
	sc := p.scenario(models.Simulation, cat, s.ModelIDs, s.Range, s.Snapshot, meta)
	s.Result = &sc
	s.Step = StepResults
	return s, nil
}

func (p Planner) reevaluate(s Simulation, lines []budget.Line) (Simulation, error) {
	snap, err := p.Engine.Evaluate(lines)
	if err != nil {
		return s, err
	}
	s.Snapshot = snap
	s.Result = nil
	return s, nil
}
