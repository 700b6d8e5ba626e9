// Package session holds the planner's application state as plain values.
// Every transition is a function from one state to the next; nothing here
// keeps hidden state between calls.
package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/mmm-planner/internal/budget"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
)

// Step is a wizard position.
type Step int

const (
	StepSelect Step = iota + 1
	StepPeriod
	StepAdjust
	StepResults
)

// State is everything one planner user is working on.
type State struct {
	Sim     Simulation   `json:"simulation"`
	Opt     Optimization `json:"optimization"`
	Laydown LaydownView  `json:"laydown"`
	Compare CompareView  `json:"compare"`
}

func NewState() State {
	return State{
		Sim:     Simulation{Step: StepSelect, Range: DefaultRange},
		Opt:     Optimization{Step: StepSelect, Range: DefaultRange},
		Laydown: NewLaydownView(),
		Compare: NewCompareView(),
	}
}

// DefaultRange covers the reference laydown year.
var DefaultRange = hierarchy.WeekRange{Year: 2024, From: 1, To: 52}

// Planner carries the collaborators the transitions need. It is safe to
// share between goroutines.
type Planner struct {
	Engine *budget.Engine
	Now    func() time.Time
	NewID  func() string
}

func NewPlanner(eng *budget.Engine) Planner {
	if eng == nil {
		eng = budget.NewEngine(nil, 0)
	}
	return Planner{Engine: eng, Now: time.Now, NewID: uuid.NewString}
}

// RunMeta names a scenario produced by a wizard. Zero values get defaults.
type RunMeta struct {
	Name       string
	Tags       []string
	TimePeriod string
}

func (p Planner) scenario(typ models.ScenarioType, cat *models.Catalog, modelIDs []int, rng hierarchy.WeekRange, snap budget.Snapshot, meta RunMeta) models.Scenario {
	now := p.Now().UTC()
	sc := models.Scenario{
		ID:         p.NewID(),
		Name:       meta.Name,
		Type:       typ,
		TimePeriod: meta.TimePeriod,
		Tags:       slices.Clone(meta.Tags),
		CreatedAt:  now,
		Channels:   slices.Clone(snap.Metrics),
		Totals:     snap.Totals,
	}
	label := "All Models"
	if len(modelIDs) == 1 {
		sc.ModelID = modelIDs[0]
		label = modelName(cat, modelIDs[0])
	}
	if sc.Name == "" {
		sc.Name = fmt.Sprintf("%s - %s - %s", typ, label, now.Format("2006-01-02"))
	}
	if sc.TimePeriod == "" {
		sc.TimePeriod = fmt.Sprintf("%d wk%d-wk%d", rng.Year, rng.From, rng.To)
	}
	return sc
}

func modelName(cat *models.Catalog, id int) string {
	for _, m := range cat.Models {
		if m.ID == id {
			return m.Name
		}
	}
	return fmt.Sprintf("Model %d", id)
}

// currentSpend sums each curve's weekly spend over the range.
func currentSpend(cat *models.Catalog, rng hierarchy.WeekRange) map[int]float64 {
	out := make(map[int]float64, len(cat.Spend))
	for _, r := range cat.Spend {
		out[r.CurveID] += r.Total(rng.Year, rng.From, rng.To)
	}
	return out
}

func curvesByID(cat *models.Catalog, ids []int) ([]models.Curve, error) {
	byID := make(map[int]models.Curve, len(cat.Curves))
	for _, c := range cat.Curves {
		byID[c.ID] = c
	}
	if id, dup := models.DuplicateID(ids); dup {
		return nil, &models.ParamError{Param: "curve_id", Value: id}
	}
	out := make([]models.Curve, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("curve %d: %w", id, models.ErrNotFound)
		}
		out = append(out, c)
	}
	return out, nil
}

func curveIDs(cs []models.Curve) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func toggle(ids []int, id int) []int {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(slices.Clone(ids), i, i+1)
	}
	return append(slices.Clone(ids), id)
}
