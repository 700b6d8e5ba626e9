package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/mmm-planner/internal/budget"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
	"github.com/AngelCh415/mmm-planner/internal/optimize"
	"github.com/AngelCh415/mmm-planner/internal/refdata"
	"github.com/AngelCh415/mmm-planner/internal/store"
)

var fixed = time.Date(2024, 12, 2, 9, 30, 0, 0, time.UTC)

func planner() Planner {
	p := NewPlanner(budget.NewEngine(nil, 50))
	p.Now = func() time.Time { return fixed }
	n := 0
	p.NewID = func() string { n++; return []string{"", "first", "second", "third"}[n] }
	return p
}

func catalog(t *testing.T) *models.Catalog {
	t.Helper()
	c, err := refdata.Default()
	require.NoError(t, err)
	return c
}

func TestSimulationWizard(t *testing.T) {
	p, cat := planner(), catalog(t)
	st := NewState()

	sim := p.SelectModels(st.Sim, cat, []int{4})
	assert.Equal(t, []int{1, 8, 10, 15, 16, 21}, sim.CurveIDs)

	_, err := p.SetPeriod(sim, hierarchy.WeekRange{Year: 2024, From: 5, To: 2})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	sim, err = p.SetPeriod(sim, hierarchy.WeekRange{Year: 2024, From: 1, To: 4})
	require.NoError(t, err)
	sim, err = p.Prepare(sim, cat)
	require.NoError(t, err)
	require.Equal(t, StepAdjust, sim.Step)
	assert.Equal(t, 5410389.0, sim.Snapshot.Lines[0].Current)
	assert.Equal(t, 1567625.0, sim.Snapshot.Lines[1].Current)
	assert.Equal(t, 0.0, sim.Snapshot.Lines[5].Current, "curve without spend starts at zero")
	assert.False(t, sim.Snapshot.Warn())

	bulk, err := p.Bulk(sim, 10)
	require.NoError(t, err)
	assert.Equal(t, 5951428.0, bulk.Snapshot.Lines[0].Adjusted)
	assert.Equal(t, 5410389.0, sim.Snapshot.Lines[0].Adjusted, "previous state untouched")

	edited, err := p.Adjust(bulk, 8, 3000000)
	require.NoError(t, err)
	assert.True(t, edited.Snapshot.Warn())
	assert.Equal(t, []int{8}, edited.Snapshot.Flagged)

	_, err = p.Adjust(bulk, 999, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)

	done, err := p.Run(edited, cat, RunMeta{})
	require.NoError(t, err)
	require.NotNil(t, done.Result)
	sc := *done.Result
	assert.Equal(t, StepResults, done.Step)
	assert.Equal(t, "first", sc.ID)
	assert.Equal(t, models.Simulation, sc.Type)
	assert.Equal(t, 4, sc.ModelID)
	assert.Equal(t, "Simulation - Model 4 - Seasonal Christmas - 2024-12-02", sc.Name)
	assert.Equal(t, "2024 wk1-wk4", sc.TimePeriod)
	assert.Equal(t, fixed, sc.CreatedAt)
	assert.Equal(t, edited.Snapshot.Totals, sc.Totals)
}

func TestSimulationRunNeedsPlan(t *testing.T) {
	p, cat := planner(), catalog(t)
	_, err := p.Run(NewState().Sim, cat, RunMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestSimulationRejectsDuplicateCurves(t *testing.T) {
	p, cat := planner(), catalog(t)
	sim := Simulation{CurveIDs: []int{1, 1}, Range: hierarchy.WeekRange{Year: 2024, From: 1, To: 8}}

	_, err := p.SetPeriod(sim, sim.Range)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = p.Prepare(sim, cat)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	o, err := p.StartOptimization(cat, []int{6}, DefaultRange)
	require.NoError(t, err)
	o.CurveIDs = []int{23, 23}
	_, err = p.RunOptimization(o, cat, optimizeDefaults(), RunMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestToggleAndRemoveCurve(t *testing.T) {
	p, cat := planner(), catalog(t)
	sim := p.SelectModels(Simulation{Range: DefaultRange}, cat, []int{6})
	assert.Equal(t, []int{23, 41}, sim.CurveIDs)
	sim = p.ToggleCurve(sim, 41)
	assert.Equal(t, []int{23}, sim.CurveIDs)
	sim = p.ToggleCurve(sim, 17)
	assert.Equal(t, []int{23, 17}, sim.CurveIDs)

	sim, err := p.Prepare(sim, cat)
	require.NoError(t, err)
	sim, err = p.RemoveCurve(sim, 23)
	require.NoError(t, err)
	assert.Equal(t, []int{17}, sim.CurveIDs)
	require.Len(t, sim.Snapshot.Lines, 1)
	assert.Equal(t, 17, sim.Snapshot.Lines[0].Curve.ID)
}

func TestOptimizationWizard(t *testing.T) {
	p, cat := planner(), catalog(t)
	o, err := p.StartOptimization(cat, []int{4}, hierarchy.WeekRange{Year: 2024, From: 1, To: 8})
	require.NoError(t, err)
	require.Len(t, o.Rails, 6)
	assert.Greater(t, o.TotalBudget, 0.0)

	o, err = p.SetGuardrail(o, 1, 1000000, 0)
	require.NoError(t, err)
	_, err = p.SetGuardrail(o, 1, 10, 5)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = p.SetGuardrail(o, 999, 0, 0)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	o, err = p.RunOptimization(o, cat, optimizeDefaults(), RunMeta{Name: "opt", Tags: []string{"q4"}})
	require.NoError(t, err)
	require.NotNil(t, o.Outcome)
	require.NotNil(t, o.Result)
	assert.Equal(t, models.Optimization, o.Result.Type)
	assert.Equal(t, "opt", o.Result.Name)
	assert.Equal(t, []string{"q4"}, o.Result.Tags)
	assert.InDelta(t, o.TotalBudget, o.Snapshot.Totals.Spend, 6, "rounding only")
	assert.GreaterOrEqual(t, o.Outcome.Allocations[0].Optimized, 1000000.0)
	assert.Greater(t, o.Outcome.Allocations[0].Impressions, 0.0)
}

func TestStartOptimizationRejectsUnknownModel(t *testing.T) {
	p, cat := planner(), catalog(t)
	_, err := p.StartOptimization(cat, []int{42}, DefaultRange)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestLaydownView(t *testing.T) {
	cat := catalog(t)
	v := NewLaydownView()
	v, err := v.WithRange(hierarchy.WeekRange{Year: 2024, From: 1, To: 8})
	require.NoError(t, err)

	top, err := v.Build(cat)
	require.NoError(t, err)
	assert.Equal(t, models.DimPillar, top.GroupBy)

	down := v.DrillDown("seasonal")
	ld, err := down.Build(cat)
	require.NoError(t, err)
	assert.Equal(t, models.DimCampaignProduct, ld.GroupBy)
	assert.Equal(t, top.Top, ld.Top)
	assert.Equal(t, 0, v.Nav.Depth(), "receiver untouched")
	assert.Equal(t, 0, down.DrillUp().Nav.Depth())

	_, err = v.WithRange(hierarchy.WeekRange{Year: 2024, From: 0, To: 8})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	found, err := v.WithSearch("print").Build(cat)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Top.Count)
}

func TestCompareView(t *testing.T) {
	p, cat := planner(), catalog(t)
	ctx := context.Background()
	rs := store.NewMemoryStore()

	sim := p.SelectModels(Simulation{Range: DefaultRange}, cat, []int{4})
	sim, err := p.Prepare(sim, cat)
	require.NoError(t, err)
	base, err := p.Run(sim, cat, RunMeta{Name: "base"})
	require.NoError(t, err)
	bumped, err := p.Bulk(sim, 20)
	require.NoError(t, err)
	bumped, err = p.Run(bumped, cat, RunMeta{Name: "bumped"})
	require.NoError(t, err)
	require.NoError(t, rs.Save(ctx, *base.Result))
	require.NoError(t, rs.Save(ctx, *bumped.Result))

	v := NewCompareView()
	_, err = v.Compare(ctx, rs)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	v = v.Select(base.Result.ID, bumped.Result.ID)
	c, err := v.Compare(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, []string{"seasonal"}, c.GroupIDs())
	assert.True(t, c.Total.Favorable)

	v = v.ToggleAll(c.GroupIDs())
	assert.False(t, v.Expand.Expanded("seasonal"))
	v = v.WithGroupBy(models.DimMediaGroup)
	assert.True(t, v.Expand.Expanded("seasonal"), "regrouping resets expansion")

	_, err = v.Select(base.Result.ID, "gone").Compare(ctx, rs)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func optimizeDefaults() optimize.Options { return optimize.Options{} }
