package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

var twins = []models.Curve{
	{ID: 6, Name: "fairpricesccpTelevision", Alpha: 130045800, Beta: 3604787},
	{ID: 7, Name: "fairpricesttvTelevision", Alpha: 130045800, Beta: 3604787},
}

func sumOptimized(r Result) float64 {
	var s float64
	for _, a := range r.Allocations {
		s += a.Optimized
	}
	return s
}

func TestRunMovesBudgetTowardHigherMarginal(t *testing.T) {
	rails := []Guardrail{{CurveID: 6, Current: 600000}, {CurveID: 7, Current: 200000}}
	r, err := Run(twins, rails, Options{TotalBudget: 800000})
	require.NoError(t, err)
	require.Len(t, r.Allocations, 2)

	assert.InDelta(t, 800000, sumOptimized(r), 1e-6)
	assert.Less(t, r.Allocations[0].Optimized, 600000.0)
	assert.Greater(t, r.Allocations[1].Optimized, 200000.0)
	assert.Greater(t, r.OptimizedResponse, r.CurrentResponse)
	assert.LessOrEqual(t, r.Iterations, DefaultMaxIterations)
}

func TestRunRespectsGuardrails(t *testing.T) {
	rails := []Guardrail{
		{CurveID: 6, Current: 600000, Min: 550000},
		{CurveID: 7, Current: 200000, Max: 240000},
	}
	r, err := Run(twins, rails, Options{TotalBudget: 800000})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.Allocations[0].Optimized, 550000.0)
	assert.LessOrEqual(t, r.Allocations[1].Optimized, 240000.0+1e-6)
	assert.True(t, r.Converged)
}

func TestRunScalesToBudgetAndSplitsEvenly(t *testing.T) {
	r, err := Run(twins, nil, Options{TotalBudget: 500000, MaxIterations: 1})
	require.NoError(t, err)
	assert.InDelta(t, 250000, r.Allocations[0].Optimized, 1e-6)
	assert.InDelta(t, 250000, r.Allocations[1].Optimized, 1e-6)
	assert.True(t, r.Converged, "equal twins have equal marginals")
}

func TestRunImpressions(t *testing.T) {
	rails := []Guardrail{{CurveID: 6, Current: 100000}, {CurveID: 7, Current: 100000}}
	r, err := Run(twins, rails, Options{TotalBudget: 200000, CPM: map[int]float64{6: 12.5}})
	require.NoError(t, err)
	assert.Equal(t, 8_000_000.0, r.Allocations[0].Impressions)
	assert.Equal(t, 0.0, r.Allocations[1].Impressions)
}

func TestRunRejectsBadInput(t *testing.T) {
	_, err := Run(nil, nil, Options{TotalBudget: 1})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = Run(twins, nil, Options{})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = Run(twins, []Guardrail{{CurveID: 6, Min: 10, Max: 5}}, Options{TotalBudget: 1})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "below", Status(5, 10, 100))
	assert.Equal(t, "above", Status(120, 10, 100))
	assert.Equal(t, "caution", Status(95, 10, 100))
	assert.Equal(t, "caution", Status(10.5, 10, 100))
	assert.Equal(t, "ok", Status(50, 10, 100))
	assert.Equal(t, "ok", Status(1e9, 0, 0))
}
