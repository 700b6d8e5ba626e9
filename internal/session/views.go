package session

import (
	"context"
	"fmt"

	"github.com/AngelCh415/mmm-planner/internal/compare"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
	"github.com/AngelCh415/mmm-planner/internal/store"
)

// LaydownView is the weekly laydown table position.
type LaydownView struct {
	Nav    hierarchy.Navigator `json:"nav"`
	Range  hierarchy.WeekRange `json:"range"`
	Search string              `json:"search"`
}

func NewLaydownView() LaydownView {
	return LaydownView{Nav: hierarchy.NewNavigator(models.DefaultHierarchy), Range: DefaultRange}
}

func (v LaydownView) DrillDown(value string) LaydownView { v.Nav = v.Nav.DrillDown(value); return v }
func (v LaydownView) DrillUp() LaydownView               { v.Nav = v.Nav.DrillUp(); return v }
func (v LaydownView) Reset() LaydownView                 { v.Nav = v.Nav.Reset(); return v }
func (v LaydownView) WithSearch(q string) LaydownView    { v.Search = q; return v }

func (v LaydownView) WithRange(r hierarchy.WeekRange) (LaydownView, error) {
	if err := r.Validate(); err != nil {
		return v, err
	}
	v.Range = r
	return v, nil
}

func (v LaydownView) Reorder(from, to int) (LaydownView, error) {
	nav, err := v.Nav.Reorder(from, to)
	if err != nil {
		return v, err
	}
	v.Nav = nav
	return v, nil
}

func (v LaydownView) SetEnabled(d models.Dimension, on bool) (LaydownView, error) {
	nav, err := v.Nav.SetEnabled(d, on)
	if err != nil {
		return v, err
	}
	v.Nav = nav
	return v, nil
}

func (v LaydownView) Query() hierarchy.LaydownQuery {
	return hierarchy.LaydownQuery{Nav: v.Nav, Range: v.Range, Search: v.Search}
}

// Build renders the view against a catalog.
func (v LaydownView) Build(cat *models.Catalog) (hierarchy.Laydown, error) {
	return hierarchy.BuildLaydown(cat.Curves, cat.Spend, v.Query())
}

// CompareView is the side-by-side comparison of two saved results.
type CompareView struct {
	LeftID  string              `json:"left_id"`
	RightID string              `json:"right_id"`
	GroupBy models.Dimension    `json:"group_by"`
	KPI     models.KPI          `json:"kpi"`
	Expand  compare.ExpandState `json:"-"`
}

func NewCompareView() CompareView {
	return CompareView{GroupBy: models.DimPillar, KPI: models.KPISpend}
}

// Select picks the two results. Expansion resets to all expanded.
func (v CompareView) Select(left, right string) CompareView {
	v.LeftID, v.RightID = left, right
	v.Expand = compare.ExpandState{}
	return v
}

func (v CompareView) WithGroupBy(d models.Dimension) CompareView {
	v.GroupBy = d
	v.Expand = compare.ExpandState{}
	return v
}

func (v CompareView) WithKPI(k models.KPI) CompareView { v.KPI = k; return v }

func (v CompareView) Toggle(id string) CompareView { v.Expand = v.Expand.Toggle(id); return v }

func (v CompareView) ToggleAll(ids []string) CompareView {
	v.Expand = v.Expand.ToggleAll(ids)
	return v
}

// Compare loads both results and diffs them.
func (v CompareView) Compare(ctx context.Context, rs store.ResultStore) (compare.Comparison, error) {
	if v.LeftID == "" || v.RightID == "" {
		return compare.Comparison{}, &models.ParamError{Param: "results", Value: [2]string{v.LeftID, v.RightID}}
	}
	left, err := rs.Get(ctx, v.LeftID)
	if err != nil {
		return compare.Comparison{}, fmt.Errorf("left: %w", err)
	}
	right, err := rs.Get(ctx, v.RightID)
	if err != nil {
		return compare.Comparison{}, fmt.Errorf("right: %w", err)
	}
	return compare.Diff(left, right, v.GroupBy, v.KPI)
}
