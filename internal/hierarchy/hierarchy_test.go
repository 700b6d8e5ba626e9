package hierarchy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

func metric(id int, pillar, product, media string, spend float64) models.ChannelMetric {
	return models.ChannelMetric{
		CurveID: id, Name: pillar + product + media, Pillar: pillar,
		CampaignProduct: product, MediaGroup: media,
		Current: spend, Adjusted: spend,
	}
}

func sample() []models.ChannelMetric {
	return []models.ChannelMetric{
		metric(1, "seasonal", "christmas", "Television", 900),
		metric(3, "fairprices", "ccpt", "Print", 70),
		metric(4, "fairprices", "ccpt", "Digital display", 80),
		metric(6, "fairprices", "ccp", "Television", 280),
		metric(8, "seasonal", "christmas", "Print", 140),
		metric(23, "seasonal", "easter", "Television", 110),
		metric(17, "other", "other", "Paid social", 30),
	}
}

func keys(r Result) []string {
	var out []string
	for _, g := range r.Groups {
		out = append(out, g.Key)
	}
	return out
}

func TestScenarioB(t *testing.T) {
	ms := []models.ChannelMetric{
		metric(1, "seasonal", "a", "TV", 100),
		metric(2, "seasonal", "b", "TV", 200),
		metric(3, "fairprices", "c", "TV", 50),
	}
	r := GroupBy(ms, models.DimPillar)
	require.Len(t, r.Groups, 2)
	assert.Equal(t, "seasonal", r.Groups[0].Key)
	assert.Equal(t, 300.0, r.Groups[0].Totals.Spend)
	assert.Len(t, r.Groups[0].Members, 2)
	assert.Equal(t, "fairprices", r.Groups[1].Key)
	assert.Equal(t, 50.0, r.Groups[1].Totals.Spend)
	assert.Len(t, r.Groups[1].Members, 1)
	assert.Equal(t, 350.0, r.GrandTotal.Spend)
}

func TestGroupByStableOrder(t *testing.T) {
	ms := []models.ChannelMetric{
		metric(1, "b", "x", "TV", 10),
		metric(2, "a", "x", "TV", 10),
		metric(3, "b", "y", "TV", 5),
		metric(4, "a", "y", "TV", 5),
	}
	r := GroupBy(ms, models.DimPillar)
	assert.Equal(t, []string{"b", "a"}, keys(r), "equal totals keep first appearance")
	assert.Equal(t, []int{1, 3}, []int{r.Groups[0].Members[0].CurveID, r.Groups[0].Members[1].CurveID})
	assert.Equal(t, 1, ms[0].CurveID, "input untouched")
}

func TestGroupByEmpty(t *testing.T) {
	r := GroupBy(nil, models.DimPillar)
	assert.Empty(t, r.Groups)
	assert.Equal(t, Totals{}, r.GrandTotal)
}

func TestGroupTotalsAreMemberSums(t *testing.T) {
	r := GroupBy(sample(), models.DimMediaGroup)
	for _, g := range r.Groups {
		var s float64
		for _, m := range g.Members {
			s += m.Adjusted
		}
		assert.Equal(t, s, g.Totals.Spend, g.Key)
	}
}

func TestGrandTotalDrillInvariant(t *testing.T) {
	ms := sample()
	var leafSum float64
	for _, m := range ms {
		leafSum += m.Adjusted
	}

	nav := NewNavigator(nil)
	v := Apply(ms, nav)
	assert.Equal(t, leafSum, v.Top.Spend)
	assert.Equal(t, leafSum, v.GrandTotal.Spend)

	nav = nav.DrillDown("seasonal")
	nav = nav.DrillDown("christmas")
	nav = nav.DrillDown("Television")
	require.Equal(t, 3, nav.Depth())
	assert.Equal(t, models.DimCurveName, nav.GroupBy)

	v = Apply(ms, nav)
	assert.Equal(t, leafSum, v.Top.Spend)
	assert.Equal(t, []string{"seasonalchristmasTelevision"}, keys(v.Result))
	assert.Equal(t, 900.0, v.GrandTotal.Spend)

	for _, by := range []models.Dimension{models.DimPillar, models.DimMediaGroup, models.DimCampaignProduct} {
		nav2, err := NewNavigator(nil).SetGroupBy(by)
		require.NoError(t, err)
		assert.Equal(t, leafSum, Apply(ms, nav2).GrandTotal.Spend, by)
	}
}

func TestDrillDownUp(t *testing.T) {
	nav := NewNavigator(nil)
	d1 := nav.DrillDown("fairprices")
	assert.Empty(t, nav.Path, "receiver unchanged")
	assert.Equal(t, models.DimCampaignProduct, d1.GroupBy)
	f, ok := d1.Filter()
	require.True(t, ok)
	assert.Equal(t, PathEntry{models.DimPillar, "fairprices"}, f)

	v := Apply(sample(), d1)
	assert.Equal(t, []string{"ccp", "ccpt"}, keys(v.Result))

	d2 := d1.DrillDown("ccpt")
	assert.Equal(t, models.DimMediaGroup, d2.GroupBy)
	assert.Equal(t, []string{"Digital display", "Print"}, keys(Apply(sample(), d2).Result))

	up := d2.DrillUp()
	assert.Equal(t, models.DimCampaignProduct, up.GroupBy)
	f, _ = up.Filter()
	assert.Equal(t, "fairprices", f.Value)

	top := up.DrillUp()
	_, ok = top.Filter()
	assert.False(t, ok)
	assert.Equal(t, models.DimPillar, top.GroupBy)
	assert.Equal(t, 0, top.DrillUp().Depth())
}

func TestDrillDownAtLeafIsNoop(t *testing.T) {
	nav, err := NewNavigator(nil).SetGroupBy(models.DimCurveName)
	require.NoError(t, err)
	assert.False(t, nav.CanDrill())
	next := nav.DrillDown("anything")
	assert.Equal(t, 0, next.Depth())
	assert.Equal(t, models.DimCurveName, next.GroupBy)
}

func TestReorderAndDisable(t *testing.T) {
	nav := NewNavigator(nil)
	nav, err := nav.Reorder(2, 0)
	require.NoError(t, err)
	want := []models.Dimension{models.DimMediaGroup, models.DimPillar, models.DimCampaignProduct, models.DimCurveName}
	if diff := cmp.Diff(want, nav.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	nav = nav.Reset()
	assert.Equal(t, models.DimMediaGroup, nav.GroupBy)

	nav, err = nav.SetEnabled(models.DimMediaGroup, false)
	require.NoError(t, err)
	assert.Equal(t, models.DimPillar, nav.GroupBy, "falls back to next enabled")

	nav = nav.DrillDown("seasonal")
	assert.Equal(t, models.DimCampaignProduct, nav.GroupBy)

	nav, err = nav.SetEnabled(models.DimCurveName, false)
	require.NoError(t, err)
	nav, err = nav.SetEnabled(models.DimCampaignProduct, false)
	require.NoError(t, err)
	assert.Equal(t, models.DimPillar, nav.GroupBy, "wraps to first enabled")

	_, err = nav.SetEnabled(models.DimPillar, false)
	assert.ErrorIs(t, err, ErrNoEnabledDimension)

	_, err = nav.Reorder(0, 9)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = nav.SetGroupBy(models.DimMediaGroup)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestSkipsDisabledWhenDrilling(t *testing.T) {
	nav, err := NewNavigator(nil).SetEnabled(models.DimCampaignProduct, false)
	require.NoError(t, err)
	nav = nav.DrillDown("seasonal")
	assert.Equal(t, models.DimMediaGroup, nav.GroupBy)
	assert.Equal(t, []models.Dimension{models.DimPillar, models.DimMediaGroup, models.DimCurveName}, nav.EnabledOrder())
}

func TestBuildLaydown(t *testing.T) {
	curves := []models.Curve{
		{ID: 1, Name: "seasonalchristmasTelevision", Pillar: "seasonal", CampaignProduct: "christmas", MediaGroup: "Television"},
		{ID: 3, Name: "fairpricesccptPrint", Pillar: "fairprices", CampaignProduct: "ccpt", MediaGroup: "Print"},
		{ID: 6, Name: "fairpricesccpTelevision", Pillar: "fairprices", CampaignProduct: "ccp", MediaGroup: "Television"},
	}
	records := []models.SpendRecord{
		{CurveID: 1, Weeks: map[string]float64{"2024_wk1": 100, "2024_wk2": 200, "2024_wk3": 50}},
		{CurveID: 3, Weeks: map[string]float64{"2024_wk1": 40, "2024_wk2": 40, "2024_wk3": 40}},
		{CurveID: 6, Weeks: map[string]float64{"2024_wk1": 10, "2024_wk2": 0, "2024_wk3": 0}},
		{CurveID: 99, Weeks: map[string]float64{"2024_wk1": 1e9}},
	}
	l, err := BuildLaydown(curves, records, LaydownQuery{
		Nav:   NewNavigator(nil),
		Range: WeekRange{Year: 2024, From: 1, To: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024_wk1", "2024_wk2"}, l.Weeks)
	require.Len(t, l.Groups, 2)
	assert.Equal(t, "seasonal", l.Groups[0].Key)
	assert.Equal(t, 300.0, l.Groups[0].Totals.Spend)
	assert.Equal(t, 100.0, l.Groups[0].Weekly[1].ChangePct.Float64)
	assert.False(t, l.Groups[0].Weekly[0].ChangePct.Valid)
	assert.Equal(t, 90.0, l.Groups[1].Totals.Spend)
	assert.Equal(t, 390.0, l.GrandTotal.Spend)
	assert.True(t, l.CanDrill)

	l, err = BuildLaydown(curves, records, LaydownQuery{
		Nav:    NewNavigator(nil),
		Range:  WeekRange{Year: 2024, From: 1, To: 3},
		Search: "TELEVISION",
	})
	require.NoError(t, err)
	assert.Equal(t, 360.0, l.Top.Spend)

	_, err = BuildLaydown(curves, records, LaydownQuery{Nav: NewNavigator(nil), Range: WeekRange{Year: 2024, From: 5, To: 2}})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}
