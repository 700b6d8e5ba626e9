package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/mmm-planner/internal/compare"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
)

func readAll(t *testing.T, s string) [][]string {
	t.Helper()
	recs, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestComparisonCSV(t *testing.T) {
	c := compare.Comparison{
		KPI: models.KPICPA,
		Groups: []compare.GroupDelta{{
			Delta: compare.NewDelta(models.KPICPA, "seasonal", 10, 8),
			Rows:  []compare.Delta{compare.NewDelta(models.KPICPA, "curve-1", 0, 8)},
		}},
		Total: compare.NewDelta(models.KPICPA, "total", 10, 8),
	}
	var b strings.Builder
	require.NoError(t, Comparison(&b, c))
	recs := readAll(t, b.String())
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"group", "seasonal", "seasonal", "seasonal", "cpa", "10.00", "8.00", "-2.00", "-20.0", "true"}, recs[1])
	assert.Equal(t, "-", recs[2][8], "undefined percent")
	assert.Equal(t, "total", recs[3][0])
}

func TestLaydownCSV(t *testing.T) {
	ld := hierarchy.Laydown{
		GroupBy: models.DimPillar,
		Weeks:   []string{"2024_wk1", "2024_wk2"},
		Groups: []hierarchy.LaydownGroup{{
			Group:  hierarchy.Group{Key: "seasonal", Totals: hierarchy.Totals{Spend: 300.5}},
			Weekly: []hierarchy.WeekCell{{Week: "2024_wk1", Spend: 100}, {Week: "2024_wk2", Spend: 200.5}},
		}},
	}
	var b strings.Builder
	require.NoError(t, Laydown(&b, ld))
	recs := readAll(t, b.String())
	assert.Equal(t, []string{"pillar", "2024_wk1", "2024_wk2", "total"}, recs[0])
	assert.Equal(t, []string{"seasonal", "100.00", "200.50", "300.50"}, recs[1])
}

func TestScenarioCSV(t *testing.T) {
	sc := models.Scenario{
		Channels: []models.ChannelMetric{
			{CurveID: 17, Name: "otherotherPaid social", Current: 0, Adjusted: 0},
			{CurveID: 1, Name: "seasonalchristmasTelevision", Current: 500000, Adjusted: 550000, ChangePercent: 10, CPA: null.FloatFrom(13), ROI: null.FloatFrom(140)},
		},
		Totals: models.Totals{BaseSpend: 500000, Spend: 550000},
	}
	var b strings.Builder
	require.NoError(t, Scenario(&b, sc))
	recs := readAll(t, b.String())
	require.Len(t, recs, 4)
	assert.Equal(t, "-", recs[1][11], "no CPA without volume")
	assert.Equal(t, "13.00", recs[2][11])
	assert.Equal(t, "140.0", recs[2][12])
	assert.Equal(t, "total", recs[3][1])
}
