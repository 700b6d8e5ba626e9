// Package export writes planner tables as CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/AngelCh415/mmm-planner/internal/compare"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
)

func money(f float64) string { return decimal.NewFromFloat(f).StringFixed(2) }

func pct(f null.Float) string {
	if !f.Valid {
		return "-"
	}
	return decimal.NewFromFloat(f.Float64).StringFixed(1)
}

// Comparison writes one row per group followed by its channel rows.
func Comparison(w io.Writer, c compare.Comparison) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"level", "group", "key", "name", "kpi", "left", "right", "delta", "delta_percent", "favorable"})
	row := func(level, group string, d compare.Delta) {
		_ = cw.Write([]string{
			level, group, d.Key, d.Name, string(c.KPI),
			money(d.Left), money(d.Right), money(d.Delta), pct(d.DeltaPercent),
			strconv.FormatBool(d.Favorable),
		})
	}
	for _, g := range c.Groups {
		row("group", g.Key, g.Delta)
		for _, r := range g.Rows {
			row("channel", g.Key, r)
		}
	}
	row("total", "", c.Total)
	cw.Flush()
	return cw.Error()
}

// Laydown writes one row per group with its weekly spend and range total.
func Laydown(w io.Writer, ld hierarchy.Laydown) error {
	cw := csv.NewWriter(w)
	header := append([]string{string(ld.GroupBy)}, ld.Weeks...)
	_ = cw.Write(append(header, "total"))
	for _, g := range ld.Groups {
		rec := make([]string, 0, len(ld.Weeks)+2)
		rec = append(rec, g.Key)
		for _, c := range g.Weekly {
			rec = append(rec, money(c.Spend))
		}
		_ = cw.Write(append(rec, money(g.Totals.Spend)))
	}
	cw.Flush()
	return cw.Error()
}

// Scenario writes the channel rows of a scenario and a totals row.
func Scenario(w io.Writer, sc models.Scenario) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"curve_id", "name", "pillar", "campaign_product", "media_group", "current", "adjusted", "change_percent", "volume", "value", "profit", "cpa", "roi", "guardrail"})
	for _, m := range sc.Channels {
		_ = cw.Write([]string{
			strconv.Itoa(m.CurveID), m.Name, m.Pillar, m.CampaignProduct, m.MediaGroup,
			money(m.Current), money(m.Adjusted), pct(null.FloatFrom(m.ChangePercent)),
			money(m.Volume), money(m.Value), money(m.Profit), nullMoney(m.CPA), pct(m.ROI),
			strconv.FormatBool(m.Guardrail),
		})
	}
	t := sc.Totals
	_ = cw.Write([]string{
		"", "total", "", "", "",
		money(t.BaseSpend), money(t.Spend), pct(null.FloatFrom(t.ChangePercent)),
		money(t.Volume), money(t.Value), money(t.Profit), nullMoney(t.CPA), pct(t.ROI), "",
	})
	cw.Flush()
	return cw.Error()
}

func nullMoney(f null.Float) string {
	if !f.Valid {
		return "-"
	}
	return money(f.Float64)
}
