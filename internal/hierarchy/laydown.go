package hierarchy

import (
	"strings"

	"github.com/guregu/null/v6"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

// WeekRange selects weeks From..To (1-52) of Year.
type WeekRange struct {
	Year int `json:"year"`
	From int `json:"from"`
	To   int `json:"to"`
}

func (r WeekRange) Validate() error {
	if r.From < 1 || r.From > 52 {
		return &models.ParamError{Param: "from", Value: r.From}
	}
	if r.To < r.From || r.To > 52 {
		return &models.ParamError{Param: "to", Value: r.To}
	}
	return nil
}

// Weeks lists the week labels of the range in order.
func (r WeekRange) Weeks() []string {
	out := make([]string, 0, r.To-r.From+1)
	for i := r.From; i <= r.To; i++ {
		out = append(out, models.WeekLabel(r.Year, i))
	}
	return out
}

type LaydownQuery struct {
	Nav    Navigator
	Range  WeekRange
	Search string
}

type WeekCell struct {
	Week      string     `json:"week"`
	Spend     float64    `json:"spend"`
	ChangePct null.Float `json:"change_pct"`
}

type LaydownGroup struct {
	Group
	Weekly []WeekCell `json:"weekly"`
}

type Laydown struct {
	GroupBy    models.Dimension `json:"group_by"`
	Path       []PathEntry      `json:"path"`
	CanDrill   bool             `json:"can_drill"`
	Weeks      []string         `json:"weeks"`
	Groups     []LaydownGroup   `json:"groups"`
	GrandTotal Totals           `json:"grand_total"`
	Top        Totals           `json:"top"`
}

// BuildLaydown groups weekly spend over the selected weeks at the navigator's
// drill position. Records without a matching curve are skipped.
func BuildLaydown(curves []models.Curve, records []models.SpendRecord, q LaydownQuery) (Laydown, error) {
	if err := q.Range.Validate(); err != nil {
		return Laydown{}, err
	}
	byID := make(map[int]models.Curve, len(curves))
	for _, c := range curves {
		byID[c.ID] = c
	}
	weeks := q.Range.Weeks()
	weekly := map[int]map[string]float64{}
	var members []models.ChannelMetric
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, r := range records {
		c, ok := byID[r.CurveID]
		if !ok {
			continue
		}
		if search != "" && !matchesSearch(c, search) {
			continue
		}
		var total float64
		for _, w := range weeks {
			total += r.Weeks[w]
		}
		weekly[c.ID] = r.Weeks
		members = append(members, models.ChannelMetric{
			CurveID:         c.ID,
			Name:            c.Name,
			ModelID:         c.ModelID,
			Pillar:          c.Pillar,
			CampaignProduct: c.CampaignProduct,
			MediaGroup:      c.MediaGroup,
			Color:           c.Color,
			Current:         total,
			Adjusted:        total,
		})
	}

	v := Apply(members, q.Nav)
	out := Laydown{
		GroupBy:    v.GroupBy,
		Path:       v.Path,
		CanDrill:   q.Nav.CanDrill(),
		Weeks:      weeks,
		Groups:     make([]LaydownGroup, 0, len(v.Groups)),
		GrandTotal: v.GrandTotal,
		Top:        v.Top,
	}
	for _, g := range v.Groups {
		lg := LaydownGroup{Group: g, Weekly: make([]WeekCell, len(weeks))}
		for i, w := range weeks {
			var s float64
			for _, m := range g.Members {
				s += weekly[m.CurveID][w]
			}
			lg.Weekly[i] = WeekCell{Week: w, Spend: s}
			if i > 0 && lg.Weekly[i-1].Spend != 0 {
				prev := lg.Weekly[i-1].Spend
				lg.Weekly[i].ChangePct = null.FloatFrom((s - prev) / prev * 100)
			}
		}
		out.Groups = append(out.Groups, lg)
	}
	return out, nil
}

func matchesSearch(c models.Curve, q string) bool {
	for _, s := range []string{c.Name, c.Pillar, c.CampaignProduct, c.MediaGroup} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}
