// Package metrics answers read queries over the catalog and saved results,
// turning query parameters into calls on the core packages.
package metrics

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/AngelCh415/mmm-planner/internal/compare"
	"github.com/AngelCh415/mmm-planner/internal/curve"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
	"github.com/AngelCh415/mmm-planner/internal/session"
	"github.com/AngelCh415/mmm-planner/internal/store"
)

type Service struct {
	st       *store.MemoryStore
	results  store.ResultStore
	maxSpend float64
	steps    int
}

func NewService(st *store.MemoryStore, results store.ResultStore, maxSpend float64, steps int) *Service {
	if results == nil {
		results = st
	}
	return &Service{st: st, results: results, maxSpend: maxSpend, steps: steps}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func pageOf[T any](rows []T, v url.Values) Page[T] {
	limit, offset := clampLimitOffset(atoiDef(v.Get("limit"), 100), atoiDef(v.Get("offset"), 0), len(rows))
	return Page[T]{Items: paginate(rows, limit, offset), Total: len(rows), Limit: limit, Offset: offset}
}

// modelIDs parses model=1,2,3.
func modelIDs(v url.Values) ([]int, error) {
	var out []int
	for p := range csvSet(v.Get("model")) {
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, &models.ParamError{Param: "model", Value: p}
		}
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

func (s *Service) Models() []models.Model { return s.st.Catalog().Models }

func (s *Service) Hierarchy() models.Hierarchy { return s.st.Catalog().Hierarchy }

// QueryCurves lists curves filtered by model and media group.
func (s *Service) QueryCurves(v url.Values) (Page[models.Curve], error) {
	ids, err := modelIDs(v)
	if err != nil {
		return Page[models.Curve]{}, err
	}
	media := csvSet(v.Get("media"))
	curves := s.st.Curves(ids...)
	if len(media) > 0 {
		kept := curves[:0]
		for _, c := range curves {
			if _, ok := media[norm(c.MediaGroup)]; ok {
				kept = append(kept, c)
			}
		}
		curves = kept
	}
	sort.SliceStable(curves, func(i, j int) bool {
		if curves[i].ModelID != curves[j].ModelID {
			return curves[i].ModelID < curves[j].ModelID
		}
		return curves[i].ID < curves[j].ID
	})
	return pageOf(curves, v), nil
}

// QuerySeries samples the response curves of the selected models.
func (s *Service) QuerySeries(ctx context.Context, v url.Values) ([]models.ChartSeries, error) {
	ids, err := modelIDs(v)
	if err != nil {
		return nil, err
	}
	maxSpend := s.maxSpend
	if raw := v.Get("max_spend"); raw != "" {
		if maxSpend, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, &models.ParamError{Param: "max_spend", Value: raw}
		}
	}
	steps := atoiDef(v.Get("steps"), s.steps)
	if steps <= 0 || steps > 1000 {
		return nil, &models.ParamError{Param: "steps", Value: steps}
	}
	return curve.SeriesSet(ctx, s.st.Curves(ids...), maxSpend, steps)
}

// LaydownView reads a laydown position from query parameters:
// view_by, path=dim:value,..., order, disabled, year, from, to, q.
func LaydownView(v url.Values) (session.LaydownView, error) {
	lv := session.NewLaydownView()
	if raw := v.Get("order"); raw != "" {
		var order []models.Dimension
		for _, p := range strings.Split(raw, ",") {
			d, err := models.ParseDimension(p)
			if err != nil {
				return lv, err
			}
			order = append(order, d)
		}
		lv.Nav = hierarchy.NewNavigator(order)
	}
	for p := range csvSet(v.Get("disabled")) {
		d, err := models.ParseDimension(p)
		if err != nil {
			return lv, err
		}
		if lv, err = lv.SetEnabled(d, false); err != nil {
			return lv, err
		}
	}
	if raw := v.Get("path"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			dim, val, ok := strings.Cut(p, ":")
			if !ok {
				return lv, &models.ParamError{Param: "path", Value: p}
			}
			d, err := models.ParseDimension(dim)
			if err != nil {
				return lv, err
			}
			if lv.Nav, err = lv.Nav.SetGroupBy(d); err != nil {
				return lv, err
			}
			if !lv.Nav.CanDrill() {
				return lv, &models.ParamError{Param: "path", Value: p}
			}
			lv = lv.DrillDown(val)
		}
	}
	if raw := v.Get("view_by"); raw != "" {
		d, err := models.ParseDimension(raw)
		if err != nil {
			return lv, err
		}
		if lv.Nav, err = lv.Nav.SetGroupBy(d); err != nil {
			return lv, err
		}
	}
	rng := session.DefaultRange
	rng.Year = atoiDef(v.Get("year"), rng.Year)
	rng.From = atoiDef(v.Get("from"), rng.From)
	rng.To = atoiDef(v.Get("to"), rng.To)
	lv, err := lv.WithRange(rng)
	if err != nil {
		return lv, err
	}
	return lv.WithSearch(v.Get("q")), nil
}

func (s *Service) QueryLaydown(v url.Values) (hierarchy.Laydown, error) {
	lv, err := LaydownView(v)
	if err != nil {
		return hierarchy.Laydown{}, err
	}
	return lv.Build(s.st.Catalog())
}

// ResultSummary is a saved scenario without its channel rows.
type ResultSummary struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Type       models.ScenarioType `json:"type"`
	ModelID    int                 `json:"model_id"`
	TimePeriod string              `json:"time_period"`
	Tags       []string            `json:"tags"`
	CreatedAt  string              `json:"created_at"`
	Totals     models.Totals       `json:"totals"`
	Channels   int                 `json:"channels"`
}

// QueryResults lists saved scenarios filtered by type, tag and name search.
func (s *Service) QueryResults(ctx context.Context, v url.Values) (Page[ResultSummary], error) {
	all, err := s.results.List(ctx)
	if err != nil {
		return Page[ResultSummary]{}, err
	}
	types := csvSet(v.Get("type"))
	tags := csvSet(v.Get("tag"))
	q := norm(v.Get("q"))
	rows := make([]ResultSummary, 0, len(all))
	for _, sc := range all {
		if len(types) > 0 {
			if _, ok := types[norm(string(sc.Type))]; !ok {
				continue
			}
		}
		if len(tags) > 0 && !hasAnyTag(sc.Tags, tags) {
			continue
		}
		if q != "" && !strings.Contains(norm(sc.Name), q) {
			continue
		}
		rows = append(rows, ResultSummary{
			ID:         sc.ID,
			Name:       sc.Name,
			Type:       sc.Type,
			ModelID:    sc.ModelID,
			TimePeriod: sc.TimePeriod,
			Tags:       sc.Tags,
			CreatedAt:  sc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Totals:     sc.Totals,
			Channels:   len(sc.Channels),
		})
	}
	return pageOf(rows, v), nil
}

func hasAnyTag(tags []string, want map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := want[norm(t)]; ok {
			return true
		}
	}
	return false
}

// CompareView reads left, right, group_by and kpi.
func CompareView(v url.Values) (session.CompareView, error) {
	cv := session.NewCompareView().Select(v.Get("left"), v.Get("right"))
	if raw := v.Get("group_by"); raw != "" {
		d, err := models.ParseDimension(raw)
		if err != nil {
			return cv, err
		}
		cv = cv.WithGroupBy(d)
	}
	k, err := models.ParseKPI(v.Get("kpi"))
	if err != nil {
		return cv, err
	}
	return cv.WithKPI(k), nil
}

func (s *Service) QueryCompare(ctx context.Context, v url.Values) (compare.Comparison, error) {
	cv, err := CompareView(v)
	if err != nil {
		return compare.Comparison{}, err
	}
	return cv.Compare(ctx, s.results)
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}
