// Package ingest refreshes the planner catalog from the upstream MMM API,
// falling back to the reference dataset for anything the API cannot serve.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/mmm-planner/internal/config"
	"github.com/AngelCh415/mmm-planner/internal/models"
	"github.com/AngelCh415/mmm-planner/internal/refdata"
	"github.com/AngelCh415/mmm-planner/internal/store"
	"github.com/AngelCh415/mmm-planner/internal/utils"
)

var upstreamFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "planner_upstream_fallbacks_total",
	Help: "Upstream fetches that fell back to reference data.",
}, []string{"endpoint"})

const (
	SourceUpstream  = "upstream"
	SourceReference = "reference"
)

type Loader struct {
	c     HTTPClient
	st    *store.MemoryStore
	log   *slog.Logger
	cfg   config.Config
	retry utils.Backoff
}

func NewLoader(c HTTPClient, st *store.MemoryStore, log *slog.Logger, cfg config.Config) *Loader {
	return &Loader{c: c, st: st, log: log, cfg: cfg, retry: defaultRetry}
}

// WithRetry replaces the backoff policy used for upstream calls.
func (l *Loader) WithRetry(b utils.Backoff) *Loader {
	l.retry = b
	return l
}

// Report says where each part of the catalog came from.
type Report struct {
	Sources map[string]string `json:"sources"`
	Curves  int               `json:"curves"`
	Skipped int               `json:"skipped"`
}

type curveResp []struct {
	CurveID         int     `json:"curveID"`
	CurveName       string  `json:"curveName"`
	ModelID         int     `json:"ModelID"`
	Pillar          string  `json:"pillar"`
	CampaignProduct string  `json:"campaignproduct"`
	MediaGroup      string  `json:"mediagroup"`
	Type            string  `json:"type"`
	Alpha           float64 `json:"alpha"`
	Beta            float64 `json:"beta"`
	Color           string  `json:"color"`
}

type hierarchyResp struct {
	Hierarchy models.Hierarchy `json:"hierarchy"`
	Weeks     []string         `json:"weeks"`
}

type cpmResp []struct {
	CurveRef int     `json:"curve_ref"`
	Week     string  `json:"week"`
	CPM      float64 `json:"cpm"`
}

// Run loads the reference dataset, overlays whatever the upstream API
// returns and installs the result in the store.
func (l *Loader) Run(ctx context.Context) (Report, error) {
	ref, err := refdata.Load(l.cfg.ReferenceData)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Sources: map[string]string{
		"curves":    SourceReference,
		"hierarchy": SourceReference,
		"cpms":      SourceReference,
	}}
	cat := *ref

	if base := strings.TrimRight(l.cfg.MMMAPIURL, "/"); base != "" {
		var (
			curves curveResp
			hier   hierarchyResp
			cpms   cpmResp
		)
		fetched := map[string]bool{}
		results := make(chan string, 3)
		g, gctx := errgroup.WithContext(ctx)
		for endpoint, dst := range map[string]any{
			"response-curves": &curves,
			"hierarchy":       &hier,
			"cpms":            &cpms,
		} {
			g.Go(func() error {
				if err := GetJSONWithRetry(gctx, l.c, l.retry, base+"/"+endpoint, dst); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					upstreamFallbacks.WithLabelValues(endpoint).Inc()
					l.log.Warn("upstream fetch failed, using reference data",
						slog.String("endpoint", endpoint), slog.String("err", err.Error()))
					return nil
				}
				results <- endpoint
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Report{}, err
		}
		close(results)
		for e := range results {
			fetched[e] = true
		}

		if fetched["response-curves"] {
			cat.Curves, rep.Skipped = l.normalizeCurves(curves)
			cat.Models = mergeModels(ref.Models, cat.Curves)
			cat.Spend = keepSpend(ref.Spend, cat.Curves)
			rep.Sources["curves"] = SourceUpstream
		}
		if fetched["hierarchy"] && len(hier.Hierarchy) > 0 {
			cat.Hierarchy = hier.Hierarchy
			rep.Sources["hierarchy"] = SourceUpstream
		}
		if fetched["cpms"] {
			cat.CPMs = cat.CPMs[:0:0]
			for _, p := range cpms {
				if _, _, err := models.ParseWeek(p.Week); err != nil || p.CPM <= 0 {
					continue
				}
				cat.CPMs = append(cat.CPMs, models.CPM{CurveID: p.CurveRef, Week: p.Week, CPM: p.CPM})
			}
			rep.Sources["cpms"] = SourceUpstream
		}
	}

	if err := refdata.Validate(&cat); err != nil {
		return Report{}, fmt.Errorf("validating catalog: %w", err)
	}
	l.st.SetCatalog(&cat)
	rep.Curves = len(cat.Curves)
	l.log.Info("catalog loaded",
		slog.Int("curves", rep.Curves),
		slog.Int("skipped", rep.Skipped),
		slog.String("curves_source", rep.Sources["curves"]))
	return rep, nil
}

// normalizeCurves trims labels, defaults the family to tanh and drops rows
// with unusable parameters or repeated ids.
func (l *Loader) normalizeCurves(in curveResp) ([]models.Curve, int) {
	seen := map[int]bool{}
	out := make([]models.Curve, 0, len(in))
	skipped := 0
	for _, r := range in {
		fam := coalesce(strings.ToLower(r.Type), models.FamilyTanh)
		if seen[r.CurveID] || r.Alpha <= 0 || r.Beta <= 0 || fam != models.FamilyTanh {
			skipped++
			l.log.Debug("skipping curve", slog.Int("curve_id", r.CurveID))
			continue
		}
		seen[r.CurveID] = true
		out = append(out, models.Curve{
			ID:              r.CurveID,
			Name:            strings.TrimSpace(r.CurveName),
			ModelID:         r.ModelID,
			Pillar:          coalesce(r.Pillar, "unknown"),
			CampaignProduct: coalesce(r.CampaignProduct, "unknown"),
			MediaGroup:      coalesce(r.MediaGroup, "unknown"),
			Family:          fam,
			Alpha:           r.Alpha,
			Beta:            r.Beta,
			Color:           strings.TrimSpace(r.Color),
		})
	}
	return out, skipped
}

func mergeModels(known []models.Model, curves []models.Curve) []models.Model {
	out := append([]models.Model(nil), known...)
	have := map[int]bool{}
	for _, m := range known {
		have[m.ID] = true
	}
	for _, c := range curves {
		if !have[c.ModelID] {
			have[c.ModelID] = true
			out = append(out, models.Model{ID: c.ModelID, Name: fmt.Sprintf("Model %d", c.ModelID)})
		}
	}
	return out
}

func keepSpend(recs []models.SpendRecord, curves []models.Curve) []models.SpendRecord {
	ids := map[int]bool{}
	for _, c := range curves {
		ids[c.ID] = true
	}
	var out []models.SpendRecord
	for _, r := range recs {
		if ids[r.CurveID] {
			out = append(out, r)
		}
	}
	return out
}

func coalesce(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
