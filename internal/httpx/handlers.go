package httpx

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/mmm-planner/internal/budget"
	"github.com/AngelCh415/mmm-planner/internal/export"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
	"github.com/AngelCh415/mmm-planner/internal/optimize"
	"github.com/AngelCh415/mmm-planner/internal/session"
)

type adjustment struct {
	CurveID       int      `json:"curve_id"`
	Adjusted      *float64 `json:"adjusted,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
}

type simulateReq struct {
	ModelIDs    []int                `json:"model_ids"`
	CurveIDs    []int                `json:"curve_ids"`
	Range       *hierarchy.WeekRange `json:"range"`
	BulkPct     *float64             `json:"bulk_pct"`
	Adjustments []adjustment         `json:"adjustments"`
	Name        string               `json:"name"`
	Tags        []string             `json:"tags"`
	Save        bool                 `json:"save"`
}

type simulateResp struct {
	Snapshot budget.Snapshot `json:"snapshot"`
	Warning  bool            `json:"guardrail_warning"`
	Scenario models.Scenario `json:"scenario"`
	Saved    bool            `json:"saved"`
}

// simulate runs the whole simulation wizard in one call: select, period,
// bulk change, per-channel edits, run.
func (a *api) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	cat := a.Catalog.Catalog()
	p := a.Planner
	sim := p.SelectModels(session.NewState().Sim, cat, req.ModelIDs)
	if len(req.CurveIDs) > 0 {
		sim.CurveIDs = req.CurveIDs
	}
	rng := session.DefaultRange
	if req.Range != nil {
		rng = *req.Range
	}
	sim, err := p.SetPeriod(sim, rng)
	if err == nil {
		sim, err = p.Prepare(sim, cat)
	}
	if err == nil && req.BulkPct != nil {
		sim, err = p.Bulk(sim, *req.BulkPct)
	}
	for _, adj := range req.Adjustments {
		if err != nil {
			break
		}
		switch {
		case adj.Adjusted != nil:
			sim, err = p.Adjust(sim, adj.CurveID, *adj.Adjusted)
		case adj.ChangePercent != nil:
			sim, err = p.AdjustPercent(sim, adj.CurveID, *adj.ChangePercent)
		}
	}
	if err == nil {
		sim, err = p.Run(sim, cat, session.RunMeta{Name: req.Name, Tags: req.Tags})
	}
	if err != nil {
		a.fail(w, r, statusFor(err), err)
		return
	}
	resp := simulateResp{Snapshot: sim.Snapshot, Warning: sim.Snapshot.Warn(), Scenario: *sim.Result}
	if req.Save {
		if err := a.Results.Save(r.Context(), resp.Scenario); err != nil {
			a.fail(w, r, statusFor(err), err)
			return
		}
		resp.Saved = true
	}
	writeJSON(w, http.StatusOK, resp)
}

type railReq struct {
	CurveID int     `json:"curve_id"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

type optimizeReq struct {
	ModelIDs    []int                `json:"model_ids"`
	Range       *hierarchy.WeekRange `json:"range"`
	TotalBudget float64              `json:"total_budget"`
	Guardrails  []railReq            `json:"guardrails"`
	MaxSpend    float64              `json:"max_spend"`
	Name        string               `json:"name"`
	Tags        []string             `json:"tags"`
	Save        bool                 `json:"save"`
}

type optimizeResp struct {
	Outcome  optimize.Result `json:"outcome"`
	Snapshot budget.Snapshot `json:"snapshot"`
	Scenario models.Scenario `json:"scenario"`
	Saved    bool            `json:"saved"`
}

func (a *api) optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	cat := a.Catalog.Catalog()
	p := a.Planner
	rng := session.DefaultRange
	if req.Range != nil {
		rng = *req.Range
	}
	o, err := p.StartOptimization(cat, req.ModelIDs, rng)
	if err == nil && req.TotalBudget != 0 {
		o, err = p.SetTotalBudget(o, req.TotalBudget)
	}
	for _, g := range req.Guardrails {
		if err != nil {
			break
		}
		o, err = p.SetGuardrail(o, g.CurveID, g.Min, g.Max)
	}
	if err == nil {
		o, err = p.RunOptimization(o, cat, optimize.Options{MaxSpend: req.MaxSpend}, session.RunMeta{Name: req.Name, Tags: req.Tags})
	}
	if err != nil {
		a.fail(w, r, statusFor(err), err)
		return
	}
	resp := optimizeResp{Outcome: *o.Outcome, Snapshot: o.Snapshot, Scenario: *o.Result}
	if req.Save {
		if err := a.Results.Save(r.Context(), resp.Scenario); err != nil {
			a.fail(w, r, statusFor(err), err)
			return
		}
		resp.Saved = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// saveResult stores a scenario computed elsewhere. Id and timestamp are
// assigned here.
func (a *api) saveResult(w http.ResponseWriter, r *http.Request) {
	var sc models.Scenario
	if err := decode(r, &sc); err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if sc.Type != models.Simulation && sc.Type != models.Optimization {
		a.fail(w, r, http.StatusBadRequest, &models.ParamError{Param: "type", Value: sc.Type})
		return
	}
	ids := make([]int, len(sc.Channels))
	for i, m := range sc.Channels {
		ids[i] = m.CurveID
	}
	if id, dup := models.DuplicateID(ids); dup {
		a.fail(w, r, http.StatusBadRequest, &models.ParamError{Param: "curve_id", Value: id})
		return
	}
	sc.ID = a.Planner.NewID()
	sc.CreatedAt = a.Planner.Now().UTC()
	if sc.Name == "" {
		sc.Name = string(sc.Type) + " - " + sc.CreatedAt.Format("2006-01-02")
	}
	sc.Totals = budget.Totals(sc.Channels)
	if err := a.Results.Save(r.Context(), sc); err != nil {
		a.fail(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

type patchReq struct {
	Name *string   `json:"name"`
	Tags *[]string `json:"tags"`
}

func (a *api) patchResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req patchReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	sc, err := a.Results.Get(r.Context(), id)
	if err == nil && req.Name != nil {
		sc, err = a.Results.Rename(r.Context(), id, *req.Name)
	}
	if err == nil && req.Tags != nil {
		sc, err = a.Results.Tag(r.Context(), id, *req.Tags)
	}
	a.respond(w, r, sc, err)
}

func (a *api) exportCompare(w http.ResponseWriter, r *http.Request) {
	c, err := a.Metrics.QueryCompare(r.Context(), r.URL.Query())
	if err != nil {
		a.fail(w, r, statusFor(err), err)
		return
	}
	var buf bytes.Buffer
	if err := export.Comparison(&buf, c); err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeCSV(w, "comparison.csv", buf.Bytes())
}

func (a *api) exportLaydown(w http.ResponseWriter, r *http.Request) {
	ld, err := a.Metrics.QueryLaydown(r.URL.Query())
	if err != nil {
		a.fail(w, r, statusFor(err), err)
		return
	}
	var buf bytes.Buffer
	if err := export.Laydown(&buf, ld); err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeCSV(w, "laydown.csv", buf.Bytes())
}

func (a *api) exportResult(w http.ResponseWriter, r *http.Request) {
	sc, err := a.Results.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, statusFor(err), err)
		return
	}
	var buf bytes.Buffer
	if err := export.Scenario(&buf, sc); err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeCSV(w, "result-"+sc.ID+".csv", buf.Bytes())
}

func writeCSV(w http.ResponseWriter, name string, b []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

