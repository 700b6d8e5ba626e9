package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/ingest"
	"github.com/AngelCh415/mmm-planner/internal/metrics"
	"github.com/AngelCh415/mmm-planner/internal/models"
	"github.com/AngelCh415/mmm-planner/internal/session"
	"github.com/AngelCh415/mmm-planner/internal/store"
	"github.com/AngelCh415/mmm-planner/internal/utils"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Log     *slog.Logger
	Loader  *ingest.Loader
	Catalog *store.MemoryStore
	Results store.ResultStore
	Metrics *metrics.Service
	Planner session.Planner
}

type pinger interface {
	Ping(ctx context.Context) error
}

type api struct{ Deps }

func NewRouter(d Deps) http.Handler {
	a := &api{d}
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log))
	mux.Use(utils.Metrics)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", a.ready)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/ingest/run", func(w http.ResponseWriter, r *http.Request) {
		rep, err := d.Loader.Run(r.Context())
		if err != nil {
			a.fail(w, r, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusAccepted, rep)
	})

	mux.Route("/api", func(r chi.Router) {
		r.Get("/hierarchy", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, map[string]any{"hierarchy": d.Metrics.Hierarchy(), "dimensions": models.DefaultHierarchy})
		})
		r.Get("/models", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, 200, d.Metrics.Models()) })
		r.Get("/curves", func(w http.ResponseWriter, r *http.Request) {
			page, err := d.Metrics.QueryCurves(r.URL.Query())
			a.respond(w, r, page, err)
		})
		r.Get("/curves/series", func(w http.ResponseWriter, r *http.Request) {
			series, err := d.Metrics.QuerySeries(r.Context(), r.URL.Query())
			a.respond(w, r, series, err)
		})
		r.Get("/laydown", func(w http.ResponseWriter, r *http.Request) {
			ld, err := d.Metrics.QueryLaydown(r.URL.Query())
			a.respond(w, r, ld, err)
		})
		r.Get("/laydown/export", a.exportLaydown)

		r.Post("/simulate", a.simulate)
		r.Post("/optimize", a.optimize)

		r.Get("/results", func(w http.ResponseWriter, r *http.Request) {
			page, err := d.Metrics.QueryResults(r.Context(), r.URL.Query())
			a.respond(w, r, page, err)
		})
		r.Post("/results", a.saveResult)
		r.Get("/results/{id}", func(w http.ResponseWriter, r *http.Request) {
			sc, err := d.Results.Get(r.Context(), chi.URLParam(r, "id"))
			a.respond(w, r, sc, err)
		})
		r.Get("/results/{id}/export", a.exportResult)
		r.Patch("/results/{id}", a.patchResult)
		r.Delete("/results/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := d.Results.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
				a.fail(w, r, statusFor(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/compare", func(w http.ResponseWriter, r *http.Request) {
			c, err := d.Metrics.QueryCompare(r.Context(), r.URL.Query())
			a.respond(w, r, c, err)
		})
		r.Get("/compare/export", a.exportCompare)
	})

	return mux
}

func (a *api) ready(w http.ResponseWriter, r *http.Request) {
	if len(a.Catalog.Curves()) == 0 {
		http.Error(w, "catalog not loaded", http.StatusServiceUnavailable)
		return
	}
	if p, ok := a.Results.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			http.Error(w, "results store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

// envelope is the response wrapper of every JSON endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

func (a *api) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		a.fail(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= 500 {
		a.Log.Error("request failed", slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
	}
	env := envelope{Error: err.Error()}
	var mis *models.MismatchError
	if errors.As(err, &mis) {
		env.Detail = mis
	}
	writeEnvelope(w, status, env)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidParameter), errors.Is(err, hierarchy.ErrNoEnabledDimension):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrStructuralMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	writeEnvelope(w, status, envelope{Success: true, Data: v})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(env)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &models.ParamError{Param: "body", Value: err.Error()}
	}
	return nil
}
