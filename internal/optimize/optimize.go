// Package optimize reallocates a budget across channels by equalizing
// marginal response on their curves.
package optimize

import (
	"math"

	"github.com/AngelCh415/mmm-planner/internal/curve"
	"github.com/AngelCh415/mmm-planner/internal/models"
)

const (
	DefaultEpsilon       = 0.01
	DefaultMaxIterations = 100
	DefaultStep          = 0.05
)

// Guardrail bounds one channel's spend. A zero Max means unbounded.
type Guardrail struct {
	CurveID int     `json:"curve_id"`
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

func (g Guardrail) max() float64 {
	if g.Max <= 0 {
		return math.Inf(1)
	}
	return g.Max
}

// Status classifies a spend against its bounds.
func Status(spend, min, max float64) string {
	switch {
	case spend < min:
		return "below"
	case max > 0 && spend > max:
		return "above"
	case spend < min*1.1 || (max > 0 && spend > max*0.9):
		return "caution"
	}
	return "ok"
}

type Options struct {
	TotalBudget   float64
	MaxSpend      float64
	Epsilon       float64
	MaxIterations int
	Step          float64
	// CPM per curve id, used for impressions.
	CPM map[int]float64
}

type Allocation struct {
	CurveID           int     `json:"curve_id"`
	Current           float64 `json:"current"`
	Optimized         float64 `json:"optimized"`
	CurrentResponse   float64 `json:"current_response"`
	OptimizedResponse float64 `json:"optimized_response"`
	MarginalROI       float64 `json:"marginal_roi"`
	Impressions       float64 `json:"impressions"`
	Status            string  `json:"status"`
}

type Result struct {
	Allocations       []Allocation `json:"allocations"`
	TotalBudget       float64      `json:"total_budget"`
	CurrentResponse   float64      `json:"current_response"`
	OptimizedResponse float64      `json:"optimized_response"`
	Iterations        int          `json:"iterations"`
	Converged         bool         `json:"converged"`
}

// Run shifts budget from the channel with the lowest marginal response to
// the one with the highest, within guardrails, until the gap closes.
func Run(curves []models.Curve, rails []Guardrail, opt Options) (Result, error) {
	if len(curves) == 0 {
		return Result{}, &models.ParamError{Param: "curves", Value: 0}
	}
	if !(opt.TotalBudget > 0) {
		return Result{}, &models.ParamError{Param: "total_budget", Value: opt.TotalBudget}
	}
	if opt.MaxSpend == 0 {
		opt.MaxSpend = curve.DefaultMaxSpend
	}
	if opt.Epsilon <= 0 {
		opt.Epsilon = DefaultEpsilon
	}
	if opt.MaxIterations <= 0 {
		opt.MaxIterations = DefaultMaxIterations
	}
	if opt.Step <= 0 {
		opt.Step = DefaultStep
	}

	railBy := make(map[int]Guardrail, len(rails))
	for _, g := range rails {
		if g.Min < 0 || (g.Max > 0 && g.Max < g.Min) {
			return Result{}, &models.ParamError{Param: "guardrail", Value: g.CurveID}
		}
		railBy[g.CurveID] = g
	}

	n := len(curves)
	alloc := make([]float64, n)
	var currentTotal float64
	for i, c := range curves {
		alloc[i] = railBy[c.ID].Current
		currentTotal += alloc[i]
	}
	if currentTotal > 0 {
		scale := opt.TotalBudget / currentTotal
		for i := range alloc {
			alloc[i] *= scale
		}
	} else {
		for i := range alloc {
			alloc[i] = opt.TotalBudget / float64(n)
		}
	}

	mroi := make([]float64, n)
	iter := 0
	converged := false
	for ; iter < opt.MaxIterations; iter++ {
		for i, c := range curves {
			m, err := curve.Marginal(c.Alpha, c.Beta, alloc[i], opt.MaxSpend)
			if err != nil {
				return Result{}, err
			}
			mroi[i] = m
		}
		hi, lo := -1, -1
		for i, c := range curves {
			g := railBy[c.ID]
			if alloc[i] < g.max() && (hi < 0 || mroi[i] > mroi[hi]) {
				hi = i
			}
			if alloc[i] > g.Min && (lo < 0 || mroi[i] < mroi[lo]) {
				lo = i
			}
		}
		if hi < 0 || lo < 0 || hi == lo {
			converged = true
			break
		}
		if (mroi[hi]-mroi[lo])/math.Max(mroi[hi], 0.01) < opt.Epsilon {
			converged = true
			break
		}
		shift := math.Min(alloc[lo]*opt.Step, alloc[lo]-railBy[curves[lo].ID].Min)
		shift = math.Min(shift, railBy[curves[hi].ID].max()-alloc[hi])
		if shift <= 0 {
			converged = true
			break
		}
		alloc[lo] -= shift
		alloc[hi] += shift
	}

	res := Result{TotalBudget: opt.TotalBudget, Iterations: iter + 1, Converged: converged}
	if iter == opt.MaxIterations {
		res.Iterations = iter
	}
	for i, c := range curves {
		g := railBy[c.ID]
		cr, err := curve.Evaluate(c.Alpha, c.Beta, g.Current, opt.MaxSpend)
		if err != nil {
			return Result{}, err
		}
		or, err := curve.Evaluate(c.Alpha, c.Beta, alloc[i], opt.MaxSpend)
		if err != nil {
			return Result{}, err
		}
		m, _ := curve.Marginal(c.Alpha, c.Beta, alloc[i], opt.MaxSpend)
		a := Allocation{
			CurveID:           c.ID,
			Current:           g.Current,
			Optimized:         alloc[i],
			CurrentResponse:   cr,
			OptimizedResponse: or,
			MarginalROI:       m,
			Status:            Status(alloc[i], g.Min, g.Max),
		}
		if cpm := opt.CPM[c.ID]; cpm > 0 {
			a.Impressions = math.Round(alloc[i] / cpm * 1000)
		}
		res.CurrentResponse += cr
		res.OptimizedResponse += or
		res.Allocations = append(res.Allocations, a)
	}
	return res, nil
}
