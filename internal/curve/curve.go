// Package curve evaluates the saturating tanh response curves of the MMM
// reference dataset.
package curve

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

const (
	// Raw alpha/beta in the reference dataset are in the 1e5..1e8 range;
	// these scales bring them to a usable multiplier and exponent.
	AlphaScale  = 1e8
	BetaScale   = 1e7
	ScaleFactor = 1_000_000

	DefaultMaxSpend = 800_000
	DefaultSteps    = 100
)

// Evaluate returns tanh(alpha/1e8 * (spend/maxSpend)^(beta/1e7)) * 1e6.
func Evaluate(alpha, beta, spend, maxSpend float64) (float64, error) {
	na, nb, err := normalize(alpha, beta, maxSpend)
	if err != nil {
		return 0, err
	}
	if spend < 0 || math.IsNaN(spend) {
		return 0, &models.ParamError{Param: "spend", Value: spend}
	}
	if spend == 0 {
		return 0, nil
	}
	return math.Tanh(na*math.Pow(spend/maxSpend, nb)) * ScaleFactor, nil
}

// Marginal is the derivative of Evaluate with respect to spend.
func Marginal(alpha, beta, spend, maxSpend float64) (float64, error) {
	na, nb, err := normalize(alpha, beta, maxSpend)
	if err != nil {
		return 0, err
	}
	if spend < 0 || math.IsNaN(spend) {
		return 0, &models.ParamError{Param: "spend", Value: spend}
	}
	if spend == 0 {
		switch {
		case nb < 1:
			return math.Inf(1), nil
		case nb == 1:
			return ScaleFactor * na / maxSpend, nil
		default:
			return 0, nil
		}
	}
	ns := spend / maxSpend
	t := math.Tanh(na * math.Pow(ns, nb))
	return ScaleFactor * (1 - t*t) * na * nb * math.Pow(ns, nb-1) / maxSpend, nil
}

func normalize(alpha, beta, maxSpend float64) (float64, float64, error) {
	if !(alpha > 0) {
		return 0, 0, &models.ParamError{Param: "alpha", Value: alpha}
	}
	if !(beta > 0) {
		return 0, 0, &models.ParamError{Param: "beta", Value: beta}
	}
	if !(maxSpend > 0) {
		return 0, 0, &models.ParamError{Param: "maxSpend", Value: maxSpend}
	}
	return alpha / AlphaScale, beta / BetaScale, nil
}

// Series samples a curve at steps+1 evenly spaced spend levels in [0, maxSpend].
func Series(c models.Curve, maxSpend float64, steps int) (models.ChartSeries, error) {
	if steps <= 0 {
		steps = DefaultSteps
	}
	if maxSpend == 0 {
		maxSpend = DefaultMaxSpend
	}
	if !(maxSpend > 0) {
		return models.ChartSeries{}, &models.ParamError{Param: "maxSpend", Value: maxSpend}
	}
	xs := floats.Span(make([]float64, steps+1), 0, maxSpend)
	pts := make([]models.ChartPoint, 0, len(xs))
	for _, x := range xs {
		y, err := Evaluate(c.Alpha, c.Beta, x, maxSpend)
		if err != nil {
			return models.ChartSeries{}, err
		}
		pts = append(pts, models.ChartPoint{X: x / 1000, Y: y})
	}
	return models.ChartSeries{CurveID: c.ID, Name: c.Name, Color: c.Color, Points: pts}, nil
}

// SeriesSet builds the series of every curve concurrently; output order follows input.
func SeriesSet(ctx context.Context, curves []models.Curve, maxSpend float64, steps int) ([]models.ChartSeries, error) {
	out := make([]models.ChartSeries, len(curves))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range curves {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := Series(c, maxSpend, steps)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
