package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/mmm-planner/internal/budget"
	"github.com/AngelCh415/mmm-planner/internal/compare"
	"github.com/AngelCh415/mmm-planner/internal/config"
	"github.com/AngelCh415/mmm-planner/internal/curve"
	"github.com/AngelCh415/mmm-planner/internal/export"
	"github.com/AngelCh415/mmm-planner/internal/hierarchy"
	"github.com/AngelCh415/mmm-planner/internal/models"
	"github.com/AngelCh415/mmm-planner/internal/refdata"
	"github.com/AngelCh415/mmm-planner/internal/session"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rangeFlags(cmd *cobra.Command, r *hierarchy.WeekRange) {
	*r = session.DefaultRange
	cmd.Flags().IntVar(&r.Year, "year", r.Year, "laydown year")
	cmd.Flags().IntVar(&r.From, "from", r.From, "first week")
	cmd.Flags().IntVar(&r.To, "to", r.To, "last week")
}

func curvesCmd(load func() config.Config) *cobra.Command {
	var (
		modelIDs []int
		series   bool
		maxSpend float64
		steps    int
	)
	cmd := &cobra.Command{
		Use:   "curves",
		Short: "List response curves or print their chart series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			cat, err := refdata.Load(cfg.ReferenceData)
			if err != nil {
				return err
			}
			curves := cat.CurvesFor(modelIDs...)
			if !series {
				return printJSON(cmd.OutOrStdout(), curves)
			}
			if maxSpend <= 0 {
				maxSpend = cfg.ChartMaxSpend
			}
			if steps <= 0 {
				steps = cfg.ChartSteps
			}
			set, err := curve.SeriesSet(cmd.Context(), curves, maxSpend, steps)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), set)
		},
	}
	cmd.Flags().IntSliceVarP(&modelIDs, "model", "m", nil, "model ids")
	cmd.Flags().BoolVar(&series, "series", false, "print chart series")
	cmd.Flags().Float64Var(&maxSpend, "max-spend", 0, "chart spend ceiling")
	cmd.Flags().IntVar(&steps, "steps", 0, "chart points per curve")
	return cmd
}

func laydownCmd(load func() config.Config) *cobra.Command {
	var (
		rng    hierarchy.WeekRange
		path   []string
		search string
		asCSV  bool
	)
	cmd := &cobra.Command{
		Use:   "laydown",
		Short: "Print the weekly spend laydown, optionally drilled down",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := refdata.Load(load().ReferenceData)
			if err != nil {
				return err
			}
			v, err := session.NewLaydownView().WithRange(rng)
			if err != nil {
				return err
			}
			for _, p := range path {
				v = v.DrillDown(p)
			}
			ld, err := v.WithSearch(search).Build(cat)
			if err != nil {
				return err
			}
			if asCSV {
				return export.Laydown(cmd.OutOrStdout(), ld)
			}
			return printJSON(cmd.OutOrStdout(), ld)
		},
	}
	rangeFlags(cmd, &rng)
	cmd.Flags().StringSliceVar(&path, "drill", nil, "group values to drill into, in order")
	cmd.Flags().StringVarP(&search, "query", "q", "", "curve name filter")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV")
	return cmd
}

func simulateCmd(load func() config.Config) *cobra.Command {
	var (
		modelIDs []int
		rng      hierarchy.WeekRange
		bulk     float64
		name     string
		asCSV    bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Apply a bulk budget change and print the resulting scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			cat, err := refdata.Load(cfg.ReferenceData)
			if err != nil {
				return err
			}
			p := session.NewPlanner(budget.NewEngine(budget.LinearModel{VolumeRate: cfg.VolumeRate, ValueRate: cfg.ValueRate}, cfg.GuardrailPct))
			sim := p.SelectModels(session.NewState().Sim, cat, modelIDs)
			sim, err = p.SetPeriod(sim, rng)
			if err == nil {
				sim, err = p.Prepare(sim, cat)
			}
			if err == nil && bulk != 0 {
				sim, err = p.Bulk(sim, bulk)
			}
			if err == nil {
				sim, err = p.Run(sim, cat, session.RunMeta{Name: name})
			}
			if err != nil {
				return err
			}
			if sim.Snapshot.Warn() {
				fmt.Fprintf(cmd.ErrOrStderr(), "guardrail: %d channel(s) changed by %.0f%% or more\n", len(sim.Snapshot.Flagged), cfg.GuardrailPct)
			}
			if asCSV {
				return export.Scenario(cmd.OutOrStdout(), *sim.Result)
			}
			return printJSON(cmd.OutOrStdout(), sim.Result)
		},
	}
	cmd.Flags().IntSliceVarP(&modelIDs, "model", "m", nil, "model ids")
	rangeFlags(cmd, &rng)
	cmd.Flags().Float64Var(&bulk, "bulk", 0, "percent change applied to every channel")
	cmd.Flags().StringVar(&name, "name", "", "scenario name")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV")
	return cmd
}

func readScenario(path string) (models.Scenario, error) {
	var sc models.Scenario
	b, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := json.Unmarshal(b, &sc); err != nil {
		return sc, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func compareCmd() *cobra.Command {
	var (
		by    string
		kpi   string
		asCSV bool
	)
	cmd := &cobra.Command{
		Use:   "compare <left.json> <right.json>",
		Short: "Compare two saved scenarios",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := models.ParseDimension(by)
			if err != nil {
				return err
			}
			k, err := models.ParseKPI(kpi)
			if err != nil {
				return err
			}
			left, err := readScenario(args[0])
			if err != nil {
				return err
			}
			right, err := readScenario(args[1])
			if err != nil {
				return err
			}
			c, err := compare.Diff(left, right, dim, k)
			if err != nil {
				return err
			}
			if asCSV {
				return export.Comparison(cmd.OutOrStdout(), c)
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringVar(&by, "by", string(models.DimPillar), "grouping dimension")
	cmd.Flags().StringVar(&kpi, "kpi", string(models.KPISpend), "comparison metric")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV")
	return cmd
}
