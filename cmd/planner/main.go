package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/mmm-planner/internal/budget"
	"github.com/AngelCh415/mmm-planner/internal/config"
	"github.com/AngelCh415/mmm-planner/internal/httpx"
	"github.com/AngelCh415/mmm-planner/internal/ingest"
	"github.com/AngelCh415/mmm-planner/internal/metrics"
	"github.com/AngelCh415/mmm-planner/internal/session"
	"github.com/AngelCh415/mmm-planner/internal/store"
)

func main() {
	if err := newRootCmd(loadConfig).Execute(); err != nil {
		slog.Error("planner", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func loadConfig(envFile string) config.Config {
	if envFile == "" {
		return config.Load()
	}
	return config.Load(envFile)
}

func newRootCmd(loadEnv func(envFile string) config.Config) *cobra.Command {
	var envFile string
	rootCmd := &cobra.Command{
		Use:           "planner",
		Short:         "Media mix budget planner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "optional .env file")
	cfg := func() config.Config { return loadEnv(envFile) }

	rootCmd.AddCommand(serveCmd(cfg))
	rootCmd.AddCommand(curvesCmd(cfg))
	rootCmd.AddCommand(laydownCmd(cfg))
	rootCmd.AddCommand(simulateCmd(cfg))
	rootCmd.AddCommand(compareCmd())
	return rootCmd
}

func serveCmd(load func() config.Config) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planner HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := load()
			if port != "" {
				cfg.Port = port
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port (overrides PORT)")
	return cmd
}

func serve(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	st := store.NewMemoryStore()
	var results store.ResultStore = st
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		results = pg
		logger.Info("results store", slog.String("backend", "postgres"))
	}

	loader := ingest.NewLoader(ingest.NewHTTPClient(cfg.HTTPTimeout), st, logger, cfg)
	rep, err := loader.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", slog.Int("curves", rep.Curves), slog.Int("skipped", rep.Skipped), slog.Any("sources", rep.Sources))

	eng := budget.NewEngine(budget.LinearModel{VolumeRate: cfg.VolumeRate, ValueRate: cfg.ValueRate}, cfg.GuardrailPct)
	r := httpx.NewRouter(httpx.Deps{
		Log:     logger,
		Loader:  loader,
		Catalog: st,
		Results: results,
		Metrics: metrics.NewService(st, results, cfg.ChartMaxSpend, cfg.ChartSteps),
		Planner: session.NewPlanner(eng),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
