package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"fightleague/auth"
	"fightleague/config"
	"fightleague/db"
	"fightleague/dispute"
	"fightleague/fight"
	"fightleague/fighter"
	"fightleague/notify"
	"fightleague/progression"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("api shut down with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	outbox := notify.NewWriter()

	fighterRepo := fighter.NewRepository(pool)
	fightRepo := fight.NewRepository(pool)
	disputeRepo := dispute.NewRepository(pool)

	engine := progression.NewEngine(outbox)
	statsService := progression.NewStatsService(pool)

	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	fighterService := fighter.NewService(fighterRepo)
	fightService := fight.NewService(pool, fightRepo, fighterRepo, engine, outbox)

	resolver := dispute.NewOpponentResolver(fighterRepo, fightRepo)
	disputeService := dispute.NewService(pool, disputeRepo, fighterRepo, outbox)
	resolutionExecutor := dispute.NewExecutor(pool, disputeRepo, fighterRepo, fightRepo, engine, resolver, fighterRepo, outbox)

	dispatcher := notify.NewDispatcher(pool, notify.LogSink{Logger: logger}, logger).
		WithInterval(cfg.OutboxInterval)
	reconciler := notify.NewReconciler(pool, logger)

	server := &Server{
		authService:       authService,
		fighterService:    fighterService,
		recordService:     fightRepo,
		reportService:     fightService,
		statsService:      statsService,
		disputeService:    disputeService,
		resolutionService: resolutionExecutor,
		logger:            logger,
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.routes(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	g.Go(func() error {
		return reconciler.Run(ctx, cfg.ReconcileEvery)
	})

	return g.Wait()
}
