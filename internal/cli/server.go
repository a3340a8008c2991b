package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/pyvlad/quizzz-spa/internal/app"
	"github.com/pyvlad/quizzz-spa/internal/config"
	"github.com/pyvlad/quizzz-spa/internal/infra/memory"
	"github.com/pyvlad/quizzz-spa/internal/infra/postgres"
	rediscache "github.com/pyvlad/quizzz-spa/internal/infra/redis"
	"github.com/pyvlad/quizzz-spa/internal/metrics"
	transport "github.com/pyvlad/quizzz-spa/internal/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type storage interface {
	app.RoundRepository
	app.PlayRepository
	app.UserDirectory
}

// quizSource serves quiz content and lists what a community could schedule.
type quizSource interface {
	memory.QuizLoader
	app.QuizCatalog
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, redisTTL)
	standingsTTL := config.TTLDuration(cfg.Standings.TTL, time.Minute)

	var (
		store  storage
		loader quizSource
	)
	if cfg.Postgres.URL != "" {
		db := openDB(cfg.Postgres.URL)
		defer db.Close()
		if err := runMigrations(ctx, db, logger); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(db)
		loader = postgres.NewQuizLoader(pool)
	} else {
		demo := memory.NewStore()
		store = demo
		loader = seedDemo(ctx, demo, time.Now(), logger)
	}

	var (
		quizRepo  app.QuizRepository
		standings app.StandingsCache
	)
	if redisClient != nil {
		quizRepo = rediscache.NewQuizRepository(redisClient, loader, quizTTL, logger)
		standings = rediscache.NewStandingsCache(redisClient, standingsTTL, logger)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		standings = memory.NewStandingsCache(standingsTTL)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := app.NewService(store, store, quizRepo, store,
		app.WithLogger(logger),
		app.WithMetrics(metrics.New(registry)),
		app.WithStandingsCache(standings),
		app.WithQuizCatalog(loader),
		app.WithRoundsLimit(cfg.Rounds.PerTournamentLimit),
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, logger, registry),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
