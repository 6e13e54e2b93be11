package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/mathieu-neron/callvote/internal/config"
	"github.com/mathieu-neron/callvote/internal/db"
	"github.com/mathieu-neron/callvote/internal/events"
	"github.com/mathieu-neron/callvote/internal/gamelog"
	"github.com/mathieu-neron/callvote/internal/handler"
	"github.com/mathieu-neron/callvote/internal/metrics"
	"github.com/mathieu-neron/callvote/internal/middleware"
	"github.com/mathieu-neron/callvote/internal/repository"
	"github.com/mathieu-neron/callvote/internal/router"
	"github.com/mathieu-neron/callvote/internal/service"
)

const (
	serviceName     = "callvote"
	shutdownTimeout = 5 * time.Second
	redisBuffer     = 256
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Match vote controller with a console and admin HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	addFlags(cmd.Flags(), cfg)
	return cmd
}

// addFlags binds flags that override the environment.
func addFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "server frames per second")
	fs.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "player slots")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "zerolog level (debug, info, warn, error)")
	fs.StringVar(&cfg.GameLogPath, "game-log", cfg.GameLogPath, "game log file, rotated; empty logs to stdout")
	fs.StringVar(&cfg.StartMap, "map", cfg.StartMap, "start map; defaults to the first map of the cycle")
	fs.BoolVar(&cfg.Vote.Debug, "vote-debug", cfg.Vote.Debug, "allow vote changes and skip the creation timer")
}

func run(ctx context.Context, cfg *config.Config) error {
	middleware.InitLogger(cfg.LogLevel, serviceName)
	logger := middleware.Logger

	// Ballot history is optional
	var pool *pgxpool.Pool
	var store service.BallotStore
	if cfg.DatabaseURL != "" {
		p, err := db.NewPool(ctx, cfg.DatabaseURL, logger.With().Str("component", "db").Logger())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer p.Close()

		repo := repository.NewBallotRepo(p)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		pool, store = p, repo
	} else {
		logger.Info().Msg("database: no URL configured, ballot history kept in memory")
	}

	metrics.Init(pool)

	cache := service.NewCacheService(cfg.RedisURL, logger.With().Str("component", "redis").Logger())
	defer cache.Close()

	sinks := []events.Sink{
		events.MetricsSink{},
		events.NewLogSink(logger.With().Str("component", "events").Logger()),
	}
	var redisSink *events.RedisSink
	if rdb := cache.Client(); rdb != nil {
		redisSink = events.NewRedisSink(rdb, events.DefaultChannel, redisBuffer,
			logger.With().Str("component", "redis-sink").Logger())
		sinks = append(sinks, redisSink)
	}

	gl := gamelog.Open(gamelog.Options{Path: cfg.GameLogPath}, logger.With().Str("component", "gamelog").Logger())
	defer gl.Close()

	worker := service.NewBallotWorker(store, cache, service.DefaultFlushInterval,
		logger.With().Str("component", "ballot-worker").Logger())

	world := service.NewWorld(service.WorldOptions{
		MaxPlayers: cfg.MaxPlayers,
		MapCycle:   cfg.MapCycle,
		StartMap:   cfg.StartMap,
		Settings:   cfg.Vote,
		GameLog:    gl,
		Sinks:      sinks,
		Recorder:   worker,
		Logger:     logger,
	})
	loop := service.NewGameLoop(world, cfg.TickRate, logger.With().Str("component", "game-loop").Logger())
	console := service.NewConsole(loop)

	app := fiber.New(fiber.Config{
		AppName:      "callvote API",
		ServerHeader: "callvote",
	})
	limiters := router.Setup(app, &router.Handlers{
		Health:  handler.NewHealthHandler(pool, cache.Client(), loop),
		Console: handler.NewConsoleHandler(console),
		Vote:    handler.NewVoteHandler(console, loop),
		Client:  handler.NewClientHandler(world.Mailboxes),
		Ballot:  handler.NewBallotHandler(worker),
		Admin:   handler.NewAdminHandler(loop, console, logger.With().Str("component", "admin").Logger()),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		AdminToken:  cfg.AdminToken,
	})
	defer limiters.Close()

	if cfg.AdminToken == "" {
		logger.Warn().Msg("ADMIN_TOKEN not set, admin API disabled")
	}

	// Workers outlive the loop so ballots closed at shutdown still persist.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stopWorkers()
		return loop.Start(gctx)
	})
	g.Go(func() error {
		return worker.Start(workerCtx)
	})
	if redisSink != nil {
		g.Go(func() error {
			return redisSink.Run(workerCtx)
		})
	}
	g.Go(func() error {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Environment).
			Int("tick_rate", cfg.TickRate).
			Str("map", world.Rules.CurrentMap()).
			Msg("callvote starting")
		return app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("callvote stopped")
	return nil
}
