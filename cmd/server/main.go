package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lalith-99/boardsync/internal/api"
	"github.com/lalith-99/boardsync/internal/authz"
	"github.com/lalith-99/boardsync/internal/boards"
	"github.com/lalith-99/boardsync/internal/chat"
	"github.com/lalith-99/boardsync/internal/config"
	"github.com/lalith-99/boardsync/internal/db"
	"github.com/lalith-99/boardsync/internal/favorites"
	"github.com/lalith-99/boardsync/internal/invitations"
	"github.com/lalith-99/boardsync/internal/membership"
	"github.com/lalith-99/boardsync/internal/notify"
	"github.com/lalith-99/boardsync/internal/observ"
	"github.com/lalith-99/boardsync/internal/pipeline"
	"github.com/lalith-99/boardsync/internal/realtime"
	"github.com/lalith-99/boardsync/internal/repository"
	"github.com/lalith-99/boardsync/internal/repository/memory"
	"github.com/lalith-99/boardsync/internal/repository/postgres"
	"github.com/lalith-99/boardsync/internal/teams"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	relayReadyWait  = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observ.NewMetrics(reg)

	// ---------------------------------------------------------------
	// 2. Storage
	// ---------------------------------------------------------------
	var (
		repos  *repository.Repositories
		health func(context.Context) error
	)
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		repos = memory.New()
	default:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer database.Close()

		if err := database.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		repos = postgres.New(database.Pool())
		health = database.Health
	}

	// ---------------------------------------------------------------
	// 3. Fan-out. Without Redis the hub and dispatcher are used
	//    directly and delivery stays inside this process.
	// ---------------------------------------------------------------
	hub := realtime.NewHub(logger, metrics)
	dispatcher := notify.NewDispatcher(cfg.WSSendBuffer, logger, metrics)

	var (
		broadcaster realtime.Broadcaster = hub
		pusher      notify.Pusher        = dispatcher
		groupRelay  *realtime.RedisRelay
		pushRelay   *notify.RedisRelay
	)
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()

		groupRelay = realtime.NewRedisRelay(rdb, hub, logger)
		pushRelay = notify.NewRedisRelay(rdb, dispatcher, logger)
		broadcaster = groupRelay
		pusher = pushRelay
	}

	// ---------------------------------------------------------------
	// 4. Services
	// ---------------------------------------------------------------
	guard := authz.NewGuard(repos.Members)
	joinAuthorizer := realtime.NewMembershipAuthorizer(guard, repos.Teams, repos.Chat)

	router := api.NewRouter(api.Deps{
		Repos:       repos,
		Boards:      boards.NewService(repos, guard, broadcaster, logger),
		Pipeline:    pipeline.NewService(repos, guard, broadcaster, logger, pipeline.WithMetrics(metrics)),
		Members:     membership.NewService(repos, guard, broadcaster, logger),
		Invitations: invitations.NewService(repos, guard, pusher, broadcaster, cfg.InvitationTTL, logger),
		Favorites:   favorites.NewService(repos, guard, pusher),
		Chat:        chat.NewService(repos, joinAuthorizer, broadcaster, logger),
		Teams:       teams.NewService(repos, logger),

		Hub:            hub,
		JoinAuthorizer: joinAuthorizer,
		Upgrader:       realtime.NewUpgrader(cfg.CORSOrigin),
		Dispatcher:     dispatcher,

		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL,
		WSSendBuffer: cfg.WSSendBuffer,
		SSEHeartbeat: cfg.SSEHeartbeat,
		CORSOrigin:   cfg.CORSOrigin,

		Health:  health,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:  logger,
	})

	// ---------------------------------------------------------------
	// 5. Run relays and the HTTP server until a signal arrives.
	//    No WriteTimeout: websocket and SSE responses are long-lived.
	// ---------------------------------------------------------------
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if groupRelay != nil {
		g.Go(func() error { return groupRelay.Run(gctx) })
		g.Go(func() error { return pushRelay.Run(gctx) })
		if err := waitReady(gctx, groupRelay.Ready(), pushRelay.Ready()); err != nil {
			logger.Warn("redis relays not ready, continuing", zap.Error(err))
		}
	}

	g.Go(func() error {
		logger.Info("starting boardsync",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
			zap.Bool("redis", cfg.RedisURL != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func waitReady(ctx context.Context, chans ...<-chan struct{}) error {
	timer := time.NewTimer(relayReadyWait)
	defer timer.Stop()
	for _, ch := range chans {
		select {
		case <-ch:
		case <-timer.C:
			return errors.New("timed out waiting for relay subscription")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
