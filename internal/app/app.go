// Package app wires Sentinyl's runtime modes: the api mode serves the
// ingress HTTP surface, and the worker mode drains exactly one named
// queue (chosen by config.WorkerQueue) per process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/OP-88/Sentinyl/internal/auth"
	"github.com/OP-88/Sentinyl/internal/config"
	"github.com/OP-88/Sentinyl/internal/httpserver"
	"github.com/OP-88/Sentinyl/internal/platform"
	"github.com/OP-88/Sentinyl/internal/queue"
	"github.com/OP-88/Sentinyl/internal/telemetry"
	"github.com/OP-88/Sentinyl/pkg/apikey"
	"github.com/OP-88/Sentinyl/pkg/graph"
	"github.com/OP-88/Sentinyl/pkg/guard"
	"github.com/OP-88/Sentinyl/pkg/ingress"
	"github.com/OP-88/Sentinyl/pkg/notify"
	"github.com/OP-88/Sentinyl/pkg/slack"
	"github.com/OP-88/Sentinyl/pkg/worker"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the appropriate mode (api or worker).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting sentinyl",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := prometheus.NewRegistry()
	metricsReg.MustRegister(telemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, db, rdb)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	apiKeys := apikey.NewService(db, logger)
	authenticator := auth.NewAuthenticator(apiKeys)

	srv := httpserver.NewServer(httpserver.ServerConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger, db, rdb, metricsReg, authenticator)

	q := queue.New(rdb)
	ingressHandler := ingress.NewHandler(logger, db, q, apiKeys, cfg.UpgradeURL)

	srv.Router.Mount("/", ingressHandler.PublicRoutes())
	srv.APIRouter.Mount("/", ingressHandler.Routes())

	if cfg.SlackSigningSecret != "" {
		events := guard.NewEventStore(db)
		slackNotifier := slack.NewNotifier(cfg.SlackBotToken, logger)
		slackHandler := slack.NewHandler(events, slackNotifier, logger, cfg.SlackSigningSecret)
		srv.Router.Mount("/slack", slackHandler.Routes())
		logger.Info("slack interactions webhook mounted")
	}

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) error {
	q := queue.New(rdb)
	graphIngester := graph.NewIngester(ctx, cfg.GraphIngestURL, logger)
	fanout := buildFanout(cfg, logger)

	deps := worker.NewDeps(logger, db, q, graphIngester, fanout, "https://api.github.com", cfg.GitHubToken)

	switch cfg.WorkerQueue {
	case "typosquat":
		return deps.RunTyposquat(ctx)
	case "leak":
		return deps.RunLeak(ctx)
	case "guard":
		return deps.RunGuard(ctx)
	default:
		return fmt.Errorf("unknown worker queue: %s", cfg.WorkerQueue)
	}
}

// buildFanout wires every configured notification channel, per spec.md
// §4.5 and §6's SLACK_WEBHOOK_URL/TEAMS_WEBHOOK_URL. A Sentinyl install
// with neither configured still runs, simply with zero channels — Fanout
// tolerates an empty channel list.
func buildFanout(cfg *config.Config, logger *slog.Logger) *notify.Fanout {
	var channels []notify.Channel
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, notify.NewRichBlockChannel(cfg.SlackWebhookURL))
		logger.Info("slack notification channel enabled")
	}
	if cfg.TeamsWebhookURL != "" {
		channels = append(channels, notify.NewAdaptiveCardChannel(cfg.TeamsWebhookURL))
		logger.Info("teams notification channel enabled")
	}
	if len(channels) == 0 {
		logger.Info("no notification channels configured")
	}
	return notify.New(logger, channels...)
}
