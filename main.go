package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/config"
	"github.com/ekaya-inc/claimcheck/pkg/database"
	"github.com/ekaya-inc/claimcheck/pkg/handlers"
	"github.com/ekaya-inc/claimcheck/pkg/llm"
	"github.com/ekaya-inc/claimcheck/pkg/logging"
	"github.com/ekaya-inc/claimcheck/pkg/middleware"
	"github.com/ekaya-inc/claimcheck/pkg/notify"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
	"github.com/ekaya-inc/claimcheck/pkg/retry"
	"github.com/ekaya-inc/claimcheck/pkg/seo"
	"github.com/ekaya-inc/claimcheck/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Env == "local" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level
	return zcfg.Build(zap.Fields(zap.String("service", "claimcheck"), zap.String("version", cfg.Version)))
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connStr := cfg.Database.ConnectionString()
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(connStr)),
		zap.Bool("seo_enabled", cfg.SEO.IsAvailable()),
		zap.Bool("redis_enabled", cfg.Redis.Host != ""))

	// Database
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            connStr,
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	sqlDB, err := database.OpenSQL(connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		_ = sqlDB.Close()
		return err
	}
	_ = sqlDB.Close()

	// Notifications
	rdb, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	var sink notify.Notifier
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		sink = notify.NewRedisNotifier(rdb, cfg.Redis.Channel)
	} else {
		sink = notify.NewLogNotifier(logger)
	}
	notifier := notify.NewAsyncNotifier(sink, 5*time.Second, logger)

	// Repositories
	claimRepo := repositories.NewClaimRepository()
	evidenceRepo := repositories.NewEvidenceRepository()
	perspectiveRepo := repositories.NewPerspectiveRepository()
	replyRepo := repositories.NewReplyRepository()
	voteRepo := repositories.NewVoteRepository()
	logRepo := repositories.NewModerationLogRepository()

	// SEO regeneration
	var summaries *services.AsyncSummaryScheduler
	if cfg.SEO.IsAvailable() {
		llmClient, err := llm.NewClient(&llm.Config{
			Endpoint: cfg.SEO.LLMBaseURL,
			Model:    cfg.SEO.LLMModel,
			APIKey:   cfg.SEO.APIKey,
			Timeout:  cfg.SEO.Timeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		summaries = services.NewSummaryScheduler(&services.SummarySchedulerDeps{
			Generator: seo.NewLLMGenerator(llmClient, cfg.SEO.MaxRetries, logger),
			ClaimRepo: claimRepo,
			Scoper:    db,
			Timeout:   cfg.SEO.Timeout * time.Duration(cfg.SEO.MaxRetries+1),
			DedupTTL:  cfg.SEO.DedupTTL,
			Logger:    logger,
		})
	}

	// Services
	scoreDeps := &services.ClaimScoreServiceDeps{
		ClaimRepo:       claimRepo,
		EvidenceRepo:    evidenceRepo,
		PerspectiveRepo: perspectiveRepo,
		Logger:          logger,
	}
	if summaries != nil {
		scoreDeps.Summaries = summaries
	}
	scorer := services.NewClaimScoreService(scoreDeps)

	claimService := services.NewClaimService(&services.ClaimServiceDeps{
		ClaimRepo:              claimRepo,
		Scorer:                 scorer,
		Scoper:                 db,
		Notifier:               notifier,
		RecomputeOnRead:        cfg.Scoring.RecomputeOnRead,
		ListRefreshConcurrency: cfg.Scoring.ListRefreshConcurrency,
		Logger:                 logger,
	})
	contentService := services.NewContentService(&services.ContentServiceDeps{
		ClaimRepo:       claimRepo,
		EvidenceRepo:    evidenceRepo,
		PerspectiveRepo: perspectiveRepo,
		Scorer:          scorer,
		Logger:          logger,
	})
	replyService := services.NewReplyService(&services.ReplyServiceDeps{
		ReplyRepo:       replyRepo,
		EvidenceRepo:    evidenceRepo,
		PerspectiveRepo: perspectiveRepo,
		Logger:          logger,
	})
	voteService := services.NewVoteService(&services.VoteServiceDeps{
		VoteRepo:             voteRepo,
		ClaimRepo:            claimRepo,
		EvidenceRepo:         evidenceRepo,
		PerspectiveRepo:      perspectiveRepo,
		Scorer:               scorer,
		RequireApprovedClaim: cfg.Voting.RequireApprovedClaim,
		Logger:               logger,
	})
	moderationService := services.NewModerationService(&services.ModerationServiceDeps{
		ClaimRepo: claimRepo,
		LogRepo:   logRepo,
		Scorer:    scorer,
		Notifier:  notifier,
		Logger:    logger,
	})

	// Auth
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
		Leeway:             cfg.Auth.Leeway,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize JWKS client: %w", err)
	}
	defer jwksClient.Close()
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwksClient, logger), logger)

	// Routes
	mux := http.NewServeMux()
	scope := database.WithScopeContext(db, logger)

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	handlers.NewClaimHandler(claimService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewContentHandler(contentService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewReplyHandler(replyService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewVoteHandler(voteService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewModerationHandler(moderationService, contentService, logger).
		RegisterRoutes(mux, authMiddleware, scope, cfg.Auth.ModeratorRole)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting claimcheck", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown did not complete", zap.Error(err))
	}

	notifier.Wait()
	if summaries != nil {
		summaries.Wait()
	}
	return nil
}
