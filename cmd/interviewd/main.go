package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/internal/config"
	"github.com/MarkoPoloResearchLab/interviewledger/internal/database"
	"github.com/MarkoPoloResearchLab/interviewledger/internal/httpapi"
	"github.com/MarkoPoloResearchLab/interviewledger/internal/observability"
	"github.com/MarkoPoloResearchLab/interviewledger/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/interviewledger/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/idempotency"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/ledger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	serviceName = "interviewd"
	envPrefix   = "INTERVIEWD"

	flagListenAddr          = "listen-addr"
	flagDatabaseURL         = "database-url"
	flagLedgerBackend       = "ledger-backend"
	flagAllowedOrigins      = "allowed-origins"
	flagSessionSigningKey   = "jwt-signing-key"
	flagSessionIssuer       = "session-issuer"
	flagSessionCookieName   = "session-cookie-name"
	flagRequestTimeout      = "request-timeout"
	flagIdempotencyBackend  = "idempotency-backend"
	flagIdempotencyTTL      = "idempotency-ttl"
	flagIdempotencyCapacity = "idempotency-capacity"
	flagRedisAddr           = "redis-addr"
	flagRedisPassword       = "redis-password"
	flagRedisDB             = "redis-db"
	flagWelcomeCredits      = "welcome-credits"
	flagLogLevel            = "log-level"

	flagGrantUser   = "user"
	flagGrantAmount = "amount"
	flagGrantSource = "source"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &config.Config{}
	settings := viper.New()
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Guided interview API with a metered credit ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(settings, cmd.Flags(), cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(flagListenAddr, "", "HTTP listen address")
	flags.String(flagDatabaseURL, "", "postgres:// or sqlite:// connection string")
	flags.String(flagLedgerBackend, "", "ledger store: gorm or pgx")
	flags.String(flagAllowedOrigins, "", "comma-separated CORS origins")
	flags.String(flagSessionSigningKey, "", "HS256 key shared with TAuth")
	flags.String(flagSessionIssuer, "", "expected session issuer")
	flags.String(flagSessionCookieName, "", "session cookie name")
	flags.Duration(flagRequestTimeout, 0, "per-request deadline")
	flags.String(flagIdempotencyBackend, "", "idempotency store: memory or redis")
	flags.Duration(flagIdempotencyTTL, 0, "how long a processed request blocks its duplicates")
	flags.Int(flagIdempotencyCapacity, 0, "in-memory idempotency capacity")
	flags.String(flagRedisAddr, "", "redis address for the redis idempotency backend")
	flags.String(flagRedisPassword, "", "redis password")
	flags.Int(flagRedisDB, 0, "redis database number")
	flags.Int64(flagWelcomeCredits, config.DefaultWelcomeCredits(), "credits granted by the welcome endpoint")
	flags.String(flagLogLevel, "", "debug, info, warn or error")

	cmd.AddCommand(newMigrateCommand(cfg), newGrantCommand(cfg))
	return cmd
}

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := observability.NewLogger(cfg.LogLevel, serviceName)
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			_, cleanup, err := openSchema(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()
			logger.Info("schema ready")
			return nil
		},
	}
}

func newGrantCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant credits to a user from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawUser, _ := cmd.Flags().GetString(flagGrantUser)
			amount, _ := cmd.Flags().GetInt64(flagGrantAmount)
			rawSource, _ := cmd.Flags().GetString(flagGrantSource)
			userID, err := identity.NewUserID(rawUser)
			if err != nil {
				return err
			}
			sourceType, err := ledger.ParseSourceType(rawSource)
			if err != nil {
				return err
			}

			logger, err := observability.NewLogger(cfg.LogLevel, serviceName)
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			db, cleanup, err := openSchema(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			observer := observability.NewObserver(logger.Named("domain"), nil)
			ledgerService, err := ledger.NewService(gormstore.NewLedgerStore(db), utcNow, ledger.WithOperationLogger(observer))
			if err != nil {
				return err
			}
			entry, err := ledgerService.Grant(cmd.Context(), userID, ledger.Credits(amount), sourceType)
			if err != nil {
				return err
			}
			balance, err := ledgerService.Balance(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s (entry %s), balance %d\n", entry.Amount, userID, entry.ID, balance)
			return nil
		},
	}
	cmd.Flags().String(flagGrantUser, "", "user id to credit")
	cmd.Flags().Int64(flagGrantAmount, 0, "credits to grant")
	cmd.Flags().String(flagGrantSource, string(ledger.SourcePromo), "grant source: purchase, promo or welcome")
	return cmd
}

// loadConfig resolves flags, INTERVIEWD_* environment variables and defaults, in that order.
func loadConfig(settings *viper.Viper, flags *pflag.FlagSet, cfg *config.Config) error {
	settings.SetEnvPrefix(envPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(flags); err != nil {
		return err
	}
	if err := settings.BindEnv(flagDatabaseURL, envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return err
	}

	*cfg = config.Config{
		ListenAddr:          settings.GetString(flagListenAddr),
		DatabaseURL:         settings.GetString(flagDatabaseURL),
		LedgerBackend:       settings.GetString(flagLedgerBackend),
		AllowedOrigins:      config.ParseAllowedOrigins(settings.GetString(flagAllowedOrigins)),
		SessionSigningKey:   settings.GetString(flagSessionSigningKey),
		SessionIssuer:       settings.GetString(flagSessionIssuer),
		SessionCookieName:   settings.GetString(flagSessionCookieName),
		RequestTimeout:      settings.GetDuration(flagRequestTimeout),
		IdempotencyBackend:  settings.GetString(flagIdempotencyBackend),
		IdempotencyTTL:      settings.GetDuration(flagIdempotencyTTL),
		IdempotencyCapacity: settings.GetInt(flagIdempotencyCapacity),
		RedisAddr:           settings.GetString(flagRedisAddr),
		RedisPassword:       settings.GetString(flagRedisPassword),
		RedisDB:             settings.GetInt(flagRedisDB),
		WelcomeCredits:      settings.GetInt64(flagWelcomeCredits),
		LogLevel:            settings.GetString(flagLogLevel),
	}
	return cfg.Validate()
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger, err := observability.NewLogger(cfg.LogLevel, serviceName)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, cleanup, err := openSchema(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("metrics init: %w", err)
	}
	observer := observability.NewObserver(logger.Named("domain"), metrics)

	ledgerStore, closeLedgerStore, err := openLedgerStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeLedgerStore()
	ledgerService, err := ledger.NewService(ledgerStore, utcNow, ledger.WithOperationLogger(observer))
	if err != nil {
		return fmt.Errorf("ledger service init: %w", err)
	}

	interviewService, err := interview.NewService(interview.ServiceDependencies{
		Transactions: gormstore.NewTxManager(db),
		Topics:       gormstore.NewTopicRepository(db),
		TopicsTx:     gormstore.NewTopicRepository(db),
		Interviews:   gormstore.NewInterviewRepository(db),
		Answers:      gormstore.NewAnswerRepository(db),
	}, interview.WithEventLogger(observer))
	if err != nil {
		return fmt.Errorf("interview service init: %w", err)
	}
	workflow, err := interview.NewSelectTopicWorkflow(interview.WorkflowDependencies{
		Transactions: gormstore.NewTxManager(db),
		Topics:       gormstore.NewTopicRepository(db),
		TopicsTx:     gormstore.NewTopicRepository(db),
		InterviewsTx: gormstore.NewInterviewRepository(db),
		AnswersTx:    gormstore.NewAnswerRepository(db),
	}, interview.WithEventLogger(observer))
	if err != nil {
		return fmt.Errorf("workflow init: %w", err)
	}

	guardStore, closeGuardStore, err := openGuardStore(cfg)
	if err != nil {
		return err
	}
	defer closeGuardStore()
	guard, err := idempotency.NewGuard(guardStore, idempotency.WithDecisionRecorder(observer))
	if err != nil {
		return fmt.Errorf("idempotency guard init: %w", err)
	}

	authenticate, err := httpapi.SessionMiddleware([]byte(cfg.SessionSigningKey), cfg.SessionIssuer, cfg.SessionCookieName)
	if err != nil {
		return fmt.Errorf("session validator init: %w", err)
	}
	router, err := httpapi.NewRouter(httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		WelcomeCredits: ledger.Credits(welcomeCredits(cfg)),
	}, httpapi.Dependencies{
		Ledger:     ledgerService,
		Interviews: interviewService,
		Workflow:   workflow,
		Guard:      guard,
		Logger:     logger.Named("http"),
		Metrics:    metrics,
		Gatherer:   registry,
	}, authenticate)
	if err != nil {
		return err
	}

	logger.Info("starting interviewd",
		zap.String("ledger_backend", cfg.LedgerBackend),
		zap.String("idempotency_backend", cfg.IdempotencyBackend),
	)
	return httpapi.Run(ctx, cfg.ListenAddr, router, logger)
}

func openSchema(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gorm.DB, func() error, error) {
	db, cleanup, driver, err := database.Open(ctx, cfg.DatabaseURL, observability.NewGormLogger(logger.Named("gorm")))
	if err != nil {
		return nil, nil, fmt.Errorf("database open: %w", err)
	}
	if err := database.PrepareSchema(db, driver); err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return db, cleanup, nil
}

func openLedgerStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (ledger.Store, func(), error) {
	if cfg.LedgerBackend != config.LedgerBackendPgx {
		return gormstore.NewLedgerStore(db), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("pgx pool init: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pgx ping: %w", err)
	}
	return pgstore.New(pool), pool.Close, nil
}

func openGuardStore(cfg *config.Config) (idempotency.Store, func(), error) {
	switch cfg.IdempotencyBackend {
	case config.IdempotencyBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store, err := idempotency.NewRedisStore(client, cfg.IdempotencyTTL)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	case config.IdempotencyBackendLocal:
		return idempotency.NewMemoryStore(cfg.IdempotencyTTL, cfg.IdempotencyCapacity), func() {}, nil
	default:
		return nil, nil, errors.New("unknown idempotency backend " + cfg.IdempotencyBackend)
	}
}

func welcomeCredits(cfg *config.Config) int64 {
	if cfg.WelcomeCredits == 0 {
		return config.DefaultWelcomeCredits()
	}
	return cfg.WelcomeCredits
}

func utcNow() time.Time {
	return time.Now().UTC()
}
