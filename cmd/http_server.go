package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safebank/banking/internal"
	"github.com/safebank/banking/internal/account"
	accountPostgres "github.com/safebank/banking/internal/account/postgres"
	"github.com/safebank/banking/internal/audit"
	auditPostgres "github.com/safebank/banking/internal/audit/postgres"
	"github.com/safebank/banking/internal/auth"
	authPostgres "github.com/safebank/banking/internal/auth/postgres"
	"github.com/safebank/banking/internal/core/events"
	"github.com/safebank/banking/internal/support"
	supportPostgres "github.com/safebank/banking/internal/support/postgres"
	"github.com/safebank/banking/internal/transaction"
	transactionPostgres "github.com/safebank/banking/internal/transaction/postgres"
	"github.com/safebank/banking/internal/transport/rest"
	"github.com/safebank/banking/internal/user"
	userPostgres "github.com/safebank/banking/internal/user/postgres"
	"github.com/safebank/banking/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	RBAC     *auth.RBACAuthorization
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.RBAC, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// GORM shares the pgx connection pool the health check pings.
	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	privateKey, err := config.Security.GetPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt private key: %w", err)
	}
	publicKey, err := config.Security.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt public key: %w", err)
	}

	bus := events.NewEventBus(log)

	auditService := audit.NewService(auditPostgres.NewAuditRepository(gormDB), bus, log)
	securityService := audit.NewSecurityService(auditPostgres.NewSecurityRepository(gormDB), bus, config.Ledger.AlertThreshold(), log)

	tokenGen := auth.NewJWTTokenGenerator(
		privateKey,
		publicKey,
		config.Security.AccessTokenDuration,
		config.Security.TokenIssuer,
		config.Security.TokenAudience,
	)
	authService := auth.NewService(authPostgres.NewRepository(gormDB), tokenGen, auditService, log, config.Security.BCryptCost)

	engine := auth.NewEngine()
	rbac := auth.NewRBACAuthorization(engine, log)

	accountRepo := accountPostgres.NewAccountRepository(gormDB, config.Ledger.MutationMaxRetries)
	accountService := account.NewService(accountRepo, engine, auditService, log)

	transactionService := transaction.NewService(
		accountRepo,
		transactionPostgres.NewTransactionRepository(gormDB),
		engine,
		auditService,
		bus,
		log,
		config.Ledger.MaxAmount(),
	)

	userService := user.NewService(userPostgres.NewUserRepository(gormDB), authService, engine, auditService, log)

	supportService := support.NewService(supportPostgres.NewTicketRepository(gormDB), engine, auditService, log)

	auditHandler := audit.NewHandler(auditService, securityService)
	auditHandler.CallerID = func(ctx context.Context) (int64, bool) {
		u, ok := auth.UserFromContext(ctx)
		if !ok {
			return 0, false
		}
		return u.ID, true
	}

	handlers := rest.Handlers{
		Auth:        auth.NewHandler(authService),
		User:        user.NewHandler(userService),
		Account:     account.NewHandler(accountService),
		Transaction: transaction.NewHandler(transactionService),
		Audit:       auditHandler,
		Support:     support.NewHandler(supportService),
	}

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   chi.NewRouter(),
		Handlers: handlers,
		RBAC:     rbac,
		Logger:   log,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
