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

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/VivaainNg/finance-tracker/internal"
	"github.com/VivaainNg/finance-tracker/internal/auth"
	"github.com/VivaainNg/finance-tracker/internal/category"
	categoryPostgres "github.com/VivaainNg/finance-tracker/internal/category/postgres"
	"github.com/VivaainNg/finance-tracker/internal/charts"
	chartsPostgres "github.com/VivaainNg/finance-tracker/internal/charts/postgres"
	"github.com/VivaainNg/finance-tracker/internal/datatable"
	datatablePostgres "github.com/VivaainNg/finance-tracker/internal/datatable/postgres"
	"github.com/VivaainNg/finance-tracker/internal/transaction"
	transactionPostgres "github.com/VivaainNg/finance-tracker/internal/transaction/postgres"
	"github.com/VivaainNg/finance-tracker/internal/transport/rest"
	"github.com/VivaainNg/finance-tracker/internal/user"
	userPostgres "github.com/VivaainNg/finance-tracker/internal/user/postgres"
	"github.com/VivaainNg/finance-tracker/pkg/logger"
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
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	userRepo := userPostgres.NewUserRepository(deps.Gorm)
	authService := auth.NewService(userRepo, tokens, cfg.Security.BCryptCost, deps.Logger)
	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler()

	categoryRepo := categoryPostgres.NewCategoryRepository(deps.Gorm)
	categoryService := category.NewService(categoryRepo, deps.Logger)
	categoryHandler := category.NewHandler(categoryService)

	transactionRepo := transactionPostgres.NewTransactionRepository(deps.Gorm)
	categoryResolver := transactionPostgres.NewCategoryResolver(deps.Gorm)
	transactionService := transaction.NewService(transactionRepo, categoryResolver, deps.Logger)
	transactionHandler := transaction.NewHandler(transactionService)

	chartsService := charts.NewService(chartsPostgres.NewChartsRepository(deps.Gorm), deps.Logger)
	chartsHandler := charts.NewHandler(chartsService)

	registry := datatable.DefaultRegistry()
	store := datatablePostgres.NewStore(deps.Gorm)
	prefs := datatable.NewPreferences(datatablePostgres.NewPreferencesRepository(deps.Gorm))
	datatableService := datatable.NewService(registry, store, prefs, deps.Logger)
	datatableHandler := datatable.NewHandler(datatableService)

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		authHandler,
		userHandler,
		transactionHandler,
		categoryHandler,
		chartsHandler,
		datatableHandler,
		deps.Logger,
	)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: logger.LoggerWrapper(),
		DB:     db,
		Gorm:   gormDB,
		Router: chi.NewRouter(),
	}, nil
}

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

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers the ORM on top of the already-pooled connection so
// both share one pool.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
}
