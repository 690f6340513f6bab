package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mist/datasteward/internal/config"
	"github.com/mist/datasteward/internal/domain/admin"
	"github.com/mist/datasteward/internal/domain/billing"
	"github.com/mist/datasteward/internal/domain/dataset"
	"github.com/mist/datasteward/internal/domain/export"
	"github.com/mist/datasteward/internal/domain/identity"
	"github.com/mist/datasteward/internal/domain/marketplace"
	"github.com/mist/datasteward/internal/normalize"
	"github.com/mist/datasteward/internal/platform/auth"
	"github.com/mist/datasteward/internal/platform/blobstore"
	"github.com/mist/datasteward/internal/platform/db"
	"github.com/mist/datasteward/internal/platform/jobs"
	"github.com/mist/datasteward/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mist-server",
		Short: "Mist Data Steward API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	// Admin accounts cannot be self-registered through the API, so the only
	// way to provision one is this command.
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			if email == "" || password == "" || name == "" {
				return fmt.Errorf("--email, --password, and --name are required")
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			users := identity.NewUserRepo(pool)
			u := &identity.User{
				Email:        email,
				PasswordHash: hash,
				FullName:     name,
				Role:         identity.RoleAdmin,
			}
			if err := users.Create(ctx, u); err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}

			fmt.Printf("Administrator %s created (%s).\n", email, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Administrator email address")
	createCmd.Flags().String("password", "", "Administrator password")
	createCmd.Flags().String("name", "", "Administrator full name")
	cmd.AddCommand(createCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// File storage
	store, err := blobstore.NewFSStore(cfg.DataDir, cfg.MaxFileSizeBytes())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize file storage")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.Sanitize())
	e.Use(middleware.BodyLimit("1M", fmt.Sprintf("%dM", cfg.MaxFileSizeMB)))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	auditRecorder := middleware.AuditRecorderFunc(func(entry middleware.AuditEntry) error {
		_, err := pool.Exec(context.Background(), `
			INSERT INTO audit_logs (user_email, user_role, resource, dataset_id, action,
				ip_address, user_agent, path, method, request_id, status_code, created_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12)`,
			entry.UserEmail, entry.UserRole, entry.Resource, entry.DatasetID, entry.Action,
			entry.IPAddress, entry.UserAgent, entry.Path, entry.Method, entry.RequestID,
			entry.StatusCode, entry.Timestamp)
		return err
	})

	// Auth plumbing
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenExpireMin)
	loginLimiter := auth.NewLoginLimiter(cfg.LoginRateLimit, time.Minute)

	// Repositories
	userRepo := identity.NewUserRepo(pool)
	datasetRepo := dataset.NewDatasetRepo(pool)
	mappingRepo := dataset.NewMappingRepo(pool)
	exportRepo := export.NewExportRepo(pool)
	recordRepo := billing.NewRecordRepo(pool)
	invoiceRepo := billing.NewInvoiceRepo(pool)
	listingRepo := marketplace.NewListingRepo(pool)

	// Services
	identitySvc := identity.NewService(userRepo, issuer, loginLimiter)
	datasetSvc := dataset.NewService(datasetRepo, mappingRepo, store, normalize.New())
	exportSvc := export.NewService(exportRepo, datasetSvc, store)
	billingSvc := billing.NewService(recordRepo, invoiceRepo)
	marketSvc := marketplace.NewService(listingRepo, recordRepo, userRepo, pool, cfg.CommissionRate)
	adminSvc := admin.NewService(userRepo, datasetRepo, recordRepo)

	// API groups
	api := e.Group("/api")
	api.Use(middleware.Audit(logger, auditRecorder))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	authed := api.Group("", auth.JWTMiddleware(issuer))

	// Handlers
	identity.NewHandler(identitySvc, issuer).RegisterRoutes(api)
	dataset.NewHandler(datasetSvc, identitySvc).RegisterRoutes(authed)
	export.NewHandler(exportSvc, identitySvc).RegisterRoutes(authed)
	billing.NewHandler(billingSvc, identitySvc).RegisterRoutes(authed)
	marketplace.NewHandler(marketSvc, identitySvc).RegisterRoutes(authed)
	admin.NewHandler(adminSvc, identitySvc).RegisterRoutes(authed)

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// Background jobs: normalization pickup, export cleanup, monthly invoices
	dispatcher := jobs.NewDispatcher(datasetRepo, datasetSvc, exportSvc, billingSvc, logger)
	jobsCtx, jobsCancel := context.WithCancel(ctx)
	defer jobsCancel()
	go dispatcher.Start(jobsCtx)

	// Serve with graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-sigCtx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
