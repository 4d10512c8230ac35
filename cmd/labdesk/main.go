package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aarogyam/labdesk/internal/config"
	"github.com/aarogyam/labdesk/internal/domain/account"
	"github.com/aarogyam/labdesk/internal/domain/catalog"
	"github.com/aarogyam/labdesk/internal/domain/patient"
	"github.com/aarogyam/labdesk/internal/domain/report"
	"github.com/aarogyam/labdesk/internal/platform/artifact"
	"github.com/aarogyam/labdesk/internal/platform/db"
	"github.com/aarogyam/labdesk/internal/platform/events"
	"github.com/aarogyam/labdesk/internal/platform/middleware"
	"github.com/aarogyam/labdesk/internal/platform/recordstore"
	"github.com/aarogyam/labdesk/internal/platform/reporting"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "labdesk",
		Short: "Clinic laboratory registration and reporting server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the lab API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationSource is the embedded schema unless dir overrides it.
func migrationSource(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return db.EmbeddedMigrations()
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

			count, err := db.NewMigrator(pool, migrationSource(dir)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the built-in set")
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

			statuses, err := db.NewMigrator(pool, migrationSource(dir)).Status(ctx)
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
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the built-in set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage lab operator accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

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

			svc := account.NewService(account.NewAccountRepoPG(pool))
			if _, err := svc.CreateAccount(ctx, username, password); err != nil {
				return err
			}
			fmt.Printf("Account %q created.\n", username)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Password")

	cmd.AddCommand(createCmd)
	return cmd
}

// newLogger writes JSON to stdout, or console output in development, and
// additionally to a rotated file when LOG_FILE is set.
func newLogger(cfg *config.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if cfg.LogFile != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
		})
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func newPublisher(ctx context.Context, cfg *config.Config) (artifact.Publisher, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}
	client, err := artifact.NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	return artifact.NewS3Publisher(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func newEvents(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger = newLogger(cfg)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store := recordstore.NewPGStore(pool)

	// Domain services
	catalogSvc := catalog.NewService(catalog.NewDoctorRepoStore(store), catalog.NewTestRepoStore(store))
	patientRepo := patient.NewRepoStore(store)
	patientSvc := patient.NewService(patientRepo, catalogSvc)
	accountSvc := account.NewService(account.NewAccountRepoPG(pool))

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("S3 publication disabled")
	}
	letterhead := ""
	if cfg.LetterheadEnabled() {
		letterhead = cfg.LetterheadPath
	} else {
		logger.Warn().Str("path", cfg.LetterheadPath).Msg("letterhead template not found; reports are plain only")
	}
	opts := report.Options{
		Dir:            cfg.ReportDir,
		LinkBase:       cfg.ReportLinkBase,
		LetterheadPath: letterhead,
		Lab:            report.LabInfo{Name: cfg.LabName, Address: cfg.LabAddress, Phone: cfg.LabPhone},
		Compress:       true,
		Publisher:      publisher,
		Events:         newEvents(cfg),
	}
	if cfg.OpenGenerated {
		opts.Opener = report.SystemOpener
	}
	generator := report.NewGenerator(opts, patientRepo, catalogSvc, patientRepo, logger)
	defer func() {
		if err := generator.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing report event publisher")
		}
	}()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("2M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", db.HealthHandler(pool, version))

	apiV1 := e.Group("/api/v1")
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	report.NewHandler(generator).RegisterRoutes(apiV1)
	account.NewHandler(accountSvc).RegisterRoutes(apiV1)
	reporting.NewHandler(&dashboardSource{patients: patientRepo, catalog: catalogSvc}).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// dashboardSource adapts the patient and catalog stores to reporting.Source.
type dashboardSource struct {
	patients patient.Repository
	catalog  *catalog.Service
}

func (s *dashboardSource) Visits(ctx context.Context) ([]reporting.Visit, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	visits := make([]reporting.Visit, 0, len(patients))
	for _, p := range patients {
		v := reporting.Visit{TotalBill: p.TotalBill, Reported: p.ReportGenerated}
		if t, ok := p.Registered(); ok {
			v.RegisteredOn = t
		}
		visits = append(visits, v)
	}
	return visits, nil
}

func (s *dashboardSource) TestCount(ctx context.Context) (int, error) {
	tests, err := s.catalog.ListTests(ctx)
	if err != nil {
		return 0, err
	}
	return len(tests), nil
}
