package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/ward/internal/config"
	"github.com/ehr/ward/internal/domain/appointment"
	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/discharge"
	"github.com/ehr/ward/internal/domain/longstay"
	"github.com/ehr/ward/internal/domain/note"
	"github.com/ehr/ward/internal/domain/patient"
	"github.com/ehr/ward/internal/domain/specialty"
	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/internal/platform/blobstore"
	"github.com/ehr/ward/internal/platform/db"
	"github.com/ehr/ward/internal/platform/events"
	"github.com/ehr/ward/internal/platform/middleware"
	"github.com/ehr/ward/internal/platform/report"
	"github.com/ehr/ward/internal/platform/telemetry"
	"github.com/ehr/ward/internal/platform/websocket"
	"github.com/ehr/ward/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ward-server",
		Short: "Ward patient-management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ward API server",
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

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
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
	})

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate ward reports",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the long-stay report as PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			specialtyName, _ := cmd.Flags().GetString("specialty")
			doctorID, _ := cmd.Flags().GetInt64("doctor-id")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			out, _ := cmd.Flags().GetString("out")

			filter, err := buildFilter(specialtyName, doctorID, from, to)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			shifts, err := shiftClassifier(cfg)
			if err != nil {
				return err
			}
			archive, err := openArchive(ctx, cfg)
			if err != nil {
				return err
			}

			patients := patient.NewService(patient.NewRepo(pool), shifts)
			notes := note.NewService(note.NewRepo(pool))
			svc := longstay.NewService(patients, notes, report.NewPDFRenderer(), cfg.LongStayDays, logger)
			svc.SetArchive(archive)

			exp, err := svc.Export(ctx, filter)
			if err != nil {
				return err
			}
			if out == "" {
				out = exp.FileName
			}
			if err := os.WriteFile(out, exp.Data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			fmt.Printf("Wrote %s (%d patient(s))\n", out, exp.Patients)
			if exp.Stale {
				fmt.Println("WARNING: patient list could not be refreshed; report built from cached data.")
			}
			return nil
		},
	}
	exportCmd.Flags().String("specialty", "", "Only include admissions in this specialty")
	exportCmd.Flags().Int64("doctor-id", 0, "Only include admissions of this doctor")
	exportCmd.Flags().String("from", "", "Earliest admission date (YYYY-MM-DD)")
	exportCmd.Flags().String("to", "", "Latest admission date (YYYY-MM-DD)")
	exportCmd.Flags().String("out", "", "Output file (defaults to the generated report name)")
	cmd.AddCommand(exportCmd)

	return cmd
}

func buildFilter(specialtyName string, doctorID int64, from, to string) (longstay.Filter, error) {
	f := longstay.Filter{Specialty: specialtyName, DoctorID: doctorID}
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
		f.From = &t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, fmt.Errorf("--to must not be before --from")
	}
	return f, nil
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func shiftClassifier(cfg *config.Config) (*patient.ShiftClassifier, error) {
	weekend, err := cfg.Weekend()
	if err != nil {
		return nil, err
	}
	return patient.NewShiftClassifier(weekend...), nil
}

// openArchive selects where exported reports are kept.
func openArchive(ctx context.Context, cfg *config.Config) (blobstore.Archive, error) {
	switch cfg.ReportArchive {
	case "s3":
		return blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:   cfg.ReportBucket,
			Region:   cfg.AWSRegion,
			Endpoint: cfg.S3Endpoint,
		})
	case "memory":
		return blobstore.NewMemory(), nil
	default:
		return blobstore.Discard{}, nil
	}
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

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.BodyLimit("2M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Unauthenticated endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", telemetry.Handler(reg))

	// Auth middleware
	authMW := auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
	})
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware()
	}

	apiV1 := e.Group("/api/v1", authMW)

	// Live updates: navigation requests and workflow events fan out to
	// connected ward screens.
	hub := websocket.NewHub(logger)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	pubs := []events.Publisher{events.NewHubPublisher(hub)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kafkaPub.Close()
		pubs = append(pubs, kafkaPub)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
	} else {
		pubs = append(pubs, events.NewLogPublisher(logger))
	}
	emitter := events.NewEmitter(logger, metrics, pubs...)

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open report archive")
	}

	shifts, err := shiftClassifier(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid weekend days")
	}

	// Patients & admissions
	patientSvc := patient.NewService(patient.NewRepo(pool), shifts)
	patientSvc.SetEmitter(emitter)
	patientSvc.SetMetrics(metrics)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	// Consultations
	consultSvc := consultation.NewService(consultation.NewRepo(pool))
	consultSvc.SetMetrics(metrics)
	consultation.NewHandler(consultSvc).RegisterRoutes(apiV1)

	// Appointments
	apptSvc := appointment.NewService(appointment.NewRepo(pool))
	apptSvc.SetMetrics(metrics)
	appointment.NewHandler(apptSvc).RegisterRoutes(apiV1)

	// Clinical notes
	noteSvc := note.NewService(note.NewRepo(pool))
	noteSvc.SetMetrics(metrics)
	note.NewHandler(noteSvc).RegisterRoutes(apiV1)

	// Discharge & consultation completion
	dischargeSvc := discharge.NewService(discharge.NewRepo(pool), noteSvc, auth.Session{}, logger)
	dischargeSvc.SetEmitter(emitter)
	dischargeSvc.SetMetrics(metrics)
	dischargeSvc.SetRefreshers(patientSvc.FetchPatients, consultSvc.FetchConsultations)
	discharge.NewHandler(dischargeSvc).RegisterRoutes(apiV1)

	// Specialty board
	specialtySvc := specialty.NewService(patientSvc, consultSvc, apptSvc, shifts, events.NewHubNavigator(hub))
	specialty.NewHandler(specialtySvc).RegisterRoutes(apiV1)

	// Long-stay report
	longStaySvc := longstay.NewService(patientSvc, noteSvc, report.NewPDFRenderer(), cfg.LongStayDays, logger)
	longStaySvc.SetArchive(archive)
	longStaySvc.SetEmitter(emitter)
	longstay.NewHandler(longStaySvc).RegisterRoutes(apiV1)

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
