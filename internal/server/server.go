package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hospms/apiserver/config"
	"github.com/hospms/apiserver/internal/db"
	"github.com/hospms/apiserver/internal/handlers"
	"github.com/hospms/apiserver/internal/mailer"
	"github.com/hospms/apiserver/internal/services"
	"github.com/hospms/apiserver/internal/storage"
	"github.com/hospms/apiserver/internal/store"
	"github.com/hospms/apiserver/internal/token"
	"github.com/hospms/apiserver/types"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	log        zerolog.Logger
}

// New constructs a Server with all routes and dependencies wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := newLogger(cfg)

	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objectStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	doctorRepo := store.NewDoctorRepository(dbConn)
	patientRepo := store.NewPatientRepository(dbConn)
	visitRepo := store.NewVisitRepository(dbConn)
	prescriptionRepo := store.NewPrescriptionRepository(dbConn)
	labReportRepo := store.NewLabReportRepository(dbConn)
	billRepo := store.NewBillRepository(dbConn)
	reportRepo := store.NewReportRepository(dbConn)

	issuer := token.NewIssuer([]byte(jwtSecret), cfg.JWT.Expiry)
	mail := mailer.NewSMTPMailer(cfg.SMTP)

	authService := services.NewAuthService(userRepo, doctorRepo, mail, issuer, log)
	userService := services.NewUserService(userRepo)
	doctorService := services.NewDoctorService(doctorRepo)
	visitService := services.NewVisitService(visitRepo)
	prescriptionService := services.NewPrescriptionService(prescriptionRepo)
	billingService := services.NewBillingService(billRepo)
	patientService := services.NewPatientService(patientRepo, visitService, prescriptionService, billingService)
	labReportService := services.NewLabReportService(labReportRepo, objectStorage, log)
	reportService := services.NewReportService(reportRepo)

	requireAuth := handlers.RequireAuth(issuer)
	verifyStatus := handlers.VerifyUserStatus(userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)

	router.Route("/api", func(api chi.Router) {
		api.Get("/health", handlers.Healthz)

		api.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authService, requireAuth)
		})

		api.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, verifyStatus, handlers.RequireRoles(types.RoleAdmin))
			handlers.AdminRouter(r, userService, reportService)
		})

		api.Route("/reception", func(r chi.Router) {
			r.Use(requireAuth, verifyStatus, handlers.RequireRoles(types.RoleReceptionist, types.RoleAdmin))
			handlers.ReceptionRouter(r, patientService, visitService, doctorService, billingService)
		})

		api.Route("/doctor", func(r chi.Router) {
			r.Use(requireAuth, verifyStatus, handlers.RequireRoles(types.RoleDoctor, types.RoleAdmin))
			handlers.DoctorRouter(r, doctorService, visitService, prescriptionService, labReportService)
		})

		api.Route("/lab", func(r chi.Router) {
			r.Use(requireAuth, verifyStatus, handlers.RequireRoles(types.RoleLab, types.RoleAdmin))
			handlers.LabRouter(r, patientService, labReportService)
		})

		api.Route("/files", func(r chi.Router) {
			r.Use(requireAuth, verifyStatus)
			handlers.FilesRouter(r, labReportService)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		log:        log,
	}, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

// openStorage builds the configured object-storage backend. A nil
// result with nil error means files are disabled.
func openStorage(ctx context.Context, cfg config.Config, log zerolog.Logger) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "":
		log.Warn().Msg("no storage backend configured, file endpoints disabled")
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, fmt.Errorf("init minio storage: %w", err)
		}
		backend = client
	case "s3":
		client, err := storage.NewS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	st := storage.NewStorage(backend)
	if err := st.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure storage bucket: %w", err)
	}
	return st, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting http server")
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
