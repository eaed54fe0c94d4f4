package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/isekhard17/academia-sekhard/common/logger"
	commonmetrics "github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/common/telemetry"
	"github.com/isekhard17/academia-sekhard/internal/attendance"
	"github.com/isekhard17/academia-sekhard/internal/auth"
	"github.com/isekhard17/academia-sekhard/internal/config"
	"github.com/isekhard17/academia-sekhard/internal/dashboard"
	"github.com/isekhard17/academia-sekhard/internal/db"
	"github.com/isekhard17/academia-sekhard/internal/evaluation"
	"github.com/isekhard17/academia-sekhard/internal/events"
	"github.com/isekhard17/academia-sekhard/internal/grade"
	"github.com/isekhard17/academia-sekhard/internal/health"
	"github.com/isekhard17/academia-sekhard/internal/identity"
	"github.com/isekhard17/academia-sekhard/internal/metrics"
	"github.com/isekhard17/academia-sekhard/internal/middleware"
	"github.com/isekhard17/academia-sekhard/internal/observability"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/student"
	"github.com/isekhard17/academia-sekhard/internal/subject"
	"github.com/isekhard17/academia-sekhard/internal/unit"
	"github.com/isekhard17/academia-sekhard/internal/user"
	"github.com/isekhard17/academia-sekhard/internal/validation"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const tokenPurgeInterval = time.Hour

type App struct {
	config  *config.Config
	router  chi.Router
	server  *http.Server
	logger  *slog.Logger
	db      *bun.DB
	emitter *events.Emitter
	store   identity.Store

	shutdownTelemetry telemetry.ShutdownFunc
	flushSentry       func()
	stopJanitor       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}
	slogLogger := logger.NewWithServiceContext(ServiceName, Version, logger.Options{Env: env})
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "commit", GitCommit, "built", BuildTime)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.LogLevel != "" {
		slogLogger = logger.NewWithServiceContext(ServiceName, Version, logger.Options{Env: cfg.Env, Level: cfg.LogLevel})
		slog.SetDefault(slogLogger)
	}
	slogLogger.Info("config loaded", "env", cfg.Env, "identity_provider", cfg.Identity.Provider, "events_driver", cfg.Events.Driver)

	app := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: slogLogger,
	}

	app.flushSentry, err = observability.InitSentry(cfg.Sentry.DSN, cfg.Env, Version)
	if err != nil {
		slogLogger.Warn("sentry disabled", "error", err)
	}

	app.shutdownTelemetry, err = telemetry.InitMeterProvider(ctx, telemetry.Config{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	}, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	infra, err := commonmetrics.New(ServiceName, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if err := infra.Health.Register(infra.Meter(), ServiceName, Version, cfg.Env); err != nil {
		return nil, fmt.Errorf("register health metrics: %w", err)
	}
	domain, err := metrics.New(infra.Meter())
	if err != nil {
		return nil, fmt.Errorf("init domain metrics: %w", err)
	}

	app.db, err = db.New(ctx, cfg.Database, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := infra.Database.ObservePool(infra.Meter(), app.db.DB); err != nil {
		slogLogger.Warn("pool metrics disabled", "error", err)
	}
	if err := db.RunMigrations(ctx, app.db, slogLogger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.Events, slogLogger)
	if err != nil {
		slogLogger.Warn("event publisher unavailable, events will be dropped", "driver", cfg.Events.Driver, "error", err)
		publisher = events.Noop{}
	}
	app.emitter = events.NewEmitter(publisher, infra, slogLogger,
		events.WithPublishTimeout(cfg.Events.PublishTimeout()))

	provider := app.identityProvider(infra)

	if err := app.routes(provider, infra, domain); err != nil {
		return nil, err
	}

	slogLogger.Info("application initialized successfully")
	return app, nil
}

func (a *App) identityProvider(infra *commonmetrics.Metrics) identity.Provider {
	cfg := a.config.Identity
	if cfg.Provider == config.ProviderLocal {
		a.store = identity.NewRepository(a.db, infra)
		return identity.NewLocal(a.store, identity.LocalConfig{
			Secret:          cfg.JWTSecret,
			Issuer:          cfg.Issuer,
			AccessTokenTTL:  time.Duration(cfg.AccessTokenTTL) * time.Second,
			RefreshTokenTTL: time.Duration(cfg.RefreshTokenTTL) * time.Hour,
		}, a.logger)
	}
	return identity.NewGoTrue(identity.GoTrueConfig{
		URL:        cfg.URL,
		AnonKey:    cfg.AnonKey,
		ServiceKey: cfg.ServiceKey,
		Timeout:    time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
	}, a.logger)
}

func (a *App) routes(provider identity.Provider, infra *commonmetrics.Metrics, domain *metrics.Metrics) error {
	validate := validation.New()

	userRepo := user.NewRepository(a.db, infra)
	subjectRepo := subject.NewRepository(a.db, infra)
	sectionRepo := section.NewRepository(a.db, infra)
	unitRepo := unit.NewRepository(a.db, infra)
	evaluationRepo := evaluation.NewRepository(a.db, infra)
	gradeRepo := grade.NewRepository(a.db, infra)
	attendanceRepo := attendance.NewRepository(a.db, infra)

	verifier := auth.NewVerifier(provider, userRepo)
	gate := auth.NewMiddleware(verifier, domain, a.logger)
	authHandler := auth.NewHandler(auth.NewService(provider, verifier, a.logger), validate, domain, a.logger)

	userHandler := user.NewHandler(user.NewService(userRepo, provider, a.emitter, a.logger), validate, a.logger)
	subjectHandler := subject.NewHandler(subject.NewService(subjectRepo, a.logger), validate, a.logger)
	sectionHandler := section.NewHandler(
		section.NewService(sectionRepo, userRepo, section.Options{EnforceCapacity: a.config.Sections.EnforceCapacity}, a.logger),
		validate, a.logger,
	)
	unitHandler := unit.NewHandler(unit.NewService(unitRepo, sectionRepo, a.logger), validate, a.logger)

	evaluationService := evaluation.NewService(evaluationRepo, sectionRepo, unitRepo,
		evaluation.Options{UpcomingLimit: a.config.Dashboard.UpcomingLimit}, a.logger)
	evaluationHandler := evaluation.NewHandler(evaluationService, validate, a.logger)

	gradeService := grade.NewService(gradeRepo, sectionRepo, evaluationRepo, a.emitter, domain, a.logger)
	gradeHandler := grade.NewHandler(gradeService, validate, a.logger)

	attendanceService := attendance.NewService(attendanceRepo, sectionRepo, a.emitter, domain, a.logger)
	attendanceHandler := attendance.NewHandler(attendanceService, validate, a.logger)

	studentHandler := student.NewHandler(student.NewService(gradeService, attendanceService, evaluationService, sectionRepo), a.logger)
	dashboardHandler := dashboard.NewHandler(
		dashboard.NewService(dashboard.NewRepository(a.db, infra), userRepo, subjectRepo, sectionRepo, a.logger),
		a.logger,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics, err := middleware.NewHTTPMetrics(registry)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	r := a.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(a.config.Server.CORSOrigins))
	r.Use(httpMetrics.Middleware)

	// Public: health, scrape endpoint, login and form validations.
	health.NewHandler(a.db, infra.Health, a.logger).RegisterRoutes(r)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", authHandler.RegisterRoutes)
		api.Route("/validations", subjectHandler.RegisterValidationRoutes)

		api.Group(func(p chi.Router) {
			p.Use(gate.Authenticate)

			p.Route("/secciones", func(r chi.Router) {
				r.Use(gate.RequireRoles())
				sectionHandler.RegisterRoutes(r)
				gradeHandler.RegisterSectionRoutes(r)
			})

			p.Group(func(staff chi.Router) {
				staff.Use(gate.RequireRoles(user.RoleAdmin, user.RoleTeacher))
				staff.Route("/asignaturas", func(r chi.Router) {
					subjectHandler.RegisterRoutes(r)
					unitHandler.RegisterSubjectRoutes(r)
				})
				staff.Route("/unidades", unitHandler.RegisterRoutes)
				staff.Route("/evaluaciones", evaluationHandler.RegisterRoutes)
				staff.Route("/notas", gradeHandler.RegisterRoutes)
				staff.Route("/asistencias", attendanceHandler.RegisterRoutes)
			})

			p.Route("/alumnos", func(r chi.Router) {
				r.Use(gate.RequireRoles(user.RoleStudent))
				studentHandler.RegisterRoutes(r)
			})

			p.Route("/profesores", func(r chi.Router) {
				r.Use(gate.RequireRoles(user.RoleAdmin))
				userHandler.RegisterTeacherRoutes(r)
				sectionHandler.RegisterTeacherRoutes(r)
			})

			p.Route("/admin", func(r chi.Router) {
				r.Use(gate.RequireRoles(user.RoleAdmin))
				userHandler.RegisterRoutes(r)
				dashboardHandler.RegisterRoutes(r)
			})
		})
	})

	return nil
}

// Handler returns the instrumented root handler.
func (a *App) Handler() http.Handler {
	return otelhttp.NewHandler(a.router, ServiceName)
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.Handler(),
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	if a.store != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopJanitor = cancel
		go a.purgeExpiredTokens(ctx)
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// purgeExpiredTokens drops expired refresh tokens of the local provider
// until ctx is cancelled.
func (a *App) purgeExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.store.DeleteExpiredTokens(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "failed to purge expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	if a.stopJanitor != nil {
		a.stopJanitor()
	}
	if err := a.emitter.Close(); err != nil {
		a.logger.Error("event publisher close error", "error", err)
	}
	db.Close(a.db)
	if a.shutdownTelemetry != nil {
		errs = append(errs, a.shutdownTelemetry(ctx))
	}
	if a.flushSentry != nil {
		a.flushSentry()
	}
	return errors.Join(errs...)
}
