package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/coursereg/internal/app/controllers"
	appMigrations "github.com/yigit/coursereg/internal/app/migrations"
	"github.com/yigit/coursereg/internal/app/models"
	appRepos "github.com/yigit/coursereg/internal/app/repositories"
	appRoutes "github.com/yigit/coursereg/internal/app/routes"
	appServices "github.com/yigit/coursereg/internal/app/services"
	"github.com/yigit/coursereg/internal/config"
	"github.com/yigit/coursereg/internal/db"
	appMiddleware "github.com/yigit/coursereg/internal/middleware"
	pkgAuth "github.com/yigit/coursereg/internal/pkg/auth"
	"github.com/yigit/coursereg/internal/pkg/helpers"
	"github.com/yigit/coursereg/internal/pkg/logger"
	"github.com/yigit/coursereg/internal/pkg/validation"
	"github.com/yigit/coursereg/internal/seed"
	"github.com/yigit/coursereg/internal/telemetry"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService       appServices.AuthService
	CourseService     appServices.CourseService
	EnrollmentService appServices.EnrollmentService
	FavoriteService   appServices.FavoriteService
	CreditService     appServices.CreditService
	AccountService    appServices.AccountService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Repos          *appRepos.Repositories
	JWTService     *pkgAuth.JWTService
	Logger         zerolog.Logger
}

// ConfigPath returns the config file location, overridable with CONFIG_PATH.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join("configs", "config.yaml")
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(ConfigPath())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	lgr := logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.ToLower(cfg.Logging.Format) == "text",
		Service: cfg.Telemetry.ServiceName,
	})

	if err := validation.RegisterGinValidators(); err != nil {
		lgr.Error().Err(err).Msg("Failed to register request validators")
		return nil, zerolog.Logger{}, err
	}

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupTelemetry installs the trace exporter when enabled in config.
func SetupTelemetry(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (func(context.Context) error, error) {
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to set up tracing")
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint != "" {
		lgr.Info().Str("endpoint", cfg.Telemetry.OTLPEndpoint).Msg("Tracing enabled")
	}
	return shutdown, nil
}

// SetupDatabase establishes the database connection, runs migrations and
// seeds the default admin account.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		database.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	admin := seed.AdminAccount{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		RealName: cfg.Admin.RealName,
	}
	if err := seed.CreateDefaultAdmin(ctx, appRepos.NewUserRepository(dbPool), admin, lgr); err != nil {
		// The API still serves without an admin; log and carry on.
		lgr.Error().Err(err).Msg("Failed to create default admin, proceeding anyway...")
	}

	return dbPool, nil
}

// TermSettings derives the registration term from config.
func TermSettings(cfg *config.Config) appServices.TermSettings {
	return appServices.TermSettings{
		Current: models.Term{
			AcademicYear: cfg.Registration.AcademicYear,
			Semester:     cfg.Registration.Semester,
		},
		DefaultMaxStudents: cfg.Registration.DefaultMaxStudents,
	}
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	wireServices(deps, TermSettings(cfg))
	return deps, nil
}

// wireServices builds services and controllers on top of deps.Repos.
func wireServices(deps *Dependencies, term appServices.TermSettings) {
	repos, lgr := deps.Repos, deps.Logger

	deps.AuthService = appServices.NewAuthService(
		repos.UserRepository,
		repos.TokenRepository,
		deps.JWTService,
		appServices.BcryptHasher,
		lgr,
	)
	deps.CourseService = appServices.NewCourseService(
		repos.CourseRepository,
		repos.EnrollmentRepository,
		repos.FavoriteRepository,
		repos.UserRepository,
		term,
		lgr,
	)
	deps.EnrollmentService = appServices.NewEnrollmentService(repos.EnrollmentRepository, lgr)
	deps.FavoriteService = appServices.NewFavoriteService(
		repos.FavoriteRepository,
		repos.CourseRepository,
		repos.EnrollmentRepository,
		lgr,
	)
	deps.CreditService = appServices.NewCreditService(repos.UserRepository, repos.EnrollmentRepository, term, lgr)
	deps.AccountService = appServices.NewAccountService(
		repos.UserRepository,
		repos.CourseRepository,
		repos.EnrollmentRepository,
		lgr,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.Controllers = appRoutes.Controllers{
		Auth:   appControllers.NewAuthController(deps.AuthService, lgr),
		Course: appControllers.NewCourseController(deps.CourseService, lgr),
		Enrollment: appControllers.NewEnrollmentController(
			deps.EnrollmentService,
			deps.FavoriteService,
			deps.CreditService,
			lgr,
		),
		Account: appControllers.NewAccountController(deps.AccountService, lgr),
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, dbPool *pgxpool.Pool, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		appMiddleware.Recovery(lgr),
		appMiddleware.Tracing(),
		appMiddleware.RequestLogger(lgr),
	)

	appRoutes.SetupSwagger(router, cfg.Server.BasePath)
	appRoutes.SetupRouter(router, cfg.Server.BasePath, deps.Controllers, deps.AuthMiddleware)

	router.GET("/health", healthHandler(dbPool))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}

func healthHandler(dbPool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dbPool == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbPool.Ping(ctx); err != nil {
			logger.Ctx(c.Request.Context()).Warn().Err(err).Msg("Health check database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
