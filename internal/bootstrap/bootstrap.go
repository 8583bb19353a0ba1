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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/okaya/courseregistry/docs" // Import generated swagger docs
	appControllers "github.com/okaya/courseregistry/internal/app/controllers"
	appMigrations "github.com/okaya/courseregistry/internal/app/migrations"
	appRepos "github.com/okaya/courseregistry/internal/app/repositories"
	appRoutes "github.com/okaya/courseregistry/internal/app/routes"
	appServices "github.com/okaya/courseregistry/internal/app/services"
	"github.com/okaya/courseregistry/internal/config"
	"github.com/okaya/courseregistry/internal/db"
	appMiddleware "github.com/okaya/courseregistry/internal/middleware"
	pkgAuth "github.com/okaya/courseregistry/internal/pkg/auth"
	"github.com/okaya/courseregistry/internal/pkg/cache"
	"github.com/okaya/courseregistry/internal/pkg/email"
	"github.com/okaya/courseregistry/internal/pkg/helpers"
	"github.com/okaya/courseregistry/internal/pkg/logger"
	"github.com/okaya/courseregistry/internal/queue"
	"github.com/okaya/courseregistry/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService          *appServices.AuthService
	CourseService        *appServices.CourseService
	SectionService       *appServices.SectionService
	EnrollmentService    *appServices.EnrollmentService
	PromotionService     *appServices.PromotionService
	AuthController       *appControllers.AuthController
	CourseController     *appControllers.CourseController
	SectionController    *appControllers.SectionController
	EnrollmentController *appControllers.EnrollmentController
	AuthMiddleware       *appMiddleware.AuthMiddleware
	Repos                *appRepos.Repositories
	JWTService           *pkgAuth.JWTService
	SeatLedger           *appRepos.SeatLedger
	SeatCache            *cache.SeatCache
	Scheduler            appServices.PromotionScheduler
	// Consumer is non-nil only when an AMQP broker is configured; the
	// server runs it on a background goroutine.
	Consumer *queue.Consumer
	Logger   zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Pool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Pool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool)

	migrationsDir := filepath.Join("internal", "app", "migrations", "sql")
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}
	if err := migrator.MigrateFromDirectory(context.Background(), migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if cfg.Seed.DemoData {
		if err := seed.CreateDemoData(context.Background(), database.Pool, lgr); err != nil {
			// Missing demo data is not fatal.
			lgr.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
		}
	}

	return database, nil
}

// BuildDependencies initializes repositories, services, controllers and the
// async promotion plumbing.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	dbPool := database.Pool

	deps.Repos = appRepos.NewRepositories(dbPool)

	lockTimeout := helpers.ParseDuration(cfg.Enrollment.LockTimeout, 3*time.Second)
	deps.SeatLedger = appRepos.NewSeatLedger(database, lockTimeout)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Seat availability cache enabled")
	}
	seatCacheTTL := helpers.ParseDuration(cfg.Enrollment.SeatCacheTTL, 30*time.Second)
	deps.SeatCache = cache.NewSeatCache(redisClient, seatCacheTTL, lgr)

	notifier := email.NewSMTPNotifier(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
	}, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	deps.PromotionService = appServices.NewPromotionService(
		deps.SeatLedger,
		deps.Repos.WaitlistRepository,
		deps.Repos.SectionRepository,
		deps.Repos.UserRepository,
		notifier,
		deps.SeatCache,
	)

	// With a broker, promotion jobs survive process restarts; without one
	// they run on a goroutine in this process.
	if cfg.AMQP.URL != "" {
		deps.Scheduler = queue.NewPublisher(cfg.AMQP.URL, lgr)
		deps.Consumer = queue.NewConsumer(cfg.AMQP.URL, queue.Handlers{
			PromoteWaitlist: func(ctx context.Context, sectionID int64) error {
				_, err := deps.PromotionService.PromoteWaitlist(ctx, sectionID)
				return err
			},
			NotifyPositions: deps.PromotionService.NotifyPositions,
		}, lgr)
		lgr.Info().Msg("Waitlist promotion runs through the message broker")
	} else {
		deps.Scheduler = appServices.NewInProcessScheduler(deps.PromotionService)
		lgr.Warn().Msg("No AMQP URL configured, waitlist promotion runs in-process")
	}

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.JWTService,
	)
	deps.CourseService = appServices.NewCourseService(deps.Repos.CourseRepository)
	deps.SectionService = appServices.NewSectionService(
		deps.Repos.SectionRepository,
		deps.Repos.CourseRepository,
		deps.Repos.EnrollmentRepository,
		deps.Repos.WaitlistRepository,
		deps.SeatCache,
	)
	deps.EnrollmentService = appServices.NewEnrollmentService(
		deps.SeatLedger,
		deps.Repos.EnrollmentRepository,
		deps.Repos.WaitlistRepository,
		deps.Scheduler,
		deps.SeatCache,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService)
	deps.CourseController = appControllers.NewCourseController(deps.CourseService)
	deps.SectionController = appControllers.NewSectionController(deps.SectionService)
	deps.EnrollmentController = appControllers.NewEnrollmentController(deps.EnrollmentService)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	// Setup Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"), ginSwagger.DefaultModelsExpandDepth(1)))

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.CourseController,
		deps.SectionController,
		deps.EnrollmentController,
		deps.AuthMiddleware,
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
