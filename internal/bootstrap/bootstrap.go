package bootstrap

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/eralpk/studentreg/internal/app/controllers"
	appRoutes "github.com/eralpk/studentreg/internal/app/routes"
	"github.com/eralpk/studentreg/internal/config"
	"github.com/eralpk/studentreg/internal/db"
	"github.com/eralpk/studentreg/internal/middleware"
	"github.com/eralpk/studentreg/internal/pkg/logger"
	"github.com/eralpk/studentreg/internal/schema"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	StudentController    *appControllers.StudentController
	CourseController     *appControllers.CourseController
	EnrollmentController *appControllers.EnrollmentController
	StatsController      *appControllers.StatsController
	Logger               zerolog.Logger
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

// SetupDatabase establishes the database connection and ensures the schema.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := schema.Ensure(ctx, dbPool)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to ensure schema")
		dbPool.Close()
		return nil, err
	}
	if result.Created {
		lgr.Info().Msg("Schema created and seed data inserted")
	} else {
		lgr.Info().Msg("Schema already exists, skipping creation")
	}

	return dbPool, nil
}

// BuildDependencies initializes the application controllers.
func BuildDependencies(dbPool *pgxpool.Pool, lgr zerolog.Logger) *Dependencies {
	return &Dependencies{
		StudentController:    appControllers.NewStudentController(dbPool),
		CourseController:     appControllers.NewCourseController(dbPool),
		EnrollmentController: appControllers.NewEnrollmentController(dbPool),
		StatsController:      appControllers.NewStatsController(dbPool),
		Logger:               lgr,
	}
}

// SetupRouter builds the gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	appRoutes.SetupRouter(
		router,
		deps.StudentController,
		deps.CourseController,
		deps.EnrollmentController,
		deps.StatsController,
	)

	return router
}
