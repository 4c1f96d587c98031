package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/setforge/setforge/internal/config"
	"github.com/setforge/setforge/internal/domain"
	"github.com/setforge/setforge/internal/handler"
	"github.com/setforge/setforge/internal/middleware"
	"github.com/setforge/setforge/internal/repository"
	"github.com/setforge/setforge/internal/service"
	"github.com/setforge/setforge/internal/telemetry"
	"go.mongodb.org/mongo-driver/mongo"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	AuthClient  service.FirebaseAuthClient
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	// Initialize repositories
	historyRepo := repository.NewMongoHistoryRepository(deps.MongoDB)
	userRepo := repository.NewMongoUserRepository(deps.MongoDB)
	jobStore := repository.NewRedisJobStore(deps.RedisClient)

	var fileRepo domain.FileRepository
	if deps.Config.S3.Endpoint != "" {
		s3Repo, err := repository.NewSeaweedS3Repository(context.Background(), deps.Config.S3)
		if err != nil {
			log.Printf("Warning: source archive unavailable, imports will not be archived: %v", err)
		} else {
			fileRepo = s3Repo
		}
	}

	// Initialize services
	scenarios := service.NewScenarioConfig()
	detector := service.NewOpenRouterDetector(
		deps.Config.OpenRouter.APIKey,
		deps.Config.OpenRouter.Model,
		scenarios,
	)
	columnService := service.NewCSVColumnService(jobStore, deps.Config.Import.MappingJobTTL)
	flows := service.NewFlowManager(service.FlowDeps{
		Detector:     detector,
		FileDetector: columnService,
		Mapper:       columnService,
		History:      historyRepo,
		Files:        fileRepo,
		DeviceTag:    deps.Config.Import.DeviceTag,
	})
	authService := service.NewAuthService(userRepo, deps.AuthClient)
	tokenService := service.NewTokenService(deps.Config.JWT)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, tokenService)
	importHandler := handler.NewImportHandler(flows, scenarios, deps.Config.Server.MaxUploadSizeMB)
	workoutHandler := handler.NewWorkoutHandler(historyRepo, deps.Config.Import.DeviceTag)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SetForge API",
		BodyLimit:    int(deps.Config.Server.MaxUploadSizeMB * 1024 * 1024),
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	if deps.Config.OTEL.Enabled {
		app.Use(telemetry.FiberMiddleware())
	}

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "setforge",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	// Auth endpoints (public)
	auth := v1.Group("/auth")
	auth.Post("/login", authHandler.LoginOrRegister)

	// Import pipeline, one flow per authenticated user
	imports := v1.Group("/import")
	imports.Use(middleware.VerifySetForgeToken(deps.Config.JWT.Secret))

	imports.Get("/", importHandler.GetState)
	imports.Post("/urls", importHandler.AddURLs)
	imports.Post("/media", importHandler.AddMedia)
	imports.Post("/spreadsheets", importHandler.AddSpreadsheets)
	imports.Delete("/queue/:id", importHandler.RemoveQueueItem)
	imports.Delete("/queue", importHandler.ClearQueue)
	imports.Post("/detect", importHandler.Detect)
	imports.Post("/mappings", importHandler.CompleteMapping)
	imports.Post("/retry/:queueId", importHandler.Retry)
	imports.Delete("/results/:queueId", importHandler.RemoveResult)
	imports.Post("/reset", importHandler.Reset)

	// Save is retry-safe behind the idempotency key
	imports.Post("/save",
		middleware.IdempotencyMiddleware(deps.RedisClient, 24*time.Hour),
		importHandler.SaveAll,
	)

	picker := imports.Group("/block-picker")
	picker.Post("/", importHandler.OpenBlockPicker)
	picker.Delete("/", importHandler.CloseBlockPicker)
	picker.Post("/toggle", importHandler.ToggleBlock)
	picker.Post("/custom", importHandler.AddCustomBlock)
	picker.Post("/move", importHandler.MoveSelection)
	imports.Post("/combine", importHandler.Combine)

	imports.Get("/scenario", importHandler.GetScenario)
	imports.Put("/scenario", importHandler.SetScenario)

	// Saved workouts and the structure editor
	workouts := v1.Group("/workouts")
	workouts.Use(middleware.VerifySetForgeToken(deps.Config.JWT.Secret))

	workouts.Get("/", workoutHandler.List)
	workouts.Post("/", workoutHandler.Save)
	workouts.Get("/:id", workoutHandler.Get)
	workouts.Put("/:id", workoutHandler.Update)
	workouts.Delete("/:id", workoutHandler.Delete)
	workouts.Post("/:id/reorder", workoutHandler.Reorder)
	workouts.Post("/:id/edit", workoutHandler.Edit)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
