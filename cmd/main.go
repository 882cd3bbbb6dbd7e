package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "classifier-service/docs"
	"classifier-service/internal/config"
	"classifier-service/internal/conversion"
	"classifier-service/internal/fingerprint"
	"classifier-service/internal/handlers"
	"classifier-service/internal/inference"
	"classifier-service/internal/models"
	"classifier-service/internal/repository"
	"classifier-service/internal/services"
	"classifier-service/internal/services/caches"
	"classifier-service/internal/storage"
	"classifier-service/internal/utils"
	"classifier-service/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// @title Image Classifier Service API
// @version 1.0
// @description HTTP service that classifies uploaded images with an ONNX model, with validation, content-addressed caching and batch archive prediction.
// @host localhost:8000
// @BasePath /
func main() {
	cfg := InitConfig()
	engine := InitEngine(cfg)

	m := utils.NewMetrics(prometheus.DefaultRegisterer)
	store := caches.NewLRUStore(cfg.ModelCacheSize)
	predictionCache := services.NewPredictionCache(store, cfg.EnableModelCache)
	stats := services.NewStatsService(cfg.EnableModelCache, cfg.ModelCacheSize)

	predictionService := services.NewPredictionService(
		validation.NewImageValidator(cfg.MaxContentLength),
		fingerprint.NewHasher(),
		conversion.NewConverter(cfg.TargetImageSize),
		engine,
		predictionCache,
		stats,
		m,
	)

	if cfg.EnableAuditLog {
		db := ConnectDatabase(cfg)
		MigrateDatabase(db)
		predictionService.AuditRepo = repository.NewPredictionRepository(db)
		log.Println("Prediction audit log enabled")
	}
	if cfg.EnableUploadArchive {
		predictionService.Archive = InitUploadArchive(cfg)
		log.Println("Upload archive enabled")
	}

	batchService := services.NewBatchService(predictionService, cfg.BatchMaxWorkers, m)

	WarmupModel(engine, stats, m)

	app := fiber.New(fiber.Config{
		// Headroom over the per-file cap so multipart framing does not trip
		// the transport limit before the handler can return a precise error.
		BodyLimit:    int(cfg.MaxContentLength) + 1024*1024,
		ErrorHandler: newErrorHandler(cfg.MaxContentLength),
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowMethods: "GET,POST,DELETE,OPTIONS",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/health") || c.Path() == "/metrics"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":    false,
				"error":      "rate limit exceeded, retry later",
				"error_type": "RateLimitError",
			})
		},
	}))

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Set up prediction, cache and model introspection routes
	predictHandler := handlers.NewInstrumentedPredictHandler(predictionService, batchService, m, cfg)
	cacheHandler := handlers.NewCacheHandler(predictionCache, stats)
	modelHandler := handlers.NewModelHandler(engine, stats, predictionCache)
	healthHandler := handlers.NewHealthHandler(engine, stats, cfg)

	app.Post("/predict", predictHandler.Predict)
	app.Post("/predict/batch", predictHandler.BatchPredict)

	app.Get("/model/cache", cacheHandler.GetCacheInfo)
	app.Delete("/model/cache", cacheHandler.ClearCache)
	app.Get("/model/stats", modelHandler.GetModelStats)
	app.Get("/model/info", modelHandler.GetModelInfo)

	app.Get("/health", healthHandler.Health)
	app.Get("/health/live", healthHandler.Live)
	app.Get("/health/ready", healthHandler.Ready)

	app.Get("/swagger/*", swagger.HandlerDefault)

	routes := app.GetRoutes()
	log.Println("Registered routes:")
	for _, r := range routes {
		log.Printf("  %s %s\n", r.Method, r.Path)
	}

	// Start the Fiber server
	port := cfg.AppPort
	if port == "" {
		port = "8000"
		log.Printf("Defaulting to port %s", port)
	}
	log.Printf("Server listening on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

// InitEngine loads the ONNX model. A load failure is not fatal: the service
// starts degraded and answers 503 on prediction routes until restarted with
// a working model.
func InitEngine(cfg *config.Config) *inference.ONNXEngine {
	engine := inference.NewONNXEngine(cfg)
	if err := engine.Load(); err != nil {
		log.Printf("WARNING: model load failed, starting degraded: %v", err)
	}
	return engine
}

func ConnectDatabase(cfg *config.Config) *gorm.DB {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	return db
}

func MigrateDatabase(db *gorm.DB) {
	err := db.AutoMigrate(&models.PredictionRecord{})
	if err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
}

func InitUploadArchive(cfg *config.Config) *storage.UploadArchive {
	minioClient, err := storage.NewMinioClient(cfg)
	if err != nil {
		log.Fatalf("MinIO client initialization failed: %v", err)
	}
	return storage.NewUploadArchive(minioClient, cfg.MinioBucket)
}

// WarmupModel runs one synthetic inference so the first request does not pay
// session initialization costs.
func WarmupModel(engine inference.Engine, stats *services.StatsService, m *utils.Metrics) {
	if !engine.Ready() {
		log.Println("WARNING: model not loaded, skipping warmup")
		return
	}
	if err := engine.Warmup(); err != nil {
		log.Printf("WARNING: model warmup failed: %v", err)
		return
	}
	stats.MarkWarmupCompleted()
	m.SetWarmupCompleted(true)
}

// newErrorHandler renders errors that escape route handlers with the same
// envelope the handlers use.
func newErrorHandler(maxBytes int64) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errorType := "InternalServerError"
		message := err.Error()

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			switch code {
			case fiber.StatusRequestEntityTooLarge:
				errorType = "FileTooLargeError"
				message = fmt.Sprintf("request body exceeds the %d byte upload limit", maxBytes)
			case fiber.StatusNotFound:
				errorType = "NotFoundError"
			case fiber.StatusMethodNotAllowed:
				errorType = "MethodNotAllowedError"
			case fiber.StatusTooManyRequests:
				errorType = "RateLimitError"
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"success":    false,
			"error":      message,
			"error_type": errorType,
		})
	}
}
