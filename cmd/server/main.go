package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tunegrid/api/internal/catalog"
	"github.com/tunegrid/api/internal/client"
	"github.com/tunegrid/api/internal/config"
	"github.com/tunegrid/api/internal/handler"
	"github.com/tunegrid/api/internal/middleware"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/internal/store"
	"github.com/tunegrid/api/internal/worker"
	ws "github.com/tunegrid/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Open the pipeline database
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	sunoClient := client.NewSunoClient(&cfg.Music)
	imageClient := client.NewImageClient(&cfg.Image)
	chatClient := client.NewChatClient(&cfg.Text)
	assetFetcher := client.NewHTTPAssetFetcher()

	// Provider interfaces stay nil when unconfigured so the pipeline
	// can degrade instead of submitting doomed requests.
	var musicGen client.MusicGenerator
	if sunoClient.IsConfigured() {
		musicGen = sunoClient
	} else {
		log.Println("Info: music provider not configured, scheduled runs will be skipped")
	}
	var imageGen client.ImageGenerator
	if imageClient.IsConfigured() {
		imageGen = imageClient
	}
	var textCompleter client.TextCompleter
	if chatClient.IsConfigured() {
		textCompleter = chatClient
	}

	// Initialize R2 client (optional - continues if not configured)
	var storageClient client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			storageClient = r2Client
		}
	} else {
		log.Println("Info: R2 storage not configured, deploying provider URLs directly")
	}

	// Catalog shares the pipeline database
	cat := catalog.NewSQLiteCatalog(st.DB())

	// Initialize services
	scheduleService := service.NewScheduleService(st)
	titleService := service.NewTitlePoolService(st, textCompleter)
	taskService := service.NewTaskService(st, hub)
	generationService := service.NewGenerationService(st, titleService, musicGen, imageGen, storageClient, cfg.Music.ModelVersion)
	deployService := service.NewDeployService(st, cat, assetFetcher, storageClient, taskService, cfg.Pipeline.FallbackBitrate, hub)

	// Initialize handlers
	scheduleHandler := handler.NewScheduleHandler(scheduleService, generationService, validate)
	taskHandler := handler.NewTaskHandler(taskService, validate)
	deployHandler := handler.NewDeployHandler(deployService, validate)
	titleHandler := handler.NewTitleHandler(titleService, validate)
	callbackHandler := handler.NewCallbackHandler()

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"music":   sunoClient.IsConfigured(),
				"image":   imageClient.IsConfigured(),
				"text":    chatClient.IsConfigured(),
				"storage": storageClient != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api")

	// Schedule routes
	schedules := api.Group("/schedules")
	schedules.Post("/", scheduleHandler.Create)
	schedules.Get("/", scheduleHandler.List)
	schedules.Get("/:id", scheduleHandler.Get)
	schedules.Patch("/:id", scheduleHandler.Update)
	schedules.Delete("/:id", scheduleHandler.Delete)
	schedules.Post("/:id/run", rateLimiter.RunLimit(cfg.RateLimit.RunPerHour), scheduleHandler.RunNow)

	// Ad-hoc run
	api.Post("/runs", rateLimiter.RunLimit(cfg.RateLimit.RunPerHour), scheduleHandler.RunAdhoc)

	// Task routes
	tasks := api.Group("/tasks")
	tasks.Get("/", taskHandler.List)
	tasks.Get("/summary", taskHandler.Summary)
	tasks.Get("/:id", taskHandler.Get)
	tasks.Post("/:id/retry", taskHandler.Retry)
	tasks.Post("/:id/cancel", taskHandler.Cancel)
	tasks.Post("/purge", taskHandler.Purge)

	// Deploy routes
	api.Post("/deploy", rateLimiter.DeployLimit(cfg.RateLimit.DeployPerHour), deployHandler.Deploy)

	// Title pool routes
	titles := api.Group("/titles")
	titles.Post("/", titleHandler.Append)
	titles.Post("/generate", rateLimiter.TitleLimit(cfg.RateLimit.TitlesPerMin), titleHandler.Generate)
	titles.Get("/:category", titleHandler.Remaining)
	titles.Post("/:category/reset", titleHandler.Reset)

	// Provider callbacks
	api.Post("/callbacks/music", callbackHandler.Music)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tasks/:taskId", websocket.New(func(c *websocket.Conn) {
		taskID := c.Params("taskId")
		hub.HandleConnection(c, taskID)
	}))

	// Start Asynq worker server and periodic scheduler
	go startWorkerServer(cfg, st, scheduleService, generationService, taskService, deployService, musicGen)
	go startScheduler(cfg)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	st *store.Store,
	scheduleService *service.ScheduleService,
	generationService *service.GenerationService,
	taskService *service.TaskService,
	deployService *service.DeployService,
	musicGen client.MusicGenerator,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			LogLevel: asynqLogLevel,
		},
	)

	lease := time.Duration(cfg.Pipeline.ClaimLeaseSec) * time.Second
	scheduleWorker := worker.NewScheduleWorker(st, scheduleService, generationService, lease)
	pollWorker := worker.NewPollWorker(st, musicGen, taskService, deployService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeScheduleTick, scheduleWorker.ProcessTask)
	mux.HandleFunc(worker.TaskTypePollTasks, pollWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func startScheduler(cfg *config.Config) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		&asynq.SchedulerOpts{
			Location: time.Local,
		},
	)

	if _, err := scheduler.Register(cfg.Pipeline.TickSpec, worker.NewScheduleTickTask()); err != nil {
		log.Fatalf("Failed to register schedule tick: %v", err)
	}
	if _, err := scheduler.Register(cfg.Pipeline.PollSpec, worker.NewPollTasksTask()); err != nil {
		log.Fatalf("Failed to register poll task: %v", err)
	}

	if err := scheduler.Run(); err != nil {
		log.Printf("Asynq scheduler error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
