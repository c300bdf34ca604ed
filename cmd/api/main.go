package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/api/handlers"
	"github.com/inquiry-triage/backend/internal/cache/redis"
	"github.com/inquiry-triage/backend/internal/classify"
	"github.com/inquiry-triage/backend/internal/importer"
	"github.com/inquiry-triage/backend/internal/inquiry"
	"github.com/inquiry-triage/backend/internal/knowledge"
	"github.com/inquiry-triage/backend/internal/llm"
	"github.com/inquiry-triage/backend/internal/metrics"
	"github.com/inquiry-triage/backend/internal/middleware/ratelimit"
	"github.com/inquiry-triage/backend/internal/middleware/security"
	"github.com/inquiry-triage/backend/internal/middleware/validation"
	"github.com/inquiry-triage/backend/internal/pipeline"
	"github.com/inquiry-triage/backend/internal/retrieval"
	"github.com/inquiry-triage/backend/internal/storage/sqlite"
	"github.com/inquiry-triage/backend/pkg/config"
	appLogger "github.com/inquiry-triage/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Inquiry Triage API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Pipeline.CacheTTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer cacheClient.Close()
	}

	corpus := inquiry.NewCorpus(sqliteClient)
	retriever := retrieval.NewService(corpus, corpus, retrieval.Config{
		MaxSources:   cfg.Pipeline.MaxSources,
		MaxSelfHelp:  cfg.Pipeline.MaxSelfHelp,
		MaxSimilar:   cfg.Pipeline.MaxSimilar,
		HistoryLimit: cfg.Pipeline.HistoryLimit,
	})

	classifier := classify.New(cfg.Pipeline.DefaultDepartment)
	ruleEngine := pipeline.NewRuleEngine(classifier, retriever, cfg.Pipeline.MaxFollowups)

	var generative pipeline.Engine
	if cfg.AI.APIKey != "" {
		llmClient := llm.NewClient(
			cfg.AI.APIKey,
			cfg.AI.Model,
			cfg.AI.Temperature,
			cfg.AI.MaxTokens,
			cfg.AI.TimeoutSec,
		)
		generative = pipeline.NewGenerativeEngine(llmClient, ruleEngine, cfg.Pipeline.MaxFollowups)
	}

	generativeMode := func() bool { return generative != nil }
	engine := pipeline.NewSelector(ruleEngine, generative, generativeMode)

	inquiryService := inquiry.NewService(sqliteClient, engine, cacheClient)
	knowledgeService := knowledge.NewService(
		sqliteClient,
		cacheClient,
		knowledge.NewFetcher(time.Duration(cfg.Server.ReadTimeout)*time.Second),
	)
	importService := importer.NewService(inquiryService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer limiter.Stop()
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	stream := handlers.NewTriageStream()
	inquiryHandler := handlers.NewInquiryHandler(inquiryService, stream)
	answerHandler := handlers.NewAnswerHandler(inquiryService)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeService)
	aiHandler := handlers.NewAIHandler(engine, inquiryService)
	importHandler := handlers.NewImportHandler(importService, stream)
	auditHandler := handlers.NewAuditHandler(sqliteClient)

	api := app.Group("/api/v1")

	api.Post("/inquiries", inquiryHandler.HandleSubmit)
	api.Get("/inquiries", inquiryHandler.HandleList)
	api.Get("/inquiries/:id", inquiryHandler.HandleGet)
	api.Patch("/inquiries/:id", inquiryHandler.HandleUpdate)
	api.Post("/inquiries/:id/answer", inquiryHandler.HandleGenerateAnswer)
	api.Get("/inquiries/:id/answers", inquiryHandler.HandleListAnswers)

	api.Patch("/answers/:id", answerHandler.HandleEditDraft)
	api.Post("/answers/:id/approve", answerHandler.HandleApprove)
	api.Post("/answers/:id/send", answerHandler.HandleSend)

	api.Post("/knowledge", knowledgeHandler.HandleCreate)
	api.Get("/knowledge", knowledgeHandler.HandleList)
	api.Get("/knowledge/:id", knowledgeHandler.HandleGet)
	api.Put("/knowledge/:id", knowledgeHandler.HandleUpdate)
	api.Delete("/knowledge/:id", knowledgeHandler.HandleDelete)
	api.Post("/knowledge/sync", knowledgeHandler.HandleSync)

	api.Post("/ai/summarize", aiHandler.HandleSummarize)
	api.Post("/ai/selfhelp", aiHandler.HandleSelfHelp)
	api.Post("/ai/followups", aiHandler.HandleFollowups)
	api.Post("/ai/similar", aiHandler.HandleSimilar)
	api.Post("/ai/search", aiHandler.HandleSearch)

	api.Post("/import/email", importHandler.HandleEmail)
	api.Post("/import/phone", importHandler.HandlePhone)

	api.Get("/audit", auditHandler.HandleList)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/triage", websocket.New(stream.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.ShutdownWithContext(shutdownCtx)
	appLogger.Info("Server stopped")
}
