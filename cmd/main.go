package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/api/chatstream"
	"github.com/Conversly/lead-response/internal/api/knowledge"
	"github.com/Conversly/lead-response/internal/chat"
	"github.com/Conversly/lead-response/internal/config"
	"github.com/Conversly/lead-response/internal/controllers"
	"github.com/Conversly/lead-response/internal/core"
	"github.com/Conversly/lead-response/internal/crm"
	"github.com/Conversly/lead-response/internal/embedder"
	"github.com/Conversly/lead-response/internal/ingest"
	"github.com/Conversly/lead-response/internal/llm"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/rag"
	"github.com/Conversly/lead-response/internal/routes"
	"github.com/Conversly/lead-response/internal/sessions"
	"github.com/Conversly/lead-response/internal/tools"
	"github.com/Conversly/lead-response/internal/training"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
	"github.com/Conversly/lead-response/internal/voice"
)

// crmStore reads chatbots and customers from the main database and
// pipelines from the CRM database.
type crmStore struct {
	*loaders.PostgresClient
	pipelines *loaders.PostgresClient
}

func (s crmStore) UpdateDefaultPipeline(ctx context.Context, organizationID string, fn loaders.StageMutator) (bool, error) {
	return s.pipelines.UpdateDefaultPipeline(ctx, organizationID, fn)
}

func main() {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: Error loading .env file", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	cleanup := utils.InitLogger(cfg)
	defer cleanup()

	utils.Zlog.Info("Starting application",
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.ServerPort))

	ctx := context.Background()

	db, err := loaders.NewPostgresClient(cfg.DatabaseURL, cfg.WorkerCount, true)
	if err != nil {
		utils.Zlog.Fatal("Failed to create database client", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			utils.Zlog.Error("Error closing database connection", zap.Error(err))
		}
	}()

	crmDB := db
	if cfg.CRMDatabaseURL != cfg.DatabaseURL {
		crmDB, err = loaders.NewPostgresClient(cfg.CRMDatabaseURL, cfg.WorkerCount, false)
		if err != nil {
			utils.Zlog.Fatal("Failed to create CRM database client", zap.Error(err))
		}
		defer func() {
			if err := crmDB.Close(); err != nil {
				utils.Zlog.Error("Error closing CRM database connection", zap.Error(err))
			}
		}()
	}

	emb, err := embedder.New(ctx, cfg)
	if err != nil {
		utils.Zlog.Fatal("Failed to create embedder", zap.Error(err))
	}

	var openaiProvider, geminiProvider llm.Provider
	if cfg.OpenAIAPIKey != "" {
		p, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIChatModel, cfg.ChatTemperature)
		if err != nil {
			utils.Zlog.Fatal("Failed to create OpenAI provider", zap.Error(err))
		}
		openaiProvider = p
	}
	if len(cfg.GeminiAPIKeys) > 0 {
		p, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKeys, cfg.GeminiChatModel, cfg.ChatTemperature)
		if err != nil {
			utils.Zlog.Fatal("Failed to create Gemini provider", zap.Error(err))
		}
		geminiProvider = p
	}

	var sessionStore sessions.Store
	if cfg.RedisURL != "" {
		rs, err := sessions.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			utils.Zlog.Fatal("Failed to connect to redis", zap.Error(err))
		}
		sessionStore = rs
	} else {
		sessionStore = sessions.NewMemoryStore(cfg.SessionTTL)
	}

	// Ingestion
	var extractorOpts []ingest.ExtractorOption
	helper := openaiProvider
	if helper == nil {
		helper = geminiProvider
	}
	if cfg.CleanScrapedHTML {
		extractorOpts = append(extractorOpts, ingest.WithCleaner(helper))
	}
	if vision, ok := helper.(llm.ImageTranscriber); ok {
		extractorOpts = append(extractorOpts, ingest.WithVision(vision))
	}
	extractor, err := ingest.NewExtractor(ctx, utils.NewFileDownloader(), cfg.S3BaseURL, extractorOpts...)
	if err != nil {
		utils.Zlog.Fatal("Failed to create extractor", zap.Error(err))
	}
	pipeline := ingest.NewPipeline(db, db, extractor, emb, types.ChunkConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})
	jobs := training.NewManager(db, pipeline, training.NewWebhook(), cfg.TrainingWebhookURL)

	// Chat
	retriever := rag.NewRetriever(db, emb)
	leads := crm.NewService(crmStore{PostgresClient: db, pipelines: crmDB})
	registry := tools.NewRegistry(leads, db, retriever)
	turns := core.NewTurnSaver(db)

	deps := chat.Deps{
		Store:     db,
		Retriever: retriever,
		Tools:     registry,
		Sessions:  sessionStore,
		Turns:     turns,
		Timeout:   cfg.LLMTimeout,
	}
	var openaiStream, geminiStream chatstream.Streamer
	if openaiProvider != nil {
		openaiStream = chat.NewOrchestrator(openaiProvider, deps)
	}
	if geminiProvider != nil {
		geminiStream = chat.NewOrchestrator(geminiProvider, deps)
	}

	// Voice
	var realtimeClient voice.Realtime
	if cfg.OpenAIAPIKey != "" {
		realtimeClient = voice.NewRealtimeClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	}
	liveKey := ""
	if cfg.GeminiLiveExposeKey && len(cfg.GeminiAPIKeys) > 0 {
		liveKey = cfg.GeminiAPIKeys[0]
	}
	voiceSvc := voice.NewService(db, registry, sessionStore, realtimeClient, voice.Options{
		RealtimeModel: cfg.RealtimeModel,
		RealtimeVoice: cfg.RealtimeVoice,
		LiveModel:     cfg.GeminiLiveModel,
		LiveVoice:     cfg.GeminiLiveVoice,
		LiveAPIKey:    liveKey,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	health := map[string]controllers.Pinger{"database": db}
	if crmDB != db {
		health["crm_database"] = crmDB
	}
	routes.SetupRoutes(router, routes.Dependencies{
		Config:    cfg,
		Health:    health,
		OpenAI:    openaiStream,
		Gemini:    geminiStream,
		Knowledge: knowledge.NewService(jobs, pipeline, db),
		Realtime:  voiceSvc,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// chat streams and synchronous ingestion outlive a plain request
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Zlog.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Zlog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		utils.Zlog.Error("Training jobs did not finish", zap.Error(err))
	}
	turns.Stop()
	if err := sessionStore.Close(); err != nil {
		utils.Zlog.Error("Error closing session store", zap.Error(err))
	}

	utils.Zlog.Info("Server exited")
}
