package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"voice-mirror/internal/config"
	"voice-mirror/internal/delivery"
	"voice-mirror/internal/speech"
	"voice-mirror/internal/storage"
	"voice-mirror/internal/survey"
	"voice-mirror/internal/voice"
	"voice-mirror/internal/workflow"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

func main() {

	// =========================================================================
	// ENV / DB INIT
	// =========================================================================

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}
	defer db.Close()

	if err := voice.InitSchema(ctx, db); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		log.Fatalf("mongo ping failed: %v", err)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()

	// =========================================================================
	// INFRASTRUCTURE
	// =========================================================================

	var archive voice.SampleArchive
	if cfg.S3Endpoint != "" {
		s3Client, err := storage.NewS3Client(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
		})
		if err != nil {
			log.Fatalf("failed to init s3: %v", err)
		}
		archive = s3Client
	} else {
		baseLogger.Info("S3_ENDPOINT not set, voice samples will not be archived")
	}

	// =========================================================================
	// REPOSITORIES
	// =========================================================================

	voiceRepo := voice.NewPgRepo(db)
	surveyRepo := survey.NewMongoRepo(mongoClient.Database(cfg.MongoDB))

	// =========================================================================
	// CLIENTS (STT / LLM / TTS)
	// =========================================================================

	openAIClient := speech.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModelTranscribe, cfg.OpenAIModelRefine)
	fishClient := speech.NewFishClient(cfg.FishAudioAPIKey)

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	speechService := speech.NewService(
		openAIClient, // Whisper
		openAIClient, // GPT refinement
		fishClient,   // Fish Audio TTS
		fishClient,   // Fish Audio cloning
	)

	registry := voice.NewRegistry(
		voiceRepo,
		fishClient,
		archive,
		cfg.FishMaleModelID,
		cfg.FishFemaleModelID,
		baseLogger,
	)

	surveyService := survey.NewService(surveyRepo, baseLogger)

	sessionManager := workflow.NewManager(
		openAIClient,
		openAIClient,
		fishClient,
		registry,
		baseLogger,
	)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// HANDLERS
	speechHandler := delivery.NewSpeechHandler(speechService, cfg.MaxUploadBytes, baseLogger)
	workflowHandler := delivery.NewWorkflowHandler(sessionManager, registry, cfg.MaxUploadBytes, baseLogger)
	voiceHandler := delivery.NewVoiceHandler(registry, cfg.MaxUploadBytes, baseLogger)
	surveyHandler := delivery.NewSurveyHandler(surveyService, baseLogger)

	// ROUTES
	delivery.RegisterRoutes(
		r,
		speechHandler,
		workflowHandler,
		voiceHandler,
		surveyHandler,
		cfg.RateLimitPerMinute,
		baseLogger,
	)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("pong"))
	})

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + cfg.Port
	baseLogger.Info("listening", zap.String("addr", addr))

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
