package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string

	OpenAIAPIKey          string
	OpenAIModelTranscribe string
	OpenAIModelRefine     string

	FishAudioAPIKey   string
	FishMaleModelID   string
	FishFemaleModelID string

	DatabaseURL string
	MongoURI    string
	MongoDB     string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string

	MaxUploadBytes     int64
	RateLimitPerMinute int
}

func Load() (Config, error) {
	cfg := Config{}

	cfg.Port = envOrDefault("PORT", "8080")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	cfg.OpenAIModelTranscribe = envOrDefault("OPENAI_MODEL_TRANSCRIBE", "whisper-1")
	cfg.OpenAIModelRefine = envOrDefault("OPENAI_MODEL_REFINE", "gpt-4o")

	cfg.FishAudioAPIKey = os.Getenv("FISH_AUDIO_API_KEY")
	if cfg.FishAudioAPIKey == "" {
		return Config{}, fmt.Errorf("FISH_AUDIO_API_KEY is not set")
	}
	cfg.FishMaleModelID = os.Getenv("FISH_AUDIO_MALE_MODEL_ID")
	cfg.FishFemaleModelID = os.Getenv("FISH_AUDIO_FEMALE_MODEL_ID")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.MongoURI = envOrDefault("MONGO_URI", "mongodb://localhost:27017")
	cfg.MongoDB = envOrDefault("MONGO_DB", "voice_mirror")

	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3Region = os.Getenv("S3_REGION")

	maxUploadMB, err := parseIntEnv("MAX_UPLOAD_MB", 20)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_UPLOAD_MB: %w", err)
	}
	cfg.MaxUploadBytes = maxUploadMB * 1024 * 1024

	rate, err := parseIntEnv("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_PER_MINUTE: %w", err)
	}
	cfg.RateLimitPerMinute = int(rate)

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}
