package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Music     MusicConfig
	Image     ImageConfig
	Text      TextConfig
	R2        R2Config
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Path string
}

type RateLimitConfig struct {
	RunPerHour    int
	DeployPerHour int
	TitlesPerMin  int
}

// MusicConfig holds credentials for the async music generation provider.
type MusicConfig struct {
	APIKey       string
	BaseURL      string
	ModelVersion string
}

// ImageConfig holds credentials for the cover art provider.
type ImageConfig struct {
	APIKey  string
	BaseURL string
}

// TextConfig selects one of the supported completion backends
// (groq, openai, mistral) and its credentials.
type TextConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// PipelineConfig tunes the scheduled generation pipeline.
type PipelineConfig struct {
	TickSpec        string // cron spec for the due-schedule check
	PollSpec        string // cron spec for provider polling
	ClaimLeaseSec   int    // how long a claimed schedule stays claimed
	PurgeFailedDays int    // default age for purging failed tasks
	FallbackBitrate int    // bits/sec assumed when deriving duration from size
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("MUSIC_API_KEY")
	readSecret("IMAGE_API_KEY")
	readSecret("TEXT_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("database.path", "DATABASE_PATH")
	_ = viper.BindEnv("music.api_key", "MUSIC_API_KEY")
	_ = viper.BindEnv("music.base_url", "MUSIC_BASE_URL")
	_ = viper.BindEnv("music.model_version", "MUSIC_MODEL_VERSION")
	_ = viper.BindEnv("image.api_key", "IMAGE_API_KEY")
	_ = viper.BindEnv("image.base_url", "IMAGE_BASE_URL")
	_ = viper.BindEnv("text.provider", "TEXT_PROVIDER")
	_ = viper.BindEnv("text.api_key", "TEXT_API_KEY")
	_ = viper.BindEnv("text.base_url", "TEXT_BASE_URL")
	_ = viper.BindEnv("text.model", "TEXT_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("pipeline.tick_spec", "PIPELINE_TICK_SPEC")
	_ = viper.BindEnv("pipeline.poll_spec", "PIPELINE_POLL_SPEC")
	_ = viper.BindEnv("pipeline.claim_lease_sec", "PIPELINE_CLAIM_LEASE_SEC")
	_ = viper.BindEnv("pipeline.purge_failed_days", "PIPELINE_PURGE_FAILED_DAYS")
	_ = viper.BindEnv("pipeline.fallback_bitrate", "PIPELINE_FALLBACK_BITRATE")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("database.path", "./data/pipeline.db")
	viper.SetDefault("ratelimit.run_per_hour", 30)
	viper.SetDefault("ratelimit.deploy_per_hour", 60)
	viper.SetDefault("ratelimit.titles_per_min", 10)

	// Music provider defaults
	viper.SetDefault("music.base_url", "https://api.sunoapi.org")
	viper.SetDefault("music.model_version", "V4_5")

	// Image provider defaults
	viper.SetDefault("image.base_url", "https://api.kie.ai")

	// Text provider defaults
	viper.SetDefault("text.provider", "groq")
	viper.SetDefault("text.base_url", "")
	viper.SetDefault("text.model", "")

	// Pipeline defaults
	viper.SetDefault("pipeline.tick_spec", "* * * * *")
	viper.SetDefault("pipeline.poll_spec", "@every 30s")
	viper.SetDefault("pipeline.claim_lease_sec", 300)
	viper.SetDefault("pipeline.purge_failed_days", 30)
	viper.SetDefault("pipeline.fallback_bitrate", 128000)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		RateLimit: RateLimitConfig{
			RunPerHour:    viper.GetInt("ratelimit.run_per_hour"),
			DeployPerHour: viper.GetInt("ratelimit.deploy_per_hour"),
			TitlesPerMin:  viper.GetInt("ratelimit.titles_per_min"),
		},
		Music: MusicConfig{
			APIKey:       viper.GetString("music.api_key"),
			BaseURL:      viper.GetString("music.base_url"),
			ModelVersion: viper.GetString("music.model_version"),
		},
		Image: ImageConfig{
			APIKey:  viper.GetString("image.api_key"),
			BaseURL: viper.GetString("image.base_url"),
		},
		Text: TextConfig{
			Provider: viper.GetString("text.provider"),
			APIKey:   viper.GetString("text.api_key"),
			BaseURL:  viper.GetString("text.base_url"),
			Model:    viper.GetString("text.model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Pipeline: PipelineConfig{
			TickSpec:        viper.GetString("pipeline.tick_spec"),
			PollSpec:        viper.GetString("pipeline.poll_spec"),
			ClaimLeaseSec:   viper.GetInt("pipeline.claim_lease_sec"),
			PurgeFailedDays: viper.GetInt("pipeline.purge_failed_days"),
			FallbackBitrate: viper.GetInt("pipeline.fallback_bitrate"),
		},
	}

	return cfg, nil
}
