package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Weather  WeatherConfig
	Keys     TopicKeys
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	ModelLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret   string
	Issuer      string
	EmailDomain string // used for users created from a wallet login
}

type AIConfig struct {
	LLMProvider    string // "openai" or "ollama"
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OllamaBaseURL  string
	ImageModel     string
	DefaultModelID string
	MaxSteps       int
	TurnTimeout    time.Duration
}

type WeatherConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

type TopicKeys struct {
	ChatEventsTopic string // in-process watermill topic
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			ModelLogFilePath:   getEnv("MODEL_LOG_FILE_PATH", "logs/model.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret:   getEnv("JWT_SECRET", ""),
			Issuer:      getEnv("JWT_ISSUER", "privy.io"),
			EmailDomain: getEnv("AUTH_EMAIL_DOMAIN", "soltar.xyz"),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "openai"),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			ImageModel:     getEnv("IMAGE_MODEL", "dall-e-3"),
			DefaultModelID: getEnv("DEFAULT_MODEL_ID", "gpt-4o-mini"),
			MaxSteps:       getEnvAsInt("MAX_STEPS", 5),
			TurnTimeout:    getEnvAsDuration("TURN_TIMEOUT", 60*time.Second),
		},
		Weather: WeatherConfig{
			BaseURL:  getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
			CacheTTL: getEnvAsDuration("WEATHER_CACHE_TTL", 10*time.Minute),
		},
		Keys: TopicKeys{
			ChatEventsTopic: getEnv("CHAT_EVENTS_TOPIC_NAME", "CHAT_EVENTS"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
