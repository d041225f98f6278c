package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Chat     ChatConfig
	API      APIConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	// URL is optional; when empty the server keeps user accounts in memory.
	URL string
}

type JWTConfig struct {
	Secret    []byte
	ExpiresIn time.Duration
}

type ChatConfig struct {
	DefaultRoom   string
	SweepInterval time.Duration
	MessageMaxAge time.Duration
	MessageCap    int
	TypingTimeout time.Duration
}

type APIConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", ":8080"),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", "15s"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		JWT: JWTConfig{
			Secret:    []byte(getEnvOrFatal("JWT_SECRET")),
			ExpiresIn: getDurationOrDefault("JWT_EXPIRES_IN", "168h"),
		},
		Chat: ChatConfig{
			DefaultRoom:   getEnvOrDefault("DEFAULT_ROOM", "general"),
			SweepInterval: getDurationOrDefault("SWEEP_INTERVAL", "30m"),
			MessageMaxAge: getDurationOrDefault("MESSAGE_MAX_AGE", "2h"),
			MessageCap:    getIntOrDefault("MESSAGE_CAP", 100),
			TypingTimeout: getDurationOrDefault("TYPING_TIMEOUT", "2s"),
		},
		API: APIConfig{
			RateLimit:  getIntOrDefault("API_RATE_LIMIT", 100),
			RateWindow: getDurationOrDefault("API_RATE_WINDOW", "15m"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrFatal(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s environment variable is required", key)
	}
	return value
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %v", key, err)
	}
	return intValue
}
