package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything read from the environment. Load is called once in
// main after godotenv has populated os.Environ from .env.
type Config struct {
	Addr string
	Mode string // "dev" or "release"

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	// Telegram moderation alerts; disabled when the token is empty.
	TelegramBotToken    string
	TelegramAdminChatID int64

	LogPath  string
	LogLevel string
}

// Load reads the environment with sensible development defaults.
func Load() *Config {
	return &Config{
		Addr:       getEnv("ADDR", ":8080"),
		Mode:       getEnv("APP_MODE", "dev"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "snackboxdb"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "dev-only-secret"),

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChatID: int64(getEnvInt("TELEGRAM_ADMIN_CHAT_ID", 0)),

		LogPath:  getEnv("LOG_PATH", "logs/snackbox.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
