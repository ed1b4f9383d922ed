package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env             string
	ServerPort      string
	DBDriver        string
	MySQLDSN        string
	SQLitePath      string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	JWTSecret       string
	TokenTTL        time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
	NoteMinLength   int
	LogLevel        string
	KafkaBrokers    []string
	KafkaTopic      string
	SwaggerHost     string
	ShutdownTimeout time.Duration
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	return &Config{
		Env:             getEnv("APP_ENV", "development"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", "mysql"),
		MySQLDSN:        getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/notes?charset=utf8mb4&parseTime=True&loc=Local"),
		SQLitePath:      getEnv("SQLITE_PATH", "notes.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisPass:       os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		TokenTTL:        getEnvDuration("TOKEN_TTL", time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:      getEnvInt("BCRYPT_COST", 10),
		NoteMinLength:   getEnvInt("NOTE_MIN_LENGTH", 5),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "notes.events"),
		SwaggerHost:     os.Getenv("SWAGGER_HOST"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// IsTest reports whether the process runs in the test environment.
func (c *Config) IsTest() bool {
	return c.Env == "test"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
