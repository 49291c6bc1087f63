package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	ServerPort string
	GinMode    string

	StoreDriver   string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBAutoMigrate bool

	MongoURI      string
	MongoDatabase string

	RedisURL          string
	AnalyticsCacheTTL time.Duration

	JWTSecret string
	JWTExpiry time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads .env when present, then the process environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		GinMode:    getEnv("GIN_MODE", "release"),

		StoreDriver:   getEnv("STORE_DRIVER", DriverPostgres),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "tasks_user"),
		DBPassword:    getEnv("DB_PASSWORD", "tasks_pass"),
		DBName:        getEnv("DB_NAME", "tasks_db"),
		DBAutoMigrate: getBool("DB_AUTO_MIGRATE", true),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "taskmanager"),

		RedisURL:          getEnv("REDIS_URL", ""),
		AnalyticsCacheTTL: getDuration("ANALYTICS_CACHE_TTL", time.Minute),

		JWTSecret: getEnv("JWT_SECRET", "supersecretkey"),
		JWTExpiry: time.Duration(getInt("JWT_EXPIRY_HOURS", 168)) * time.Hour,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive")
	}
	return nil
}

// PostgresDSN builds the connection string for the relational store
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.WithField("key", key).Warnf("invalid integer %q, using %d", raw, defaultVal)
		return defaultVal
	}
	return v
}

func getBool(key string, defaultVal bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.WithField("key", key).Warnf("invalid boolean %q, using %t", raw, defaultVal)
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.WithField("key", key).Warnf("invalid duration %q, using %s", raw, defaultVal)
		return defaultVal
	}
	return v
}
