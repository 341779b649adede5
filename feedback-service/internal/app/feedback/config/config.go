package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
)

// Config содержит все настройки Feedback Service
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	MongoDB  MongoDBConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Gemini   GeminiConfig
	CORS     CORSConfig
	LogLevel string
	// StrictParsing - отклонять ответы модели без одной из секций
	StrictParsing bool
}

type ServerConfig struct {
	Host string // Адрес хоста (по умолчанию 0.0.0.0)
	Port string // Порт сервера (по умолчанию 8085)
}

// StorageConfig - выбор хранилища отзывов: mongo или postgres
type StorageConfig struct {
	Driver string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

// DatabaseConfig - настройки PostgreSQL, используется при STORAGE_DRIVER=postgres
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig - события FEEDBACK_CREATED
// При Enabled=false события не отправляются
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type GeminiConfig struct {
	APIKey  string // Ключ проверяется при вызове модели, а не при старте
	Model   string
	Timeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load читает конфигурацию из окружения
// Если рядом лежит .env, его значения подхватываются, но не перекрывают уже заданные переменные
func Load() (*Config, error) {
	_ = godotenv.Load()

	kafkaEnabled, err := getEnvAsBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	strict, err := getEnvAsBool("STRICT_COMPLETION_PARSING", false)
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(getEnv("GEMINI_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEMINI_TIMEOUT value: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid GEMINI_TIMEOUT value: must be positive")
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", StorageMongo))
	if driver != StorageMongo && driver != StoragePostgres {
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", driver)
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8085"),
		},
		Storage: StorageConfig{
			Driver: driver,
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "feedback_service"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "feedback_service"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Enabled: kafkaEnabled,
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "feedback_events"),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: timeout,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StrictParsing: strict,
	}, nil
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return value, nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
